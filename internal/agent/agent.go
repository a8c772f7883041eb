// Package agent implements the editing agent: role assignment, chat context,
// edit proposal and validation, and the cycle controller that composes them.
package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dusk-indust/coauthor/internal/remote"
)

// Phase is a state of the cycle controller.
type Phase string

const (
	PhaseAwaitingDocument Phase = "awaiting-document"
	PhaseWorking          Phase = "working"
	PhaseStopped          Phase = "stopped"
)

// IsTerminal returns true once the controller will do no further work.
func (p Phase) IsTerminal() bool {
	return p == PhaseStopped
}

// StopReason records why the controller entered PhaseStopped.
type StopReason string

const (
	StopNone           StopReason = ""
	StopShutdown       StopReason = "shutdown"
	StopLimitReached   StopReason = "edit-limit-reached"
	StopDocumentClosed StopReason = "document-inactive"
	StopCeilingReached StopReason = "document-ceiling-reached"
	StopQuotaExceeded  StopReason = "quota-exceeded"
)

// AgentState is everything one agent remembers between cycles. It is owned
// by a single Controller and never shared.
type AgentState struct {
	// AgentID is the opaque, process-unique identity of the agent.
	AgentID string

	// RoleName and RolePrompt describe the active role. They start from
	// configuration and are replaced when a snapshot carries a role catalog.
	RoleName   string
	RolePrompt string

	// RoleIndex is the catalog index of the active role, or -1 when the
	// configured role is in effect.
	RoleIndex int

	// CompletedEdits counts accepted edits. It never exceeds EditLimit.
	CompletedEdits int

	// EditLimit is the per-agent edit cap.
	EditLimit int

	// Watermark is the timestamp of the newest chat message seen.
	Watermark string

	// Cycles counts Working iterations started.
	Cycles int

	Phase      Phase
	StopReason StopReason
}

// NewAgentState returns the initial state for a freshly started agent.
func NewAgentState(agentID, roleName string, editLimit int) AgentState {
	return AgentState{
		AgentID:   agentID,
		RoleName:  roleName,
		RoleIndex: -1,
		EditLimit: editLimit,
		Phase:     PhaseAwaitingDocument,
	}
}

// LimitReached reports whether the agent has used up its edit allowance.
func (s *AgentState) LimitReached() bool {
	return s.CompletedEdits >= s.EditLimit
}

// ApplySnapshot adopts the per-agent limit and role catalog carried by a
// snapshot. Absent fields leave the current values in place.
func (s *AgentState) ApplySnapshot(doc *remote.DocumentSnapshot) {
	if doc.MaxEditsPerAgent > 0 {
		s.EditLimit = doc.MaxEditsPerAgent
	}
	role, idx, ok := AssignRole(s.AgentID, doc.AgentRoles)
	if !ok {
		return
	}
	s.RoleIndex = idx
	switch {
	case role.Name != "":
		s.RoleName = role.Name
	case role.Key != "":
		s.RoleName = role.Key
	}
	if role.Prompt != "" {
		s.RolePrompt = role.Prompt
	}
}

// RecordAccepted counts one accepted edit.
func (s *AgentState) RecordAccepted() {
	if s.CompletedEdits < s.EditLimit {
		s.CompletedEdits++
	}
}

func (s *AgentState) stop(reason StopReason) {
	if s.Phase == PhaseStopped {
		return
	}
	s.Phase = PhaseStopped
	s.StopReason = reason
}

// NewAgentID returns an identity of the form agent-<unix-ms>-<random>.
func NewAgentID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("agent-%d-%s", time.Now().UnixMilli(), suffix)
}
