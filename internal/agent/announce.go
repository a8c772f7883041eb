package agent

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dusk-indust/coauthor/internal/remote"
)

// Chat announcement texts.
func introMessage(st *AgentState) string {
	return fmt.Sprintf("Hello! I'm %s, role: %s. Starting work...", st.AgentID, st.RoleName)
}

func inactiveMessage(status remote.DocumentStatus) string {
	return fmt.Sprintf("Stopping work: document status %s", status)
}

func ceilingMessage(maxEdits int) string {
	return fmt.Sprintf("Stopping work: max edits %d reached", maxEdits)
}

func limitMessage(st *AgentState) string {
	return fmt.Sprintf("Reached edit limit (%d) for role %s", st.EditLimit, st.RoleName)
}

func skippedMessage(p *Proposal) string {
	return fmt.Sprintf("(skipped) Generated edit but anchor not found: %s", p.Reasoning)
}

func appliedMessage(p *Proposal) string {
	return fmt.Sprintf("Applied %s: %s", p.Edit.Operation(), p.Reasoning)
}

func rejectedMessage(p *Proposal) string {
	return fmt.Sprintf("Edit rejected: %s", p.Reasoning)
}

const quotaMessage = "Stopping due to budget limit"

func goodbyeMessage(st *AgentState) string {
	return fmt.Sprintf("Finished. Completed %d edits as %s. Goodbye!", st.CompletedEdits, st.RoleName)
}

// newIntent describes a proposal as a structured chat intent.
func newIntent(agentID string, p *Proposal, status remote.IntentStatus, now time.Time) *remote.EditIntent {
	return &remote.EditIntent{
		IntentID:  uuid.NewString(),
		AgentID:   agentID,
		Operation: p.Edit.Operation(),
		Anchor:    p.Edit.AnchorText(),
		Summary:   p.Reasoning,
		Status:    status,
		CreatedAt: float64(now.UnixNano()) / float64(time.Second),
	}
}
