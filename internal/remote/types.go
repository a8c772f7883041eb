package remote

import "encoding/json"

// --- Enums ---

// DocumentStatus is the lifecycle state of a shared document.
type DocumentStatus string

const (
	DocumentActive    DocumentStatus = "active"
	DocumentCompleted DocumentStatus = "completed"
	DocumentArchived  DocumentStatus = "archived"
)

// Operation is the kind of textual change an edit performs.
type Operation string

const (
	OpInsert  Operation = "insert"
	OpReplace Operation = "replace"
	OpDelete  Operation = "delete"
)

// Position places inserted text relative to its anchor.
type Position string

const (
	PositionBefore Position = "before"
	PositionAfter  Position = "after"
)

// EditStatus is the store's verdict on a submitted edit.
type EditStatus string

const (
	EditAccepted EditStatus = "accepted"
	EditRejected EditStatus = "rejected"
)

// IntentStatus tracks an announced edit intent through its lifecycle.
type IntentStatus string

const (
	IntentProposed  IntentStatus = "proposed"
	IntentConfirmed IntentStatus = "confirmed"
	IntentCancelled IntentStatus = "cancelled"
	IntentExecuted  IntentStatus = "executed"
)

// CommentKind classifies a comment left on another agent's intent.
type CommentKind string

const (
	CommentCritique   CommentKind = "critique"
	CommentSupport    CommentKind = "support"
	CommentSuggestion CommentKind = "suggestion"
)

// --- Document store ---

// RoleSpec is one entry of a document's role catalog.
type RoleSpec struct {
	Key    string `json:"role_key"`
	Name   string `json:"name"`
	Prompt string `json:"prompt,omitempty"`
}

// UnmarshalJSON accepts both "role_key" and "key" for the role key.
func (r *RoleSpec) UnmarshalJSON(data []byte) error {
	var raw struct {
		RoleKey string `json:"role_key"`
		Key     string `json:"key"`
		Name    string `json:"name"`
		Prompt  string `json:"prompt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Key = raw.RoleKey
	if r.Key == "" {
		r.Key = raw.Key
	}
	r.Name = raw.Name
	r.Prompt = raw.Prompt
	return nil
}

// DocumentSnapshot is a read-only copy of the shared document and its
// control metadata as returned by the store.
type DocumentSnapshot struct {
	DocumentID       string         `json:"document_id,omitempty"`
	Version          int            `json:"version"`
	Text             string         `json:"text"`
	Status           DocumentStatus `json:"status,omitempty"`
	MaxEdits         int            `json:"max_edits,omitempty"`
	MaxEditsPerAgent int            `json:"max_edits_per_agent,omitempty"`
	AgentRoles       []RoleSpec     `json:"agent_roles,omitempty"`
	TotalVersions    int            `json:"total_versions,omitempty"`
}

// Active reports whether agents may still edit the document. A snapshot
// without a status is treated as active.
func (d *DocumentSnapshot) Active() bool {
	return d.Status == "" || d.Status == DocumentActive
}

// CeilingReached reports whether the store's aggregate edit ceiling has been
// hit. The first version is the initial text, so it does not count as an edit.
func (d *DocumentSnapshot) CeilingReached() bool {
	if d.MaxEdits <= 0 || d.TotalVersions <= 0 {
		return false
	}
	return d.TotalVersions-1 >= d.MaxEdits
}

// EditRequest is the body of POST /api/edits.
type EditRequest struct {
	DocumentID string    `json:"document_id,omitempty"`
	AgentID    string    `json:"agent_id"`
	Operation  Operation `json:"operation"`
	Anchor     string    `json:"anchor,omitempty"`
	Position   Position  `json:"position,omitempty"`
	OldText    string    `json:"old_text,omitempty"`
	NewText    string    `json:"new_text,omitempty"`
	TokensUsed int       `json:"tokens_used"`
}

// EditResult is the store's response to an edit submission.
type EditResult struct {
	EditID  string     `json:"edit_id"`
	Status  EditStatus `json:"status"`
	Version int        `json:"version"`
}

// Accepted reports whether the store applied the edit.
func (r *EditResult) Accepted() bool {
	return r.Status == EditAccepted
}

// --- Chat service ---

// EditIntent is a structured announcement of an edit attached to a chat message.
type EditIntent struct {
	IntentID  string       `json:"intent_id"`
	AgentID   string       `json:"agent_id"`
	Operation Operation    `json:"operation"`
	Anchor    string       `json:"anchor,omitempty"`
	Summary   string       `json:"summary"`
	Status    IntentStatus `json:"status"`
	CreatedAt float64      `json:"created_at"`
}

// EditComment is another agent's reaction to an intent.
type EditComment struct {
	CommentID      string      `json:"comment_id"`
	TargetIntentID string      `json:"target_intent_id"`
	AgentID        string      `json:"agent_id"`
	Kind           CommentKind `json:"kind"`
	Content        string      `json:"content"`
	CreatedAt      float64     `json:"created_at"`
}

// ChatMessage is one entry of the shared chat feed. Timestamp is kept
// verbatim so it can be sent back as the "since" watermark.
type ChatMessage struct {
	MessageID  string       `json:"message_id"`
	DocumentID string       `json:"document_id,omitempty"`
	AgentID    string       `json:"agent_id"`
	AgentRole  string       `json:"agent_role,omitempty"`
	Message    string       `json:"message"`
	Timestamp  string       `json:"timestamp"`
	Intent     *EditIntent  `json:"intent,omitempty"`
	Comment    *EditComment `json:"comment,omitempty"`
}

// MessageQuery selects chat messages. Zero fields are omitted from the query.
type MessageQuery struct {
	Since      string
	DocumentID string
	Limit      int
}

// PostMessageRequest is the body of POST /api/chat/messages.
type PostMessageRequest struct {
	AgentID    string       `json:"agent_id"`
	Message    string       `json:"message"`
	DocumentID string       `json:"document_id,omitempty"`
	AgentRole  string       `json:"agent_role,omitempty"`
	Intent     *EditIntent  `json:"intent,omitempty"`
	Comment    *EditComment `json:"comment,omitempty"`
}

// PostMessageResponse acknowledges a posted chat message.
type PostMessageResponse struct {
	MessageID string `json:"message_id"`
	Timestamp string `json:"timestamp"`
}
