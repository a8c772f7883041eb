package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dusk-indust/coauthor/internal/remote"
)

var (
	// ErrAnchorNotFound means a proposal's anchor does not occur in the document.
	ErrAnchorNotFound = errors.New("agent: anchor not found in document")

	// ErrUnknownOperation means the model asked for an operation other than
	// insert, replace or delete.
	ErrUnknownOperation = errors.New("agent: unknown edit operation")

	// ErrMalformedProposal means the model reply is not a usable proposal.
	ErrMalformedProposal = errors.New("agent: malformed edit proposal")
)

// DefaultTokenCost is reported when the model did not report usage.
const DefaultTokenCost = 10

// Edit is one of Insert, Replace or Delete.
type Edit interface {
	Operation() remote.Operation
	AnchorText() string
	request() remote.EditRequest
}

// Insert adds NewText before or after Anchor.
type Insert struct {
	Anchor   string
	Position remote.Position
	NewText  string
}

// Replace swaps OldText (the anchor when empty) for NewText.
type Replace struct {
	Anchor  string
	OldText string
	NewText string
}

// Delete removes OldText (the anchor when empty).
type Delete struct {
	Anchor  string
	OldText string
}

func (Insert) Operation() remote.Operation  { return remote.OpInsert }
func (Replace) Operation() remote.Operation { return remote.OpReplace }
func (Delete) Operation() remote.Operation  { return remote.OpDelete }

func (e Insert) AnchorText() string  { return e.Anchor }
func (e Replace) AnchorText() string { return e.Anchor }
func (e Delete) AnchorText() string  { return e.Anchor }

func (e Insert) request() remote.EditRequest {
	return remote.EditRequest{Operation: remote.OpInsert, Anchor: e.Anchor, Position: e.Position, NewText: e.NewText}
}

func (e Replace) request() remote.EditRequest {
	return remote.EditRequest{Operation: remote.OpReplace, Anchor: e.Anchor, OldText: e.OldText, NewText: e.NewText}
}

func (e Delete) request() remote.EditRequest {
	return remote.EditRequest{Operation: remote.OpDelete, Anchor: e.Anchor, OldText: e.OldText}
}

// Proposal is a single edit suggested by the model for the current cycle.
type Proposal struct {
	Edit       Edit
	Reasoning  string
	TokensUsed int
}

// Request builds the store submission for the proposal.
func (p *Proposal) Request(documentID, agentID string) remote.EditRequest {
	req := p.Edit.request()
	req.DocumentID = documentID
	req.AgentID = agentID
	req.TokensUsed = p.TokensUsed
	if req.TokensUsed <= 0 {
		req.TokensUsed = DefaultTokenCost
	}
	return req
}

// proposalWire is the JSON shape the model is asked to return.
type proposalWire struct {
	Operation string  `json:"operation"`
	Anchor    string  `json:"anchor"`
	Position  string  `json:"position"`
	OldText   string  `json:"old_text"`
	NewText   *string `json:"new_text"`
	Reasoning string  `json:"reasoning"`
}

// ParseProposal decodes a model reply into a Proposal. Unknown operations,
// invalid positions, and insert/replace without new_text are rejected here
// so nothing malformed reaches the store.
func ParseProposal(raw string, tokensUsed int) (*Proposal, error) {
	var w proposalWire
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedProposal, err)
	}

	oldText := w.OldText
	if oldText == "" {
		oldText = w.Anchor
	}

	var edit Edit
	switch op := remote.Operation(strings.ToLower(strings.TrimSpace(w.Operation))); op {
	case remote.OpInsert:
		if w.NewText == nil {
			return nil, fmt.Errorf("%w: insert without new_text", ErrMalformedProposal)
		}
		pos, err := parsePosition(w.Position)
		if err != nil {
			return nil, err
		}
		edit = Insert{Anchor: w.Anchor, Position: pos, NewText: *w.NewText}
	case remote.OpReplace:
		if w.NewText == nil {
			return nil, fmt.Errorf("%w: replace without new_text", ErrMalformedProposal)
		}
		edit = Replace{Anchor: w.Anchor, OldText: oldText, NewText: *w.NewText}
	case remote.OpDelete:
		edit = Delete{Anchor: w.Anchor, OldText: oldText}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, w.Operation)
	}

	return &Proposal{Edit: edit, Reasoning: w.Reasoning, TokensUsed: tokensUsed}, nil
}

// parsePosition accepts before/after; an empty position means after.
func parsePosition(s string) (remote.Position, error) {
	switch remote.Position(strings.ToLower(strings.TrimSpace(s))) {
	case "", remote.PositionAfter:
		return remote.PositionAfter, nil
	case remote.PositionBefore:
		return remote.PositionBefore, nil
	default:
		return "", fmt.Errorf("%w: invalid position %q", ErrMalformedProposal, s)
	}
}

// Validate checks a proposal against the document text it was made for. It
// fails only when a non-empty anchor is not a literal substring of the text;
// everything else is left to the store.
func Validate(p *Proposal, documentText string) error {
	anchor := p.Edit.AnchorText()
	if anchor != "" && !strings.Contains(documentText, anchor) {
		return ErrAnchorNotFound
	}
	return nil
}
