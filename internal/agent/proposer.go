package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dusk-indust/coauthor/internal/llm"
	"github.com/dusk-indust/coauthor/internal/remote"
	"github.com/dusk-indust/coauthor/internal/retry"
)

// DefaultRolePrompt is the role focus used when the active role has none.
const DefaultRolePrompt = "Grow the text: add value, new details, examples and connecting transitions without empty repetition."

const proposalInstructions = `Return a JSON object with this structure:
{
  "operation": "insert" | "replace" | "delete",
  "anchor": "text fragment to find in document",
  "position": "before" | "after" (only for insert),
  "old_text": "text to replace/delete" (optional, can be same as anchor),
  "new_text": "new text for insert/replace",
  "reasoning": "brief explanation"
}

Rules:
- Prioritize INSERT or REPLACE that expand content with new paragraphs, facts, transitions, or applied insights.
- Keep tone professional; avoid pleading phrases or repetitive emphasis.
- Anchor must exist in the document exactly; keep changes coherent with surrounding text.
- Each edit should feel like one meaningful cycle, not scattered micro-changes.
- For INSERT: specify anchor, position (before/after), and new_text
- For REPLACE: specify anchor (or old_text), and new_text
- For DELETE: specify anchor (or old_text) and use only when removing clear redundancy.`

// Proposer asks the model for one edit per cycle.
type Proposer struct {
	model  llm.Client
	policy retry.Policy
	logger *slog.Logger
}

// NewProposer returns a Proposer that retries model calls under policy.
func NewProposer(model llm.Client, policy retry.Policy, logger *slog.Logger) *Proposer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Proposer{model: model, policy: policy, logger: logger}
}

// BuildPrompt renders the system and user messages for one proposal.
func BuildPrompt(documentText, chatSummary string, role remote.RoleSpec) llm.Prompt {
	focus := role.Prompt
	if focus == "" {
		focus = DefaultRolePrompt
	}
	system := fmt.Sprintf("You are an AI agent working as %q.\nRole focus: %s\n\n%s", role.Name, focus, proposalInstructions)
	user := fmt.Sprintf("Current document:\n%s\n\nRecent chat:\n%s\n\n"+
		"Propose one coherent improvement that meaningfully expands the text "+
		"(more details, examples, bridges). Avoid filler or repeating pleas.", documentText, chatSummary)
	return llm.Prompt{System: system, User: user}
}

// Propose asks the model for an edit of documentText and parses the reply.
// A reply that does not decode into a proposal is an error; it is not retried.
func (p *Proposer) Propose(ctx context.Context, documentText, chatSummary string, role remote.RoleSpec) (*Proposal, error) {
	prompt := BuildPrompt(documentText, chatSummary, role)

	policy := p.policy
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		p.logger.Warn("retrying model call", "attempt", attempt, "delay", delay, "error", err)
	}
	completion, err := retry.DoValue(ctx, policy, func(ctx context.Context) (*llm.Completion, error) {
		return p.model.Complete(ctx, prompt)
	})
	if err != nil {
		return nil, fmt.Errorf("agent: propose: %w", err)
	}

	proposal, err := ParseProposal(completion.Content, completion.TotalTokens)
	if err != nil {
		return nil, fmt.Errorf("agent: propose: %w", err)
	}
	return proposal, nil
}
