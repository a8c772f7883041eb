package llm

import (
	"context"
	"errors"
	"sync"
)

// ErrScriptExhausted is returned by Mock once every scripted reply is used.
var ErrScriptExhausted = errors.New("llm: mock script exhausted")

// Reply is one scripted Mock response.
type Reply struct {
	Content string
	Tokens  int
	Err     error
}

// Mock replays scripted replies in order and records the prompts it saw.
// It is safe for concurrent use.
type Mock struct {
	mu      sync.Mutex
	replies []Reply
	prompts []Prompt
}

var _ Client = (*Mock)(nil)

// NewMock returns a Mock that answers with replies in order.
func NewMock(replies ...Reply) *Mock {
	return &Mock{replies: replies}
}

// Complete returns the next scripted reply.
func (m *Mock) Complete(_ context.Context, prompt Prompt) (*Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, prompt)
	if len(m.replies) == 0 {
		return nil, ErrScriptExhausted
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	if r.Err != nil {
		return nil, r.Err
	}
	return &Completion{Content: r.Content, TotalTokens: r.Tokens}, nil
}

// Prompts returns a copy of every prompt received so far.
func (m *Mock) Prompts() []Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Prompt, len(m.prompts))
	copy(out, m.prompts)
	return out
}
