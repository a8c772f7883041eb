package agent

import (
	"context"
	"strings"
	"sync"

	"github.com/dusk-indust/coauthor/internal/remote"
)

// fakeStore implements remote.DocumentStore. Documents and results are
// served from scripts; once a script runs out its last entry repeats.
type fakeStore struct {
	mu      sync.Mutex
	docs    []docReply
	results []resultReply
	submits []remote.EditRequest
	fetches int
}

type docReply struct {
	doc *remote.DocumentSnapshot
	err error
}

type resultReply struct {
	res *remote.EditResult
	err error
}

func (f *fakeStore) CurrentDocument(ctx context.Context, documentID string) (*remote.DocumentSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	r := f.docs[0]
	if len(f.docs) > 1 {
		f.docs = f.docs[1:]
	}
	if r.err != nil {
		return nil, r.err
	}
	doc := *r.doc
	return &doc, nil
}

func (f *fakeStore) SubmitEdit(ctx context.Context, req remote.EditRequest) (*remote.EditResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, req)
	r := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return r.res, r.err
}

func (f *fakeStore) submitted() []remote.EditRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]remote.EditRequest, len(f.submits))
	copy(out, f.submits)
	return out
}

// fakeChat implements remote.ChatFeed. Both fakes fail calls made with a
// cancelled context, the way a real HTTP client would.
type fakeChat struct {
	mu      sync.Mutex
	inbox   [][]remote.ChatMessage
	queries []remote.MessageQuery
	posts   []remote.PostMessageRequest
	postErr error
	getErr  error
}

func (f *fakeChat) Messages(ctx context.Context, q remote.MessageQuery) ([]remote.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.getErr != nil {
		return nil, f.getErr
	}
	if len(f.inbox) == 0 {
		return nil, nil
	}
	msgs := f.inbox[0]
	f.inbox = f.inbox[1:]
	return msgs, nil
}

func (f *fakeChat) PostMessage(ctx context.Context, req remote.PostMessageRequest) (*remote.PostMessageResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, req)
	if f.postErr != nil {
		return nil, f.postErr
	}
	return &remote.PostMessageResponse{MessageID: "m"}, nil
}

// posted returns the text of every posted message.
func (f *fakeChat) posted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.posts))
	for i, p := range f.posts {
		out[i] = p.Message
	}
	return out
}

// countPrefix counts posted messages starting with prefix.
func (f *fakeChat) countPrefix(prefix string) int {
	n := 0
	for _, m := range f.posted() {
		if strings.HasPrefix(m, prefix) {
			n++
		}
	}
	return n
}

// postsWith returns every posted request whose text starts with prefix.
func (f *fakeChat) postsWith(prefix string) []remote.PostMessageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []remote.PostMessageRequest
	for _, p := range f.posts {
		if strings.HasPrefix(p.Message, prefix) {
			out = append(out, p)
		}
	}
	return out
}

var (
	errNotFound = &remote.StatusError{Op: "get document", StatusCode: 404}
	errQuota    = &remote.StatusError{Op: "submit edit", StatusCode: 429}
)
