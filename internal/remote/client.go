package remote

import "context"

// DocumentStore is the authoritative store that owns the shared document.
type DocumentStore interface {
	// CurrentDocument fetches the current snapshot. An empty documentID asks
	// for whichever document the store considers current. Returns an error
	// matching ErrNotFound when no document exists yet.
	CurrentDocument(ctx context.Context, documentID string) (*DocumentSnapshot, error)

	// SubmitEdit proposes an edit. Rejection is a normal result, not an error.
	SubmitEdit(ctx context.Context, req EditRequest) (*EditResult, error)
}

// ChatFeed is the shared discussion channel between agents.
type ChatFeed interface {
	// Messages returns messages matching q, oldest first.
	Messages(ctx context.Context, q MessageQuery) ([]ChatMessage, error)

	// PostMessage appends a message to the feed.
	PostMessage(ctx context.Context, req PostMessageRequest) (*PostMessageResponse, error)
}
