package agent

import (
	"context"
	"strings"

	"github.com/dusk-indust/coauthor/internal/remote"
)

// DefaultSummaryMessages bounds how many chat messages a summary renders.
const DefaultSummaryMessages = 20

// NoMessagesPlaceholder stands in for an empty chat in the model prompt.
const NoMessagesPlaceholder = "(no messages)"

// ChatContext fetches chat messages newer than a watermark.
type ChatContext struct {
	feed       remote.ChatFeed
	documentID string
	limit      int
}

// NewChatContext returns a ChatContext scoped to documentID (empty for any)
// that asks the feed for at most limit messages per fetch (0 for the
// service default).
func NewChatContext(feed remote.ChatFeed, documentID string, limit int) *ChatContext {
	return &ChatContext{feed: feed, documentID: documentID, limit: limit}
}

// FetchSince returns messages newer than watermark and the advanced
// watermark. With no new messages the watermark is returned unchanged.
func (c *ChatContext) FetchSince(ctx context.Context, watermark string) ([]remote.ChatMessage, string, error) {
	msgs, err := c.feed.Messages(ctx, remote.MessageQuery{
		Since:      watermark,
		DocumentID: c.documentID,
		Limit:      c.limit,
	})
	if err != nil {
		return nil, watermark, err
	}
	if n := len(msgs); n > 0 && msgs[n-1].Timestamp != "" {
		watermark = msgs[n-1].Timestamp
	}
	return msgs, watermark, nil
}

// Summarize renders the newest maxMessages messages, oldest first, one per
// line as "[role] agentId: text". The role prefix is omitted for messages
// without a role. An empty input yields NoMessagesPlaceholder.
func Summarize(msgs []remote.ChatMessage, maxMessages int) string {
	if maxMessages <= 0 {
		maxMessages = DefaultSummaryMessages
	}
	if len(msgs) > maxMessages {
		msgs = msgs[len(msgs)-maxMessages:]
	}
	if len(msgs) == 0 {
		return NoMessagesPlaceholder
	}

	var sb strings.Builder
	for i, m := range msgs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		if m.AgentRole != "" {
			sb.WriteString("[" + m.AgentRole + "] ")
		}
		sb.WriteString(m.AgentID)
		sb.WriteString(": ")
		sb.WriteString(m.Message)
	}
	return sb.String()
}
