package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dusk-indust/coauthor/internal/retry"
)

// Compile-time interface checks.
var (
	_ DocumentStore = (*HTTPClient)(nil)
	_ ChatFeed      = (*HTTPClient)(nil)
)

var (
	// ErrNotFound is matched by a 404 from the document store. For the
	// current-document endpoint it means no document exists yet.
	ErrNotFound = errors.New("remote: not found")

	// ErrQuotaExceeded is matched by a 429 from either service. It signals
	// that the document's or agent's budget is spent and is never retried.
	ErrQuotaExceeded = errors.New("remote: quota exceeded")
)

// Service paths, relative to the service base URL.
const (
	pathCurrentDocument = "/api/document/current"
	pathEdits           = "/api/edits"
	pathChatMessages    = "/api/chat/messages"
)

// maxErrorBody bounds how much of an error response is kept in StatusError.
const maxErrorBody = 512

// StatusError is a non-2xx response from a remote service.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("remote: %s: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("remote: %s: HTTP %d", e.Op, e.StatusCode)
}

// Is lets errors.Is match ErrNotFound and ErrQuotaExceeded by status code.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrQuotaExceeded:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// HTTPClient talks to the document store and the chat service over
// bearer-authenticated HTTP/JSON. Every call goes through the retry policy.
type HTTPClient struct {
	http    *http.Client
	textURL string
	chatURL string
	token   string
	policy  retry.Policy
	logger  *slog.Logger
	agentID string
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.http = hc
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) ClientOption {
	return func(c *HTTPClient) {
		c.token = token
	}
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p retry.Policy) ClientOption {
	return func(c *HTTPClient) {
		c.policy = p
	}
}

// WithLogger sets the logger used for retry notices. The agentID is added to
// every record.
func WithLogger(logger *slog.Logger, agentID string) ClientOption {
	return func(c *HTTPClient) {
		c.logger = logger
		c.agentID = agentID
	}
}

// NewHTTPClient creates a client for the text service at textURL and the
// chat service at chatURL.
func NewHTTPClient(textURL, chatURL string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		textURL: strings.TrimRight(textURL, "/"),
		chatURL: strings.TrimRight(chatURL, "/"),
		policy:  retry.DefaultPolicy(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CurrentDocument fetches GET /api/document/current. A 404 is returned at
// once as an error matching ErrNotFound.
func (c *HTTPClient) CurrentDocument(ctx context.Context, documentID string) (*DocumentSnapshot, error) {
	q := url.Values{}
	if documentID != "" {
		q.Set("document_id", documentID)
	}
	endpoint := c.textURL + pathCurrentDocument

	return retry.DoValue(ctx, c.retryPolicy("get document"), func(ctx context.Context) (*DocumentSnapshot, error) {
		var doc DocumentSnapshot
		if err := c.do(ctx, "get document", http.MethodGet, endpoint, q, nil, &doc); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, retry.MarkFatal(err)
			}
			return nil, err
		}
		return &doc, nil
	})
}

// SubmitEdit posts an edit to POST /api/edits.
func (c *HTTPClient) SubmitEdit(ctx context.Context, req EditRequest) (*EditResult, error) {
	endpoint := c.textURL + pathEdits

	return retry.DoValue(ctx, c.retryPolicy("submit edit"), func(ctx context.Context) (*EditResult, error) {
		var res EditResult
		if err := c.do(ctx, "submit edit", http.MethodPost, endpoint, nil, req, &res); err != nil {
			return nil, err
		}
		return &res, nil
	})
}

// Messages fetches GET /api/chat/messages.
func (c *HTTPClient) Messages(ctx context.Context, mq MessageQuery) ([]ChatMessage, error) {
	q := url.Values{}
	if mq.Since != "" {
		q.Set("since", mq.Since)
	}
	if mq.DocumentID != "" {
		q.Set("document_id", mq.DocumentID)
	}
	if mq.Limit > 0 {
		q.Set("limit", strconv.Itoa(mq.Limit))
	}
	endpoint := c.chatURL + pathChatMessages

	return retry.DoValue(ctx, c.retryPolicy("get messages"), func(ctx context.Context) ([]ChatMessage, error) {
		var msgs []ChatMessage
		if err := c.do(ctx, "get messages", http.MethodGet, endpoint, q, nil, &msgs); err != nil {
			return nil, err
		}
		return msgs, nil
	})
}

// PostMessage posts to POST /api/chat/messages.
func (c *HTTPClient) PostMessage(ctx context.Context, req PostMessageRequest) (*PostMessageResponse, error) {
	endpoint := c.chatURL + pathChatMessages

	return retry.DoValue(ctx, c.retryPolicy("post message"), func(ctx context.Context) (*PostMessageResponse, error) {
		var ack PostMessageResponse
		if err := c.do(ctx, "post message", http.MethodPost, endpoint, nil, req, &ack); err != nil {
			return nil, err
		}
		return &ack, nil
	})
}

// retryPolicy returns the client policy with retry logging attached.
func (c *HTTPClient) retryPolicy(op string) retry.Policy {
	p := c.policy
	next := p.OnRetry
	p.OnRetry = func(attempt int, delay time.Duration, err error) {
		c.logger.Warn("retrying request",
			"agent_id", c.agentID,
			"op", op,
			"attempt", attempt,
			"max_attempts", p.MaxAttempts,
			"delay", delay,
			"error", err)
		if next != nil {
			next(attempt, delay, err)
		}
	}
	return p
}

// do performs one HTTP round-trip and decodes a JSON response into result.
// Errors that must not be retried are marked fatal here.
func (c *HTTPClient) do(ctx context.Context, op, method, endpoint string, query url.Values, body, result any) error {
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return retry.MarkFatal(fmt.Errorf("remote: %s: marshal request: %w", op, err))
		}
		reader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return retry.MarkFatal(fmt.Errorf("remote: %s: create request: %w", op, err))
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("remote: %s: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("remote: %s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &StatusError{Op: op, StatusCode: resp.StatusCode, Body: truncate(string(respBody), maxErrorBody)}
		if resp.StatusCode == http.StatusTooManyRequests {
			return retry.MarkFatal(serr)
		}
		return serr
	}

	if result != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("remote: %s: decode response: %w", op, err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
