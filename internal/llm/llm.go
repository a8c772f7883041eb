// Package llm abstracts the generative model the agent asks for edits.
package llm

import "context"

// Prompt is the pair of messages sent to the model.
type Prompt struct {
	System string
	User   string
}

// Completion is the model's reply and the tokens it cost.
type Completion struct {
	Content     string
	TotalTokens int
}

// Client requests a JSON object completion for a prompt.
type Client interface {
	Complete(ctx context.Context, prompt Prompt) (*Completion, error)
}

// Settings configures a concrete model client.
type Settings struct {
	APIKey      string
	BaseURL     string
	Model       string

	// Temperature is sent as is, zero included; a negative value leaves the
	// provider default in place.
	Temperature float64

	// MaxTokens caps the reply; zero leaves the provider default.
	MaxTokens int
}
