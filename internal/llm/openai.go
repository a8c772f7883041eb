package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// DefaultModel is used when Settings.Model is empty.
const DefaultModel = "gpt-4o-mini"

// ErrMissingAPIKey is returned by NewOpenAI when no API key is configured.
var ErrMissingAPIKey = errors.New("llm: openai api key missing")

// ErrEmptyChoices is returned when the model replies without any choice.
var ErrEmptyChoices = errors.New("llm: openai returned no choices")

// OpenAI implements Client with the official openai-go SDK (chat completions).
// The SDK's own retries are disabled; callers wrap Complete in their policy.
type OpenAI struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
}

var _ Client = (*OpenAI)(nil)

// NewOpenAI builds a client from settings. Any OpenAI-compatible endpoint
// works through Settings.BaseURL.
func NewOpenAI(s Settings, extra ...option.RequestOption) (*OpenAI, error) {
	if s.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	model := s.Model
	if model == "" {
		model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(s.APIKey),
		option.WithMaxRetries(0),
	}
	if s.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(s.BaseURL))
	}
	opts = append(opts, extra...)

	return &OpenAI{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: s.Temperature,
		maxTokens:   s.MaxTokens,
	}, nil
}

// Complete sends the system and user messages and asks for a JSON object.
func (o *OpenAI) Complete(ctx context.Context, prompt Prompt) (*Completion, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
	if o.temperature >= 0 {
		params.Temperature = openai.Float(o.temperature)
	}
	if o.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(o.maxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyChoices
	}
	return &Completion{
		Content:     resp.Choices[0].Message.Content,
		TotalTokens: int(resp.Usage.TotalTokens),
	}, nil
}
