package generate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o-mini"

	// DefaultTimeout bounds a single generation call, retries included per
	// attempt.
	DefaultTimeout = 120 * time.Second

	maxRetries  = 3
	baseBackoff = 2 * time.Second
	maxBackoff  = 32 * time.Second
)

var (
	// ErrAPIKeyNotSet means the generation client cannot be constructed.
	ErrAPIKeyNotSet = errors.New("generation API key not set")

	// ErrMaxRetriesExceeded is returned after repeated rate-limit rejections.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// CompletionRequest is one prompt sent to the generative model.
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Generator produces text from a prompt. Task adapters depend on this
// interface only; tests substitute a stub.
type Generator interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Client calls the OpenAI chat completions API with retry on rate limits.
type Client struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewClient builds a Client for the given API key and model. An empty model
// selects DefaultModel.
func NewClient(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		timeout: DefaultTimeout,
	}, nil
}

// SetTimeout overrides the per-call timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// Complete sends the prompt and returns the model's text. Rate-limit errors
// (HTTP 429) are retried with exponential backoff; other API errors fail
// immediately.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * baseBackoff
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		params := openai.ChatCompletionNewParams{
			Model: shared.ChatModel(c.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(req.System),
				openai.UserMessage(req.Prompt),
			},
			Temperature: openai.Float(req.Temperature),
		}
		if req.MaxTokens > 0 {
			params.MaxTokens = openai.Int(int64(req.MaxTokens))
		}

		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				continue
			}
			return "", fmt.Errorf("generation API call failed: %w", err)
		}
		if len(completion.Choices) == 0 {
			return "", errors.New("no completion choices returned")
		}
		return completion.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("%w: %v", ErrMaxRetriesExceeded, lastErr)
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

var _ Generator = (*Client)(nil)
