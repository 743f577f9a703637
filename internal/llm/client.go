package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"govbid/internal/logger"
)

var ErrEmptyResponse = errors.New("llm returned no text")

// Request is a single-turn completion.
type Request struct {
	Model     string
	MaxTokens int
	Prompt    string
}

// Client is the LLM surface the pipelines use.
type Client interface {
	GenerateText(ctx context.Context, req Request) (string, error)
}

type Config struct {
	APIKey string
	// BaseURL overrides the API host; empty means the public endpoint.
	BaseURL string
}

type client struct {
	api anthropic.Client
	log *logger.Logger
}

// NewClient returns nil when no API key is configured, which callers treat as
// "no LLM available".
func NewClient(cfg Config, log *logger.Logger) Client {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// a failed call is treated as "no data" by the pipelines
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &client{
		api: anthropic.NewClient(opts...),
		log: log.With("component", "AnthropicClient"),
	}
}

func (c *client) GenerateText(ctx context.Context, req Request) (string, error) {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			c.log.Warn("Anthropic request rejected", "model", req.Model, "status", apiErr.StatusCode)
			return "", fmt.Errorf("anthropic: status %d: %w", apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", ErrEmptyResponse
	}

	c.log.Debug("Anthropic completion",
		"model", req.Model,
		"input_tokens", msg.Usage.InputTokens,
		"output_tokens", msg.Usage.OutputTokens,
	)
	return b.String(), nil
}
