// Package llm turns release comparisons into prose through a language model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/runtime-release-mapper/pkg/config"
)

// DisabledNotice is the analysis text used when no API key is configured.
const DisabledNotice = "Claude API key not provided. Skipping AI analysis."

type Summarizer interface {
	// Summarize sends prompt to the model and returns its text answer.
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Disabled answers every prompt with DisabledNotice.
type Disabled struct{}

func (Disabled) Summarize(context.Context, string) (string, error) {
	return DisabledNotice, nil
}

type AnthropicSummarizer struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewSummarizer returns a Claude-backed summarizer, or Disabled when cfg has no API key.
func NewSummarizer(cfg config.LLM, opts ...option.RequestOption) Summarizer {
	if cfg.APIKey == "" {
		return Disabled{}
	}
	opts = append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	return &AnthropicSummarizer{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
	}
}

func (s *AnthropicSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	msg, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: s.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("create message: %w", err)
	}

	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", errors.New("model returned no text")
	}
	return strings.Join(parts, "\n"), nil
}
