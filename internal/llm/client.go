// Package llm provides chat-completion clients for the upstream model
// providers. Callers see one Client interface; provider SDKs and transport
// retries stay behind it.
package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pulseplan-ai/pulseplan/internal/config"
)

// Message roles in provider-neutral form.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat message.
type Message struct {
	Role    string
	Content string
}

// Request is a single completion request.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int64
}

// Client is the minimal completion surface the service needs.
type Client interface {
	// Complete sends the request and returns the model's text output,
	// trimmed. An empty output is reported as an error.
	Complete(ctx context.Context, req Request) (string, error)
}

// New builds the configured provider client wrapped with transport retries.
func New(cfg config.LLMConfig, logger *slog.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: missing API key")
	}

	var inner Client
	switch cfg.Provider {
	case "openai":
		inner = NewOpenAI(cfg.APIKey, cfg.BaseURL)
	case "anthropic":
		inner = NewAnthropic(cfg.APIKey)
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", cfg.Provider)
	}

	return WithRetries(inner, cfg.MaxRetries, logger), nil
}
