package llm

import (
	"context"
	"fmt"
)

// Options selects and configures a structured-generation provider.
type Options struct {
	Provider string // "gemini" (default) or "openai"

	GeminiAPIKey  string
	GeminiModelID string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModelID string
}

// NewClient builds the configured provider client.
func NewClient(ctx context.Context, opts Options) (Client, error) {
	switch opts.Provider {
	case "", "gemini":
		return NewGeminiClient(ctx, opts.GeminiAPIKey, opts.GeminiModelID)
	case "openai", "custom-openai":
		return NewOpenAIClient(opts.OpenAIAPIKey, opts.OpenAIBaseURL, opts.OpenAIModelID)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", opts.Provider)
	}
}
