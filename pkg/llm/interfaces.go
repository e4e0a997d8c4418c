// Package llm turns questions into SQL with an OpenAI-compatible or Anthropic model.
package llm

import (
	"context"
)

// Completer sends one system+user exchange to a model.
// Use this interface for dependency injection to enable mocking in tests.
type Completer interface {
	// Complete returns the model's reply to prompt under systemMessage.
	Complete(ctx context.Context, systemMessage, prompt string) (*CompletionResult, error)

	// Model returns the configured model name.
	Model() string

	// Endpoint returns the configured endpoint.
	Endpoint() string
}

// CompletionResult is a model reply with usage stats.
type CompletionResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Ensure the clients implement Completer at compile time.
var (
	_ Completer = (*Client)(nil)
	_ Completer = (*AnthropicClient)(nil)
)
