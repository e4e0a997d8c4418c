package llm

import (
	"context"
	"sync"
)

// MockCompleter is a configurable mock for testing translator behaviour.
// Set CompleteFunc to control replies; calls are recorded for verification.
type MockCompleter struct {
	// CompleteFunc is called when Complete is invoked.
	// If nil, returns an empty result and nil error.
	CompleteFunc func(ctx context.Context, systemMessage, prompt string) (*CompletionResult, error)

	// ModelName is returned by Model. Defaults to "mock-model".
	ModelName string

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records one Complete call.
type MockCall struct {
	SystemMessage string
	Prompt        string
}

// NewMockCompleter returns a mock that answers every call with reply.
func NewMockCompleter(reply string) *MockCompleter {
	return &MockCompleter{
		CompleteFunc: func(context.Context, string, string) (*CompletionResult, error) {
			return &CompletionResult{Content: reply}, nil
		},
	}
}

// Complete implements Completer.
func (m *MockCompleter) Complete(ctx context.Context, systemMessage, prompt string) (*CompletionResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{SystemMessage: systemMessage, Prompt: prompt})
	fn := m.CompleteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, systemMessage, prompt)
	}
	return &CompletionResult{}, nil
}

// Model implements Completer.
func (m *MockCompleter) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

// Endpoint implements Completer.
func (m *MockCompleter) Endpoint() string {
	return "http://mock-endpoint"
}

// Calls returns the recorded calls in order.
func (m *MockCompleter) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// Ensure MockCompleter implements Completer at compile time.
var _ Completer = (*MockCompleter)(nil)
