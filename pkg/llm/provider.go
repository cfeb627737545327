package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
	System      string // System role text prepended to the history
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithSystem(system string) Option {
	return func(o *Options) {
		o.System = system
	}
}

// Provider defines the contract for any LLM backend
type Provider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}

// ModelLister is implemented by providers that can report which models are
// currently loaded, so agent roles can be resolved against availability.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// ResolveModel picks the best match for a preferred model among the
// available ones: exact match, then prefix match in either direction, then
// the first available model.
func ResolveModel(preferred string, available []string) string {
	for _, m := range available {
		if m == preferred {
			return m
		}
	}
	for _, m := range available {
		if hasPrefix(m, preferred) || hasPrefix(preferred, baseName(m)) {
			return m
		}
	}
	if len(available) > 0 {
		return available[0]
	}
	return preferred
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func baseName(model string) string {
	for i := 0; i < len(model); i++ {
		if model[i] == ':' {
			return model[:i]
		}
	}
	return model
}
