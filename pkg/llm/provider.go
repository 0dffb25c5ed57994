package llm

import (
	"context"
	"errors"
	"fmt"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrMissingCredential means the provider cannot be used at all. Callers must not retry.
	ErrMissingCredential = errors.New("llm: provider credential is not configured")

	// ErrEmptyResponse is returned when the provider answered without any text.
	ErrEmptyResponse = errors.New("llm: empty response from provider")
)

// StatusError is returned when the provider answers with a non-success HTTP status.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error: status %d, body: %s", e.Provider, e.StatusCode, e.Body)
}

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// JSONSchema describes a flat object of string fields the model must return.
type JSONSchema struct {
	Properties map[string]string // field name -> description
	Required   []string
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string      // Override default model
	JSONSchema  *JSONSchema // Non-nil requests structured JSON output
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

func WithJSONResponse(schema *JSONSchema) Option {
	return func(o *Options) {
		o.JSONSchema = schema
	}
}

// ApplyOptions resolves opts on top of the package defaults.
func ApplyOptions(opts ...Option) *Options {
	options := &Options{
		Temperature: 0.7,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}
