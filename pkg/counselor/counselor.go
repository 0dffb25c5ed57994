// Package counselor turns a user question plus recent conversation turns into a
// career-counselling answer with a short session title.
package counselor

import (
	"context"
	"errors"
	"fmt"

	"career-chat-be/pkg/llm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrUnavailable wraps every provider-side failure: transport errors, non-success
// statuses, empty bodies and replies no extractor could recover.
var ErrUnavailable = errors.New("counselor: AI service unavailable")

const DefaultHistoryLimit = 10

const SystemPrompt = `You are a professional Career Counselor.
Give practical, encouraging and specific guidance about careers, job searching, interviews, skills and professional growth.

Respond ONLY with valid JSON, no surrounding text:
{
  "title": "Brief descriptive title (max 60 chars, plain text)",
  "response": "Detailed markdown advice"
}`

var answerSchema = &llm.JSONSchema{
	Properties: map[string]string{
		"title":    "Brief descriptive plain-text title, at most 60 characters",
		"response": "Detailed career advice formatted as markdown",
	},
	Required: []string{"title", "response"},
}

type Answer struct {
	Title    string `json:"title"`
	Response string `json:"response"`
}

type Config struct {
	Temperature  float64
	MaxTokens    int
	HistoryLimit int
}

type Counselor struct {
	provider llm.LLMProvider
	cfg      Config
}

func New(provider llm.LLMProvider, cfg Config) *Counselor {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}
	return &Counselor{provider: provider, cfg: cfg}
}

// Ask sends message with history (oldest first) and returns a normalised answer.
func (c *Counselor) Ask(ctx context.Context, message string, history []llm.Message) (*Answer, error) {
	ctx, span := otel.Tracer("counselor").Start(ctx, "counselor.Ask")
	defer span.End()

	if c.provider == nil {
		span.SetStatus(codes.Error, "no provider")
		return nil, llm.ErrMissingCredential
	}

	prompt := BuildPrompt(message, history, c.cfg.HistoryLimit)
	span.SetAttributes(attribute.Int("counselor.history_len", len(prompt)-2))

	text, err := c.provider.Chat(ctx, prompt,
		llm.WithTemperature(c.cfg.Temperature),
		llm.WithMaxTokens(c.cfg.MaxTokens),
		llm.WithJSONResponse(answerSchema),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider call failed")
		if errors.Is(err, llm.ErrMissingCredential) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	answer, ok := Parse(text)
	if !ok {
		span.SetStatus(codes.Error, "unrecoverable reply")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, llm.ErrEmptyResponse)
	}
	return answer, nil
}

// BuildPrompt lays out [system, history..., user(message)] keeping the newest limit turns.
func BuildPrompt(message string, history []llm.Message, limit int) []llm.Message {
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}

	prompt := make([]llm.Message, 0, len(history)+2)
	prompt = append(prompt, llm.Message{Role: llm.RoleSystem, Content: SystemPrompt})
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == llm.RoleAssistant {
			role = llm.RoleAssistant
		}
		prompt = append(prompt, llm.Message{Role: role, Content: m.Content})
	}
	prompt = append(prompt, llm.Message{Role: llm.RoleUser, Content: message})
	return prompt
}
