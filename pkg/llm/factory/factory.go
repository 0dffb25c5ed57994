package factory

import (
	"context"
	"fmt"
	"time"

	"career-chat-be/pkg/llm"
	"career-chat-be/pkg/llm/gemini"
	"career-chat-be/pkg/llm/huggingface"
	"career-chat-be/pkg/llm/ollama"
)

type Config struct {
	Provider string // "gemini" | "ollama" | "huggingface"
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// DefaultModel is used when Config.Model is empty. Unknown providers get "".
func DefaultModel(provider string) string {
	switch provider {
	case "gemini", "":
		return gemini.DefaultModel
	case "ollama":
		return ollama.DefaultModel
	case "huggingface":
		return huggingface.DefaultModel
	default:
		return ""
	}
}

func NewLLMProvider(ctx context.Context, cfg Config) (llm.LLMProvider, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultModel(cfg.Provider)
	}

	switch cfg.Provider {
	case "gemini", "":
		p, err := gemini.NewGeminiProvider(ctx, gemini.Config{
			APIKey:  cfg.APIKey,
			Model:   model,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		p := ollama.NewOllamaProvider(baseURL, model)
		if cfg.Timeout > 0 {
			p.Client.Timeout = cfg.Timeout
		}
		return p, nil
	case "huggingface":
		p, err := huggingface.NewProvider(cfg.APIKey, cfg.BaseURL, model, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
