package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"career-chat-be/pkg/llm"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-1.5-flash"

type Config struct {
	APIKey  string
	Model   string
	BaseURL string // Override for proxies and tests
	Timeout time.Duration
}

// GeminiProvider talks to the Gemini API through the genai SDK.
type GeminiProvider struct {
	client    *genai.Client
	modelName string
}

var _ llm.LLMProvider = &GeminiProvider{}

// NewGeminiProvider fails with llm.ErrMissingCredential when no API key is configured.
func NewGeminiProvider(ctx context.Context, cfg Config) (*GeminiProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, llm.ErrMissingCredential
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultModel
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiProvider{
		client:    client,
		modelName: modelName,
	}, nil
}

func (g *GeminiProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.ApplyOptions(opts...)

	var system []string
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case llm.RoleSystem:
			system = append(system, m.Content)
		case llm.RoleAssistant, "model":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return "", fmt.Errorf("gemini: no user content to send")
	}

	temp := float32(options.Temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	if options.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(options.MaxTokens)
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	if options.JSONSchema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = toSchema(options.JSONSchema)
	}

	model := g.modelName
	if options.Model != "" {
		model = options.Model
	}

	res, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := res.Text()
	if strings.TrimSpace(text) == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

func (g *GeminiProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return g.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

func toSchema(s *llm.JSONSchema) *genai.Schema {
	props := make(map[string]*genai.Schema, len(s.Properties))
	for name, desc := range s.Properties {
		props[name] = &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   s.Required,
	}
}
