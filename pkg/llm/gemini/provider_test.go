package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"career-chat-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestNewGeminiProvider_RequiresKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), Config{})
	assert.ErrorIs(t, err, llm.ErrMissingCredential)
}

func TestToSchema(t *testing.T) {
	schema := toSchema(&llm.JSONSchema{
		Properties: map[string]string{"title": "short title", "response": "answer"},
		Required:   []string{"title", "response"},
	})
	assert.Equal(t, genai.TypeObject, schema.Type)
	require.Contains(t, schema.Properties, "title")
	assert.Equal(t, genai.TypeString, schema.Properties["title"].Type)
	assert.Equal(t, []string{"title", "response"}, schema.Required)
}

func TestChat_MapsRolesAndSystemInstruction(t *testing.T) {
	received := make(chan map[string]interface{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		received <- body
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"title\":\"t\",\"response\":\"r\"}"}]}}]}`))
	}))
	defer srv.Close()

	p, err := NewGeminiProvider(context.Background(), Config{APIKey: "key", Model: "gemini-test", BaseURL: srv.URL})
	require.NoError(t, err)

	out, err := p.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "be a counselor"},
		{Role: llm.RoleUser, Content: "hi"},
		{Role: llm.RoleAssistant, Content: "hello"},
		{Role: llm.RoleUser, Content: "help"},
	}, llm.WithJSONResponse(&llm.JSONSchema{Required: []string{"title"}}))
	require.NoError(t, err)
	assert.Equal(t, `{"title":"t","response":"r"}`, out)

	body := <-received
	contents, ok := body["contents"].([]interface{})
	require.True(t, ok)
	require.Len(t, contents, 3)
	assert.Equal(t, "model", contents[1].(map[string]interface{})["role"])
	assert.Contains(t, body, "systemInstruction")
	cfg, ok := body["generationConfig"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "application/json", cfg["responseMimeType"])
}

func TestChat_NoUserContent(t *testing.T) {
	p := &GeminiProvider{modelName: DefaultModel}
	_, err := p.Chat(context.Background(), []llm.Message{{Role: llm.RoleSystem, Content: "only system"}})
	assert.Error(t, err)
}
