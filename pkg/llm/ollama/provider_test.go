package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"career-chat-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChat_SendsHistoryAndJSONMode(t *testing.T) {
	received := make(chan ollamaChatRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req ollamaChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		received <- req
		_ = json.NewEncoder(w).Encode(ollamaChatResponse{Message: ollamaMessage{Role: "assistant", Content: `{"title":"t","response":"r"}`}, Done: true})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL+"/", "llama3")
	out, err := p.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "be helpful"},
		{Role: "model", Content: "earlier"},
		{Role: llm.RoleUser, Content: "hi"},
	}, llm.WithJSONResponse(&llm.JSONSchema{Required: []string{"title"}}), llm.WithMaxTokens(64))
	require.NoError(t, err)
	assert.Equal(t, `{"title":"t","response":"r"}`, out)

	got := <-received
	assert.Equal(t, "llama3", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, "json", got.Format)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, llm.RoleAssistant, got.Messages[1].Role)
	require.NotNil(t, got.Options)
	assert.Equal(t, 64, got.Options.NumPredict)
}

func reply(status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestChat_Errors(t *testing.T) {
	srv := reply(http.StatusServiceUnavailable, "overloaded")
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "llama3").Generate(context.Background(), "hi")
	var statusErr *llm.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, "overloaded", statusErr.Body)

	blank := reply(http.StatusOK, `{"message":{"role":"assistant","content":"   "},"done":true}`)
	defer blank.Close()

	_, err = NewOllamaProvider(blank.URL, "llama3").Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}
