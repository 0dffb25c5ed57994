package huggingface

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"career-chat-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_RequiresKey(t *testing.T) {
	_, err := NewProvider(" ", "", "model", time.Second)
	assert.ErrorIs(t, err, llm.ErrMissingCredential)
}

func TestChat(t *testing.T) {
	received := make(chan chatRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer hf-key", r.Header.Get("Authorization"))
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		received <- req
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"answer"}}]}`))
	}))
	defer srv.Close()

	p, err := NewProvider("hf-key", srv.URL+"/v1", "mistral", time.Second)
	require.NoError(t, err)

	out, err := p.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
		llm.WithJSONResponse(&llm.JSONSchema{}), llm.WithTemperature(0.2))
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	got := <-received
	assert.Equal(t, "mistral", got.Model)
	assert.InDelta(t, 0.2, got.Temperature, 1e-9)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestChat_Errors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"non-200", http.StatusTooManyRequests, `{"error":{"message":"rate limited"}}`, func(t *testing.T, err error) {
			var statusErr *llm.StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
		}},
		{"no choices", http.StatusOK, `{"choices":[]}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, llm.ErrEmptyResponse)
		}},
		{"error body", http.StatusOK, `{"choices":[],"error":{"message":"model loading"}}`, func(t *testing.T, err error) {
			assert.ErrorContains(t, err, "model loading")
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			p, err := NewProvider("hf-key", srv.URL, "mistral", time.Second)
			require.NoError(t, err)
			_, err = p.Generate(context.Background(), "hi")
			tc.check(t, err)
		})
	}
}
