package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alebed/magebot/internal/log"
	"github.com/alebed/magebot/internal/provider"
)

func newClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(Config{
		APIKey:     "sk-or-test",
		BaseURL:    srv.URL,
		Referer:    "https://example.test/magebot",
		AppTitle:   "Magebot",
		HTTPClient: srv.Client(),
		Logger:     log.NewNop(),
	})
}

func TestClient_Send_Success(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-or-test", r.Header.Get("Authorization"))
		assert.Equal(t, "https://example.test/magebot", r.Header.Get("HTTP-Referer"))
		assert.Equal(t, "Magebot", r.Header.Get("X-Title"))

		var payload provider.CompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "tngtech/deepseek-r1t2-chimera:free", payload.Model)
		assert.Equal(t, 0.7, payload.Temperature)
		assert.Equal(t, 2000, payload.MaxTokens)
		assert.False(t, payload.Stream)

		fmt.Fprint(w, `{
			"choices": [{"message": {"role": "assistant", "content": "answer"}}],
			"usage": {"prompt_tokens": 20, "completion_tokens": 5, "total_tokens": 25}
		}`)
	})

	reply, err := client.Send(context.Background(), provider.ChatRequest{
		Messages:    []provider.Message{{Role: provider.RoleUser, Content: "question"}},
		Model:       "deepseek",
		Temperature: 0.7,
		MaxTokens:   2000,
	})

	require.NoError(t, err)
	assert.Equal(t, "answer", reply.Content)
	require.NotNil(t, reply.Usage)
	assert.Equal(t, 25, reply.Usage.TotalTokens)
}

func TestClient_Send_UnknownModelFallsBack(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var payload provider.CompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, models[DefaultModelKey], payload.Model)
		fmt.Fprint(w, `{"choices": [{"message": {"role": "assistant", "content": "ok"}}]}`)
	})

	_, err := client.Send(context.Background(), provider.ChatRequest{
		Messages: []provider.Message{{Role: provider.RoleUser, Content: "q"}},
		Model:    "no-such-model",
	})
	require.NoError(t, err)
}

func TestClient_Send_AuthFailure_NoRetry(t *testing.T) {
	var attempts atomic.Int64
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, `{"error": "invalid key"}`, http.StatusUnauthorized)
	})

	_, err := client.Send(context.Background(), provider.ChatRequest{
		Messages: []provider.Message{{Role: provider.RoleUser, Content: "q"}},
	})

	var perr *provider.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusUnauthorized, perr.Status)
	assert.Equal(t, int64(1), attempts.Load(), "static-key backend has no auth retry path")
}

func TestClient_Send_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := New(Config{APIKey: "k", BaseURL: srv.URL, Logger: log.NewNop()})
	srv.Close() // connection refused from here on

	_, err := client.Send(context.Background(), provider.ChatRequest{
		Messages: []provider.Message{{Role: provider.RoleUser, Content: "q"}},
	})

	var perr *provider.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Zero(t, perr.Status)
}

func TestKnownModel(t *testing.T) {
	assert.True(t, KnownModel("deepseek"))
	assert.True(t, KnownModel("nova2"))
	assert.True(t, KnownModel("gemma"))
	assert.False(t, KnownModel("gpt-4"))
}

func TestModelDisplayName(t *testing.T) {
	assert.Equal(t, "DeepSeek R1T2", ModelDisplayName("deepseek"))
	assert.Equal(t, "Nova 2 Lite", ModelDisplayName("nova2"))
	assert.Equal(t, "Google Gemma", ModelDisplayName("gemma"))
	assert.Equal(t, "mystery", ModelDisplayName("mystery"))
}
