package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alebed/magebot/internal/bot"
	"github.com/alebed/magebot/internal/log"
	"github.com/alebed/magebot/internal/provider"
	"github.com/alebed/magebot/internal/session"
	"github.com/alebed/magebot/internal/summary"
)

type stubProvider struct {
	reply func(req provider.ChatRequest) (*provider.Reply, error)
}

func (s *stubProvider) Name() string { return "openrouter" }

func (s *stubProvider) Send(_ context.Context, req provider.ChatRequest) (*provider.Reply, error) {
	return s.reply(req)
}

func newTestServer(t *testing.T, stub *stubProvider) *Server {
	t.Helper()

	store := session.NewStore(session.Config{
		GeneralCapacity: 10,
		RecipeCapacity:  30,
		SubmitWindow:    5,
		DefaultBackend:  "openrouter",
		DefaultModel:    "deepseek",
		MaxTokens:       4000,
	})
	summaries := summary.NewStore(filepath.Join(t.TempDir(), "summaries.json"), log.NewNop())
	orch := bot.New(store, summaries, map[string]provider.Provider{"openrouter": stub}, log.NewNop())

	srv, err := NewServer(ServerConfig{
		Bot:       orch,
		Logger:    log.NewNop(),
		RateBurst: 100,
	})
	require.NoError(t, err)
	return srv
}

func postJSON(t *testing.T, srv *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNewServer_RequiresBot(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	require.Error(t, err)
}

func TestChat_Success(t *testing.T) {
	srv := newTestServer(t, &stubProvider{
		reply: func(provider.ChatRequest) (*provider.Reply, error) {
			return &provider.Reply{
				Content: "hi",
				Usage:   &provider.Usage{TotalTokens: 12},
			}, nil
		},
	})

	rec := postJSON(t, srv, "/api/v1/chat", `{"user_id": "u1", "text": "hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hi", resp.Reply)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 12, resp.Usage.TotalTokens)
	assert.False(t, resp.Degraded)
}

func TestChat_BackendFailureDegrades(t *testing.T) {
	srv := newTestServer(t, &stubProvider{
		reply: func(provider.ChatRequest) (*provider.Reply, error) {
			return nil, &provider.ProviderError{Status: 503, Body: "down"}
		},
	})

	rec := postJSON(t, srv, "/api/v1/chat", `{"user_id": "u1", "text": "hello"}`)
	require.Equal(t, http.StatusOK, rec.Code, "degraded turns are still successful HTTP exchanges")

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, bot.UnavailableNotice, resp.Reply)
	assert.True(t, resp.Degraded)
}

func TestChat_Validation(t *testing.T) {
	srv := newTestServer(t, &stubProvider{
		reply: func(provider.ChatRequest) (*provider.Reply, error) {
			return &provider.Reply{Content: "hi"}, nil
		},
	})

	tests := []struct {
		name string
		body string
	}{
		{name: "missing user_id", body: `{"text": "hello"}`},
		{name: "missing text", body: `{"user_id": "u1"}`},
		{name: "blank text", body: `{"user_id": "u1", "text": "   "}`},
		{name: "not json", body: `hello`},
		{name: "unknown field", body: `{"user_id": "u1", "text": "x", "admin": true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, srv, "/api/v1/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCommand_Success(t *testing.T) {
	srv := newTestServer(t, &stubProvider{})

	rec := postJSON(t, srv, "/api/v1/command", `{"user_id": "u1", "command": "mode", "argument": "guided"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp commandResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Mode set to guided.", resp.Reply)
}

func TestCommand_ValidationFailures(t *testing.T) {
	srv := newTestServer(t, &stubProvider{})

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{
			name:     "bad temperature",
			body:     `{"user_id": "u1", "command": "temperature", "argument": "2.5"}`,
			wantCode: "validation_failed",
		},
		{
			name:     "bad mode",
			body:     `{"user_id": "u1", "command": "mode", "argument": "json"}`,
			wantCode: "validation_failed",
		},
		{
			name:     "unknown model",
			body:     `{"user_id": "u1", "command": "model", "argument": "gpt-4"}`,
			wantCode: "validation_failed",
		},
		{
			name:     "unknown command",
			body:     `{"user_id": "u1", "command": "dance", "argument": ""}`,
			wantCode: "unknown_command",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, srv, "/api/v1/command", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error)
		})
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &stubProvider{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestID_GeneratedAndEchoed(t *testing.T) {
	srv := newTestServer(t, &stubProvider{
		reply: func(provider.ChatRequest) (*provider.Reply, error) {
			return &provider.Reply{Content: "hi"}, nil
		},
	})

	rec := postJSON(t, srv, "/api/v1/chat", `{"user_id": "u1", "text": "hello"}`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"user_id": "u1", "text": "hello"}`))
	req.Header.Set("X-Request-ID", "client-supplied")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "client-supplied", rec.Header().Get("X-Request-ID"))
}

func TestRateLimit(t *testing.T) {
	store := session.NewStore(session.Config{
		GeneralCapacity: 10,
		RecipeCapacity:  30,
		SubmitWindow:    5,
		DefaultBackend:  "openrouter",
		DefaultModel:    "deepseek",
		MaxTokens:       4000,
	})
	summaries := summary.NewStore(filepath.Join(t.TempDir(), "summaries.json"), log.NewNop())
	orch := bot.New(store, summaries, map[string]provider.Provider{"openrouter": &stubProvider{
		reply: func(provider.ChatRequest) (*provider.Reply, error) {
			return &provider.Reply{Content: "hi"}, nil
		},
	}}, log.NewNop())

	srv, err := NewServer(ServerConfig{Bot: orch, Logger: log.NewNop(), RatePerSec: 0.001, RateBurst: 2})
	require.NoError(t, err)

	var limited bool
	for i := 0; i < 5; i++ {
		rec := postJSON(t, srv, "/api/v1/chat", fmt.Sprintf(`{"user_id": "u1", "text": "m%d"}`, i))
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			assert.Equal(t, "1", rec.Header().Get("Retry-After"))
		}
	}
	assert.True(t, limited, "burst of 2 must not survive 5 rapid requests")
}
