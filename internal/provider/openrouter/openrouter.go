// Package openrouter implements the stateless-key OpenRouter backend.
//
// OpenRouter authenticates every request with a static API key, so there is
// no credential lifecycle and no retry-on-auth path: the first failure of a
// request is final.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/alebed/magebot/internal/log"
	"github.com/alebed/magebot/internal/provider"
)

// Backend is the backend identifier.
// Must match config.BackendOpenRouter.
const Backend = "openrouter"

// DefaultModelKey selects the model used when a session has no preference.
const DefaultModelKey = "deepseek"

// models is the closed catalog of selectable model keys. Preference
// validation in the session store relies on KnownModel, so a key accepted
// there always resolves here.
var models = map[string]string{
	"deepseek": "tngtech/deepseek-r1t2-chimera:free",
	"nova2":    "amazon/nova-2-lite-v1:free",
	"gemma":    "google/gemma-3n-e4b-it:free",
}

// displayNames maps model keys to user-facing names for settings output.
var displayNames = map[string]string{
	"deepseek": "DeepSeek R1T2",
	"nova2":    "Nova 2 Lite",
	"gemma":    "Google Gemma",
}

// KnownModel reports whether key is in the model catalog.
func KnownModel(key string) bool {
	_, ok := models[key]
	return ok
}

// ModelDisplayName returns the user-facing name for a model key, or the key
// itself when unknown.
func ModelDisplayName(key string) string {
	if name, ok := displayNames[key]; ok {
		return name
	}
	return key
}

// Config contains the parameters for an OpenRouter client.
type Config struct {
	APIKey  string // static API key
	BaseURL string // e.g. "https://openrouter.ai/api/v1"

	// Referer and AppTitle are attribution headers OpenRouter asks clients
	// to send (HTTP-Referer, X-Title).
	Referer  string
	AppTitle string

	// HTTPClient may be nil to use a default tuned client.
	HTTPClient *http.Client
	// Logger may be nil to discard logs.
	Logger log.Logger
}

// Client is the OpenRouter provider. Safe for concurrent use.
type Client struct {
	apiKey     string
	chatURL    string
	referer    string
	appTitle   string
	httpClient *http.Client
	logger     log.Logger
}

// New creates an OpenRouter client.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = provider.NewHTTPClient(0)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Client{
		apiKey:     cfg.APIKey,
		chatURL:    cfg.BaseURL + "/chat/completions",
		referer:    cfg.Referer,
		appTitle:   cfg.AppTitle,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Name implements provider.Provider.
func (c *Client) Name() string { return Backend }

// Send implements provider.Provider. Unknown model keys fall back to the
// default catalog entry rather than failing the turn.
func (c *Client) Send(ctx context.Context, req provider.ChatRequest) (*provider.Reply, error) {
	model, ok := models[req.Model]
	if !ok {
		model = models[DefaultModelKey]
	}

	payload := provider.CompletionRequest{
		Model:       model,
		Messages:    provider.OutboundMessages(req),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("HTTP-Referer", c.referer)
	httpReq.Header.Set("X-Title", c.appTitle)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &provider.ProviderError{Body: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &provider.ProviderError{Status: resp.StatusCode, Body: "reading chat response: " + err.Error(), Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("chat request failed", "status", resp.StatusCode, "model", model)
		return nil, &provider.ProviderError{Status: resp.StatusCode, Body: string(respBody)}
	}

	reply, err := provider.ParseReply(respBody)
	if err != nil {
		return nil, fmt.Errorf("openrouter: %w", err)
	}

	c.logger.Debug("chat request completed", "model", model,
		"usage", reply.Usage != nil)
	return reply, nil
}
