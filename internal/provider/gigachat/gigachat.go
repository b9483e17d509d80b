// Package gigachat implements the token-based GigaChat backend.
//
// GigaChat authenticates with short-lived access tokens obtained by
// exchanging a long-lived authorization key (see Credentials). A request
// rejected as unauthorized forces one refresh and exactly one retry; the
// bound lives in provider.AuthRetryPolicy.
package gigachat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/alebed/magebot/internal/log"
	"github.com/alebed/magebot/internal/provider"
)

// Backend is the backend identifier.
// Must match config.BackendGigaChat.
const Backend = "gigachat"

// DefaultModel is the only chat model the personal API exposes.
const DefaultModel = "GigaChat"

// Config contains the parameters for a GigaChat client.
type Config struct {
	AuthKey  string // long-lived authorization key
	OAuthURL string // token exchange endpoint
	ChatURL  string // chat completions endpoint

	// HTTPClient may be nil to use a default tuned client.
	HTTPClient *http.Client
	// Logger may be nil to discard logs.
	Logger log.Logger
}

// Client is the GigaChat provider. Safe for concurrent use.
type Client struct {
	chatURL    string
	creds      *Credentials
	httpClient *http.Client
	retry      provider.RetryPolicy
	logger     log.Logger
}

// New creates a GigaChat client.
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
		chatURL:    cfg.ChatURL,
		creds:      NewCredentials(cfg.AuthKey, cfg.OAuthURL, httpClient, logger),
		httpClient: httpClient,
		retry:      provider.AuthRetryPolicy(),
		logger:     logger,
	}
}

// Name implements provider.Provider.
func (c *Client) Name() string { return Backend }

// Send implements provider.Provider.
//
// The first attempt uses the cached credential; an authorization failure
// forces a refresh and one more attempt. Any other failure, or a second
// authorization failure, surfaces as *provider.ProviderError.
func (c *Client) Send(ctx context.Context, req provider.ChatRequest) (*provider.Reply, error) {
	payload := provider.CompletionRequest{
		Model:       DefaultModel,
		Messages:    provider.OutboundMessages(req),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	for attempt := 0; ; attempt++ {
		var token string
		if attempt == 0 {
			token, err = c.creds.EnsureValid(ctx)
		} else {
			token, err = c.creds.ForceRefresh(ctx)
		}
		if err != nil {
			return nil, fmt.Errorf("gigachat auth: %w", err)
		}

		status, respBody, err := c.post(ctx, body, token)
		if err != nil {
			return nil, &provider.ProviderError{Body: err.Error(), Err: err}
		}

		if status == http.StatusOK {
			reply, err := provider.ParseReply(respBody)
			if err != nil {
				return nil, fmt.Errorf("gigachat: %w", err)
			}
			return reply, nil
		}

		if c.retry.Allow(attempt, status) {
			c.logger.Info("token rejected during request, refreshing and retrying",
				"status", status, "attempt", attempt+1)
			continue
		}

		c.logger.Error("chat request failed", "status", status)
		return nil, &provider.ProviderError{Status: status, Body: string(respBody)}
	}
}

// post issues one chat completion attempt with the given access token.
func (c *Client) post(ctx context.Context, payload []byte, token string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.Header.Set("X-Session-ID", uuid.NewString())
	req.Header.Set("X-Client-ID", "magebot")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading chat response: %w", err)
	}
	return resp.StatusCode, body, nil
}
