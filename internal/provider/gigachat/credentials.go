package gigachat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alebed/magebot/internal/log"
	"github.com/alebed/magebot/internal/provider"
)

const (
	// oauthScope is the GigaChat personal API scope sent with every exchange.
	oauthScope = "GIGACHAT_API_PERS"

	// ExpiryMargin is subtracted from the reported TTL so a token is never
	// used within 60 seconds of its real expiry.
	ExpiryMargin = 60 * time.Second

	// defaultTTL applies when the exchange response omits expires_in.
	defaultTTL = 1800 * time.Second
)

// Credentials exchanges the long-lived GigaChat authorization key for
// short-lived access tokens and caches the result.
//
// The mutex is held across the network exchange: concurrent callers share a
// single in-flight exchange instead of racing their own. Reads of a cached,
// still-valid token take the same lock briefly.
type Credentials struct {
	authKey    string
	oauthURL   string
	httpClient *http.Client
	logger     log.Logger
	now        func() time.Time

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time // already includes the ExpiryMargin discount
}

// NewCredentials creates a credential manager for the given long-lived key.
// httpClient may be nil to use a default client; logger may be nil.
func NewCredentials(authKey, oauthURL string, httpClient *http.Client, logger log.Logger) *Credentials {
	if httpClient == nil {
		httpClient = provider.NewHTTPClient(0)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Credentials{
		authKey:    authKey,
		oauthURL:   oauthURL,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

// EnsureValid returns the cached access token while it remains outside the
// expiry margin, exchanging the long-lived key otherwise.
func (c *Credentials) EnsureValid(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && c.now().Before(c.expiresAt) {
		return c.accessToken, nil
	}

	c.logger.Info("access token missing or expiring, exchanging")
	return c.exchangeLocked(ctx)
}

// ForceRefresh discards the cached token and performs a fresh exchange.
// Used by the client after the backend rejects a request as unauthorized.
func (c *Credentials) ForceRefresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Info("forcing access token refresh")
	return c.exchangeLocked(ctx)
}

// tokenResponse is the OAuth exchange response body.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"` // seconds
}

// exchangeLocked performs the exchange. Caller must hold c.mu.
// A non-success status becomes *provider.AuthError; it is not retried here —
// the client decides.
func (c *Credentials) exchangeLocked(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("scope", oauthScope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.oauthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building oauth request: %w", err)
	}
	req.Header.Set("RqUID", uuid.NewString())
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.authKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &provider.AuthError{Body: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &provider.AuthError{Status: resp.StatusCode, Body: "reading oauth response: " + err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("credential exchange failed", "status", resp.StatusCode)
		return "", &provider.AuthError{Status: resp.StatusCode, Body: string(body)}
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", &provider.AuthError{Status: resp.StatusCode, Body: "malformed oauth response: " + err.Error()}
	}
	if tok.AccessToken == "" {
		return "", &provider.AuthError{Status: resp.StatusCode, Body: "oauth response missing access_token"}
	}

	ttl := time.Duration(tok.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = defaultTTL
	}

	c.accessToken = tok.AccessToken
	c.expiresAt = c.now().Add(ttl - ExpiryMargin)
	c.logger.Info("access token obtained", "expires_at", c.expiresAt)

	return c.accessToken, nil
}
