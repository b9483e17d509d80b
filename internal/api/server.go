// Package api exposes the dialogue orchestrator over a small JSON HTTP API.
//
// Routes:
//
//	POST /api/v1/chat     {user_id, text}               one dialogue turn
//	POST /api/v1/command  {user_id, command, argument}  session command
//	GET  /health          liveness probe
//
// Middleware stack (outermost first): recovery, request ID, logging, per-IP
// rate limit. Health probes bypass the stack.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/alebed/magebot/internal/bot"
	"github.com/alebed/magebot/internal/log"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger     log.Logger
	Bot        *bot.Orchestrator // Required
	TrustProxy bool              // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RatePerSec float64           // Rate limiter refill per IP (0 = default 2)
	RateBurst  int               // Rate limiter burst per IP (0 = default 5)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Bot == nil {
		return nil, errors.New("orchestrator is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	ch := &chatHandler{bot: cfg.Bot, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/chat", ch.send)
	mux.HandleFunc("POST /api/v1/command", ch.command)

	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 2.0
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 5
	}
	rl := newRateLimiter(perSec, burst)

	// Outermost first: recovery must wrap everything, request ID before
	// logging so log lines can carry it.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until ctx is canceled, then drains in-flight
// requests for up to 10 seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string, logger log.Logger) error {
	if logger == nil {
		logger = log.NewNop()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Backend calls dominate response time; allow for a slow model plus
		// one auth retry.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info("http server stopped")
		<-errCh // always http.ErrServerClosed after a clean Shutdown
		return nil
	}
}
