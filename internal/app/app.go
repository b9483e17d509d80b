// Package app wires configuration into a running object graph: logger,
// provider clients, session and summary stores and the orchestrator. Both
// the serve and ask commands build on it.
package app

import (
	"context"
	"errors"

	"github.com/alebed/magebot/internal/bot"
	"github.com/alebed/magebot/internal/config"
	"github.com/alebed/magebot/internal/log"
	"github.com/alebed/magebot/internal/observability"
	"github.com/alebed/magebot/internal/provider"
	"github.com/alebed/magebot/internal/provider/gigachat"
	"github.com/alebed/magebot/internal/provider/openrouter"
	"github.com/alebed/magebot/internal/session"
	"github.com/alebed/magebot/internal/summary"
)

// App holds the assembled components.
type App struct {
	Config *config.Config
	Logger log.Logger
	Bot    *bot.Orchestrator

	shutdownTracing func(context.Context) error
}

// Setup builds the application from validated configuration. Only backends
// with credentials present get a client; config validation already ensured
// the default backend is among them.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = log.NewNop()
	}

	providers := make(map[string]provider.Provider)
	if cfg.GigaChatAuthKey != "" {
		providers[gigachat.Backend] = gigachat.New(gigachat.Config{
			AuthKey:  cfg.GigaChatAuthKey,
			OAuthURL: cfg.GigaChatOAuthURL,
			ChatURL:  cfg.GigaChatChatURL,
			Logger:   logger,
		})
	}
	if cfg.OpenRouterAPIKey != "" {
		providers[openrouter.Backend] = openrouter.New(openrouter.Config{
			APIKey:   cfg.OpenRouterAPIKey,
			BaseURL:  cfg.OpenRouterBaseURL,
			Referer:  cfg.OpenRouterReferer,
			AppTitle: cfg.OpenRouterAppTitle,
			Logger:   logger,
		})
	}
	if len(providers) == 0 {
		return nil, errors.New("no backend credentials configured")
	}

	store := session.NewStore(session.Config{
		GeneralCapacity: cfg.GeneralHistorySize,
		RecipeCapacity:  cfg.RecipeHistorySize,
		SubmitWindow:    cfg.SubmitWindow,
		DefaultBackend:  cfg.DefaultBackend,
		DefaultModel:    cfg.DefaultModel,
		Temperature:     cfg.Temperature,
		MaxTokens:       cfg.MaxTokens,
	})
	summaries := summary.NewStore(cfg.SummaryFile, logger)

	a := &App{
		Config: cfg,
		Logger: logger,
		Bot:    bot.New(store, summaries, providers, logger),
	}

	if cfg.TracingOn {
		shutdown, err := observability.Setup(ctx, observability.Config{
			AgentHost:   cfg.OTLPAgentHost,
			Environment: cfg.Environment,
			ServiceName: cfg.ServiceName,
		}, logger)
		if err != nil {
			return nil, err
		}
		a.shutdownTracing = shutdown
	}

	return a, nil
}

// Close flushes pending telemetry.
func (a *App) Close(ctx context.Context) error {
	if a.shutdownTracing == nil {
		return nil
	}
	return a.shutdownTracing(ctx)
}
