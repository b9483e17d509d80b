package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alebed/magebot/internal/api"
	"github.com/alebed/magebot/internal/app"
	"github.com/alebed/magebot/internal/config"
	"github.com/alebed/magebot/internal/log"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(*cobra.Command, []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{Level: slog.LevelInfo, JSON: true})
	logger.Info("starting HTTP API server", "version", AppVersion, "config", cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		if closeErr := a.Close(closeCtx); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	srv, err := api.NewServer(api.ServerConfig{
		Logger:     logger,
		Bot:        a.Bot,
		TrustProxy: cfg.TrustProxy,
		RatePerSec: cfg.RatePerSec,
		RateBurst:  cfg.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	addr := cfg.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	return srv.ListenAndServe(ctx, addr, logger)
}
