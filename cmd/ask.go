package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alebed/magebot/internal/app"
	"github.com/alebed/magebot/internal/config"
	"github.com/alebed/magebot/internal/log"
)

// askUserID is the session key for terminal one-shots. Repeated asks from
// the same shell share history for the process lifetime only.
const askUserID = "local"

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-shot question from the terminal",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd, strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, question string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{Level: slog.LevelWarn})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(context.Background()); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	res, err := a.Bot.HandleUtterance(ctx, askUserID, question)
	if err != nil {
		return fmt.Errorf("handling question: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), res.Text)
	if res.Usage != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "tokens: %d prompt, %d completion\n",
			res.Usage.PromptTokens, res.Usage.CompletionTokens)
	}
	return nil
}
