package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alebed/magebot/internal/prompt"
	"github.com/alebed/magebot/internal/provider/openrouter"
	"github.com/alebed/magebot/internal/session"
)

// ErrUnknownCommand indicates a command name outside the supported set.
var ErrUnknownCommand = errors.New("unknown command")

const greeting = "Hi! I am Magebot. Ask me anything, or switch modes with " +
	"the mode command: plain, structured or guided."

// HandleCommand executes a session command and returns the confirmation
// text. Validation failures (bad temperature, unknown model and so on) come
// back as errors and leave the session unchanged.
func (o *Orchestrator) HandleCommand(ctx context.Context, userID, name, arg string) (string, error) {
	_, span := o.tracer.Start(ctx, "bot.HandleCommand")
	defer span.End()

	name = strings.ToLower(strings.TrimSpace(name))
	arg = strings.TrimSpace(arg)

	switch name {
	case "start":
		return greeting, o.store.Do(userID, func(s *session.Session) error {
			s.Clear()
			return nil
		})

	case "clear":
		return "History cleared.", o.store.Do(userID, func(s *session.Session) error {
			s.Clear()
			return nil
		})

	case "forget":
		if err := o.summaries.Delete(userID); err != nil {
			return "", fmt.Errorf("deleting summary: %w", err)
		}
		return "Stored summary forgotten.", nil

	case "mode":
		mode, err := prompt.ParseMode(arg)
		if err != nil {
			return "", err
		}
		reply := fmt.Sprintf("Mode set to %s.", mode)
		return reply, o.store.Do(userID, func(s *session.Session) error {
			s.SetMode(mode)
			s.History().AppendNotice(reply)
			return nil
		})

	case "backend":
		return fmt.Sprintf("Backend set to %s.", arg), o.store.Do(userID, func(s *session.Session) error {
			return s.SetBackend(arg)
		})

	case "model":
		err := o.store.Do(userID, func(s *session.Session) error {
			return s.SetModel(arg)
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Model set to %s.", openrouter.ModelDisplayName(arg)), nil

	case "temperature":
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return "", fmt.Errorf("%w: %q is not a number", session.ErrInvalidTemperature, arg)
		}
		return fmt.Sprintf("Temperature set to %g.", v), o.store.Do(userID, func(s *session.Session) error {
			return s.SetTemperature(v)
		})

	case "maxtokens":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return "", fmt.Errorf("%w: %q is not a number", session.ErrInvalidMaxTokens, arg)
		}
		return fmt.Sprintf("Max tokens set to %d.", n), o.store.Do(userID, func(s *session.Session) error {
			return s.SetMaxTokens(n)
		})

	case "sysprompt":
		var on bool
		switch strings.ToLower(arg) {
		case "on":
			on = true
		case "off":
			on = false
		default:
			return "", fmt.Errorf("%w: sysprompt takes on or off", ErrUnknownCommand)
		}
		state := "disabled"
		if on {
			state = "enabled"
		}
		return fmt.Sprintf("System prompt %s.", state), o.store.Do(userID, func(s *session.Session) error {
			s.SystemPrompt = on
			return nil
		})

	case "settings":
		return o.settings(userID)

	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
}

func (o *Orchestrator) settings(userID string) (string, error) {
	var b strings.Builder
	err := o.store.Do(userID, func(s *session.Session) error {
		fmt.Fprintf(&b, "Mode: %s\n", s.Mode)
		fmt.Fprintf(&b, "Backend: %s\n", s.Backend)
		fmt.Fprintf(&b, "Model: %s\n", openrouter.ModelDisplayName(s.Model))
		fmt.Fprintf(&b, "Temperature: %g\n", s.Temperature)
		fmt.Fprintf(&b, "Max tokens: %d\n", s.MaxTokens)
		fmt.Fprintf(&b, "System prompt: %t", s.SystemPrompt)
		return nil
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}
