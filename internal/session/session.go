// Package session owns per-user conversational state: bounded per-mode
// histories, the active output mode, and validated generation preferences.
//
// All mutation happens inside Store.Do, which serializes access per user.
// Session methods themselves are not concurrency-safe.
package session

import (
	"fmt"

	"github.com/alebed/magebot/internal/config"
	"github.com/alebed/magebot/internal/prompt"
	"github.com/alebed/magebot/internal/provider/gigachat"
	"github.com/alebed/magebot/internal/provider/openrouter"
)

// Session is one user's state. Created lazily on first contact and kept for
// the process lifetime.
type Session struct {
	Mode prompt.Mode

	// General holds plain and structured turns; Recipe holds guided turns.
	// The guided dialogue needs a deeper buffer because slot filling spans
	// many short exchanges.
	General *History
	Recipe  *History

	Backend      string
	Model        string
	Temperature  float64
	MaxTokens    int
	SystemPrompt bool
}

// History returns the buffer backing the session's active mode.
func (s *Session) History() *History {
	if s.Mode == prompt.ModeGuided {
		return s.Recipe
	}
	return s.General
}

// Clear empties both histories. Used on explicit reset and on backend or
// model change, since context accumulated for one model misleads another.
func (s *Session) Clear() {
	s.General.Clear()
	s.Recipe.Clear()
}

// SetMode switches the active mode. Leaving guided mode discards the
// partially filled recipe dialogue; the general history survives the switch.
func (s *Session) SetMode(m prompt.Mode) {
	if s.Mode == prompt.ModeGuided && m != prompt.ModeGuided {
		s.Recipe.Clear()
	}
	s.Mode = m
}

// SetTemperature validates and stores the sampling temperature.
func (s *Session) SetTemperature(v float64) error {
	if v < config.MinTemperature || v > config.MaxTemperature {
		return fmt.Errorf("%w: got %g", ErrInvalidTemperature, v)
	}
	s.Temperature = v
	return nil
}

// SetMaxTokens validates and stores the response token limit.
func (s *Session) SetMaxTokens(v int) error {
	if v < config.MinMaxTokens || v > config.MaxMaxTokens {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxTokens, v)
	}
	s.MaxTokens = v
	return nil
}

// SetBackend switches the provider backend and clears both histories. The
// model is reset to the new backend's default.
func (s *Session) SetBackend(name string) error {
	switch name {
	case gigachat.Backend:
		s.Model = gigachat.DefaultModel
	case openrouter.Backend:
		s.Model = openrouter.DefaultModelKey
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	s.Backend = name
	s.Clear()
	return nil
}

// SetModel validates the key against the active backend's catalog, stores
// it and clears both histories.
func (s *Session) SetModel(key string) error {
	switch s.Backend {
	case gigachat.Backend:
		if key != gigachat.DefaultModel {
			return fmt.Errorf("%w: %q (gigachat serves only %s)", ErrUnknownModel, key, gigachat.DefaultModel)
		}
	default:
		if !openrouter.KnownModel(key) {
			return fmt.Errorf("%w: %q", ErrUnknownModel, key)
		}
	}
	if key == s.Model {
		return nil
	}
	s.Model = key
	s.Clear()
	return nil
}
