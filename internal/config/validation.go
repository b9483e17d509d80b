package config

import (
	"fmt"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. Backend selection
	switch c.DefaultBackend {
	case BackendGigaChat, BackendOpenRouter:
	default:
		return fmt.Errorf("%w: %q (must be %q or %q)",
			ErrInvalidBackend, c.DefaultBackend, BackendGigaChat, BackendOpenRouter)
	}

	// 2. Credential presence for the selected backend
	if c.DefaultBackend == BackendGigaChat && c.GigaChatAuthKey == "" {
		return fmt.Errorf("%w: GIGACHAT_AUTH_TOKEN environment variable is required", ErrMissingCredentials)
	}
	if c.DefaultBackend == BackendOpenRouter && c.OpenRouterAPIKey == "" {
		return fmt.Errorf("%w: OPENROUTER_API_KEY environment variable is required", ErrMissingCredentials)
	}

	// 3. Generation defaults share the session preference bounds, so a config
	// accepted at startup never produces a session that would reject itself.
	if c.Temperature < MinTemperature || c.Temperature > MaxTemperature {
		return fmt.Errorf("%w: must be between %.1f and %.1f, got %.2f",
			ErrInvalidTemperature, MinTemperature, MaxTemperature, c.Temperature)
	}
	if c.MaxTokens < MinMaxTokens || c.MaxTokens > MaxMaxTokens {
		return fmt.Errorf("%w: must be between %d and %d, got %d",
			ErrInvalidMaxTokens, MinMaxTokens, MaxMaxTokens, c.MaxTokens)
	}

	// 4. History capacities
	if c.GeneralHistorySize <= 0 {
		return fmt.Errorf("%w: general_history_size must be positive, got %d",
			ErrInvalidHistorySize, c.GeneralHistorySize)
	}
	if c.RecipeHistorySize <= 0 {
		return fmt.Errorf("%w: recipe_history_size must be positive, got %d",
			ErrInvalidHistorySize, c.RecipeHistorySize)
	}
	if c.SubmitWindow <= 0 {
		return fmt.Errorf("%w: submit_window must be positive, got %d",
			ErrInvalidSubmitWindow, c.SubmitWindow)
	}

	return nil
}
