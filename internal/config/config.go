// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.magebot/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Backends: GigaChat OAuth endpoints and OpenRouter base URL
//   - Generation: default temperature and max output tokens for new sessions
//   - Session: per-mode history capacities and the provider submit window
//   - Server: HTTP listen address, rate limiting, proxy trust
//   - Observability: OTLP trace exporter endpoint (see observability package)
//
// Security: secrets (the GigaChat auth key and OpenRouter API key) are read
// from the environment only, never from the config file, and are masked in
// MarshalJSON/String output.
//
// Error handling uses sentinel errors checked with errors.Is(), wrapped with
// fmt.Errorf("%w: details", ErrXxx).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingCredentials indicates no backend credential is configured.
	ErrMissingCredentials = errors.New("missing backend credentials")

	// ErrInvalidBackend indicates the default backend is not supported.
	ErrInvalidBackend = errors.New("invalid backend")

	// ErrInvalidTemperature indicates the default temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the default max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidHistorySize indicates a history capacity is not positive.
	ErrInvalidHistorySize = errors.New("invalid history size")

	// ErrInvalidSubmitWindow indicates the provider submit window is not positive.
	ErrInvalidSubmitWindow = errors.New("invalid submit window")
)

// Backend identifiers used in Config.DefaultBackend and session preferences.
const (
	BackendGigaChat   = "gigachat"
	BackendOpenRouter = "openrouter"
)

// Generation parameter bounds. Session preference validation and config
// validation share these so a value accepted at startup is also accepted at
// runtime.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
	MinMaxTokens   = 100
	MaxMaxTokens   = 4000
)

// Default per-mode history capacities and the submit window for plain and
// structured modes. The guided (recipe) flow keeps a longer buffer because a
// slot-filling dialogue spans many short turns.
const (
	DefaultGeneralHistorySize = 10
	DefaultRecipeHistorySize  = 30
	DefaultSubmitWindow       = 5
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new secret fields, update MarshalJSON.
type Config struct {
	// Default backend and model for new sessions
	DefaultBackend string `mapstructure:"default_backend" json:"default_backend"` // "openrouter" (default) or "gigachat"
	DefaultModel   string `mapstructure:"default_model" json:"default_model"`     // Model key (e.g. "deepseek")

	// Generation defaults applied to new sessions
	Temperature float64 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`

	// Conversation history configuration
	GeneralHistorySize int `mapstructure:"general_history_size" json:"general_history_size"`
	RecipeHistorySize  int `mapstructure:"recipe_history_size" json:"recipe_history_size"`
	SubmitWindow       int `mapstructure:"submit_window" json:"submit_window"`

	// Backend endpoints
	GigaChatOAuthURL   string `mapstructure:"gigachat_oauth_url" json:"gigachat_oauth_url"`
	GigaChatChatURL    string `mapstructure:"gigachat_chat_url" json:"gigachat_chat_url"`
	OpenRouterBaseURL  string `mapstructure:"openrouter_base_url" json:"openrouter_base_url"`
	OpenRouterReferer  string `mapstructure:"openrouter_referer" json:"openrouter_referer"`
	OpenRouterAppTitle string `mapstructure:"openrouter_app_title" json:"openrouter_app_title"`

	// Secrets, environment only (GIGACHAT_AUTH_TOKEN, OPENROUTER_API_KEY)
	GigaChatAuthKey  string `mapstructure:"gigachat_auth_key" json:"gigachat_auth_key"`   // SENSITIVE: masked in MarshalJSON
	OpenRouterAPIKey string `mapstructure:"openrouter_api_key" json:"openrouter_api_key"` // SENSITIVE: masked in MarshalJSON

	// Summary store file (read-only collaborator for the mode policy)
	SummaryFile string `mapstructure:"summary_file" json:"summary_file"`

	// Server configuration (serve mode)
	Addr       string  `mapstructure:"addr" json:"addr"`
	TrustProxy bool    `mapstructure:"trust_proxy" json:"trust_proxy"`
	RatePerSec float64 `mapstructure:"rate_per_sec" json:"rate_per_sec"`
	RateBurst  int     `mapstructure:"rate_burst" json:"rate_burst"`

	// Observability configuration
	OTLPAgentHost string `mapstructure:"otlp_agent_host" json:"otlp_agent_host"`
	Environment   string `mapstructure:"environment" json:"environment"`
	ServiceName   string `mapstructure:"service_name" json:"service_name"`
	TracingOn     bool   `mapstructure:"tracing_on" json:"tracing_on"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".magebot")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".") // Also support current directory

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// Backend defaults
	v.SetDefault("default_backend", BackendOpenRouter)
	v.SetDefault("default_model", "deepseek")

	// Generation defaults
	v.SetDefault("temperature", 0.0)
	v.SetDefault("max_tokens", MaxMaxTokens)

	// History defaults
	v.SetDefault("general_history_size", DefaultGeneralHistorySize)
	v.SetDefault("recipe_history_size", DefaultRecipeHistorySize)
	v.SetDefault("submit_window", DefaultSubmitWindow)

	// Backend endpoints
	v.SetDefault("gigachat_oauth_url", "https://ngw.devices.sberbank.ru:9443/api/v2/oauth")
	v.SetDefault("gigachat_chat_url", "https://gigachat.devices.sberbank.ru/api/v1/chat/completions")
	v.SetDefault("openrouter_base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter_referer", "https://github.com/alebed/magebot")
	v.SetDefault("openrouter_app_title", "Magebot")

	// Summary store
	v.SetDefault("summary_file", "user_summaries.json")

	// Server defaults
	v.SetDefault("addr", "127.0.0.1:3500")
	v.SetDefault("trust_proxy", false)
	v.SetDefault("rate_per_sec", 2.0)
	v.SetDefault("rate_burst", 5)

	// Observability defaults
	v.SetDefault("otlp_agent_host", "localhost:4318")
	v.SetDefault("environment", "dev")
	v.SetDefault("service_name", "magebot")
	v.SetDefault("tracing_on", false)
}

// bindEnvVariables binds sensitive environment variables explicitly.
// Secrets never come from the config file:
//  1. GIGACHAT_AUTH_TOKEN - long-lived GigaChat authorization key
//  2. OPENROUTER_API_KEY  - static OpenRouter API key
func bindEnvVariables(v *viper.Viper) {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("gigachat_auth_key", "GIGACHAT_AUTH_TOKEN")
	mustBind("openrouter_api_key", "OPENROUTER_API_KEY")

	// Server overrides
	mustBind("addr", "MAGEBOT_ADDR")
	mustBind("trust_proxy", "MAGEBOT_TRUST_PROXY")

	// Backend overrides
	mustBind("default_backend", "MAGEBOT_BACKEND")
	mustBind("default_model", "MAGEBOT_MODEL")

	// Observability
	mustBind("otlp_agent_host", "OTLP_AGENT_HOST")
	mustBind("tracing_on", "MAGEBOT_TRACING")
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 characters or fewer are fully masked; longer ones keep the
// first and last 2 characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - GigaChatAuthKey
//   - OpenRouterAPIKey
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.GigaChatAuthKey = maskSecret(a.GigaChatAuthKey)
	a.OpenRouterAPIKey = maskSecret(a.OpenRouterAPIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
