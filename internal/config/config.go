// internal/config/config.go
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every process-wide setting. It is read once at startup.
type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	DebugMode   bool   `envconfig:"DEBUG_MODE" default:"false"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"console"`

	// Text-generation provider
	LLMProvider string `envconfig:"LLM_PROVIDER" default:"google"`
	LLMAPIKey   string `envconfig:"LLM_API_KEY"`
	LLMModel    string `envconfig:"LLM_MODEL"`
	LLMBaseURL  string `envconfig:"LLM_BASE_URL"`
	// GeminiAPIKey is honoured when LLM_API_KEY is unset.
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`

	// Guide chat
	GuideRequestTimeout time.Duration `envconfig:"GUIDE_REQUEST_TIMEOUT" default:"30s"`
	GuideSessionTTL     time.Duration `envconfig:"GUIDE_SESSION_TTL" default:"30m"`
	GuideContextWindow  string        `envconfig:"GUIDE_CONTEXT_WINDOW" default:"unbounded"`
	ChatRateLimit       int           `envconfig:"CHAT_RATE_LIMIT" default:"30"` // per client per minute

	// Galleries
	CameraFPS   int    `envconfig:"CAMERA_FPS" default:"60"`
	CatalogFile string `envconfig:"CATALOG_FILE"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// ContextWindowSpec is the parsed form of GUIDE_CONTEXT_WINDOW.
type ContextWindowSpec struct {
	Kind  string // "unbounded", "last" or "tokens"
	Limit int
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = cfg.GeminiAPIKey
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that envconfig cannot.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.CameraFPS <= 0 || c.CameraFPS > 240 {
		return fmt.Errorf("CAMERA_FPS must be in 1..240, got %d", c.CameraFPS)
	}
	if c.GuideRequestTimeout <= 0 {
		return fmt.Errorf("GUIDE_REQUEST_TIMEOUT must be positive")
	}
	if c.ChatRateLimit <= 0 {
		return fmt.Errorf("CHAT_RATE_LIMIT must be positive")
	}
	if _, err := c.ContextWindow(); err != nil {
		return err
	}
	return nil
}

// HasCredential reports whether a provider API key is configured. Its
// absence disables the guide chat only.
func (c *Config) HasCredential() bool {
	return strings.TrimSpace(c.LLMAPIKey) != ""
}

// LLMConfig returns the settings map handed to llm.Provider.Initialize.
func (c *Config) LLMConfig() map[string]string {
	cfg := map[string]string{
		"api_key": c.LLMAPIKey,
	}
	if c.LLMModel != "" {
		cfg["default_model"] = c.LLMModel
	}
	if c.LLMBaseURL != "" {
		cfg["base_url"] = c.LLMBaseURL
	}
	return cfg
}

// ContextWindow parses GUIDE_CONTEXT_WINDOW: "unbounded", "last:N" or
// "tokens:N".
func (c *Config) ContextWindow() (ContextWindowSpec, error) {
	raw := strings.ToLower(strings.TrimSpace(c.GuideContextWindow))
	if raw == "" || raw == "unbounded" {
		return ContextWindowSpec{Kind: "unbounded"}, nil
	}

	kind, limit, found := strings.Cut(raw, ":")
	if !found || (kind != "last" && kind != "tokens") {
		return ContextWindowSpec{}, fmt.Errorf("GUIDE_CONTEXT_WINDOW must be unbounded, last:N or tokens:N, got %q", c.GuideContextWindow)
	}
	n, err := strconv.Atoi(limit)
	if err != nil || n <= 0 {
		return ContextWindowSpec{}, fmt.Errorf("GUIDE_CONTEXT_WINDOW limit must be a positive integer, got %q", limit)
	}
	return ContextWindowSpec{Kind: kind, Limit: n}, nil
}
