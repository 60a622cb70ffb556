package provider

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Settings selects and configures a provider. An explicit Provider name
// wins; otherwise the first configured API key decides, in the order
// gemini, groq, xai. With no key and Require false the offline client
// is used so the system stays runnable without credentials.
type Settings struct {
	Provider     string // "gemini", "groq", "xai", "offline", or "" for auto-detect
	GeminiAPIKey string
	GroqAPIKey   string
	XAIAPIKey    string
	Model        string // optional model override
	BaseURL      string // optional endpoint override (OpenAI-compatible providers)
	MinInterval  time.Duration
	Retry        RetryPolicy
	Require      bool // fail instead of falling back offline
}

// Resolve returns the effective provider name for the settings.
func (s Settings) Resolve() string {
	if s.Provider != "" {
		return s.Provider
	}
	switch {
	case s.GeminiAPIKey != "":
		return "gemini"
	case s.GroqAPIKey != "":
		return "groq"
	case s.XAIAPIKey != "":
		return "xai"
	}
	return "offline"
}

// New constructs the configured generation client.
func New(ctx context.Context, s Settings, logger *zap.Logger) (Client, error) {
	switch s.Resolve() {
	case "gemini":
		cfg := DefaultGeminiConfig(s.GeminiAPIKey)
		cfg.MinInterval = s.MinInterval
		if s.Model != "" {
			cfg.Model = s.Model
		}
		if s.Retry.MaxRetries > 0 || s.Retry.BaseDelay > 0 {
			cfg.Retry = s.Retry
		}
		return NewGeminiClient(ctx, cfg, logger)
	case "groq":
		return newOpenAICompat(DefaultGroqConfig(s.GroqAPIKey), s, logger)
	case "xai", "grok":
		return newOpenAICompat(DefaultXAIConfig(s.XAIAPIKey), s, logger)
	case "offline":
		if s.Require {
			return nil, fmt.Errorf("%w: provider required but no API key configured", ErrUnavailable)
		}
		return NewOfflineClient(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", s.Provider)
	}
}

func newOpenAICompat(cfg OpenAICompatConfig, s Settings, logger *zap.Logger) (Client, error) {
	cfg.MinInterval = s.MinInterval
	if s.Model != "" {
		cfg.Model = s.Model
	}
	if s.BaseURL != "" {
		cfg.BaseURL = s.BaseURL
	}
	if s.Retry.MaxRetries > 0 || s.Retry.BaseDelay > 0 {
		cfg.Retry = s.Retry
	}
	return NewOpenAICompatClient(cfg, logger)
}
