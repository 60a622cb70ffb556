package provider

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini client.
type GeminiConfig struct {
	APIKey      string
	Model       string
	MinInterval time.Duration
	Retry       RetryPolicy
}

// DefaultGeminiConfig returns sensible defaults for Gemini.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey: apiKey,
		Model:  "gemini-2.5-flash",
		Retry:  DefaultRetryPolicy(),
	}
}

// GeminiClient implements Client on the official genai SDK. The SDK
// owns transport-level concerns; the bounded retry loop here covers
// transient failures the SDK surfaces as errors.
type GeminiClient struct {
	client  *genai.Client
	model   string
	retry   RetryPolicy
	limiter rateLimiter
	logger  *zap.Logger
}

// NewGeminiClient creates a Gemini-backed generation client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.BaseDelay == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiClient{
		client:  client,
		model:   cfg.Model,
		retry:   cfg.Retry,
		limiter: rateLimiter{interval: cfg.MinInterval},
		logger:  logger,
	}, nil
}

// Generate produces a completion for the instruction/prompt pair.
// Gemini does not report citations or a usable confidence, so citations
// are empty and confidence is a fixed 0.75.
func (c *GeminiClient) Generate(ctx context.Context, instructions, prompt string) (Generation, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.2),
		MaxOutputTokens: 8192,
	}
	if instructions != "" {
		cfg.SystemInstruction = genai.NewContentFromText(instructions, genai.RoleUser)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, c.retry.backoff(attempt, 0)); err != nil {
				return Generation{}, err
			}
		}
		if err := c.limiter.wait(ctx); err != nil {
			return Generation{}, err
		}

		resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
		if err != nil {
			if ctx.Err() != nil {
				return Generation{}, ctx.Err()
			}
			lastErr = err
			c.logger.Warn("Gemini generation failed",
				zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}
		return Generation{
			Content:    resp.Text(),
			Citations:  []string{},
			Confidence: 0.75,
		}, nil
	}
	return Generation{}, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}
