package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// OpenAICompatConfig configures a client for any OpenAI-compatible chat
// completions endpoint (Groq, xAI).
type OpenAICompatConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MinInterval time.Duration
	Retry       RetryPolicy
}

// DefaultGroqConfig returns sensible defaults for Groq.
func DefaultGroqConfig(apiKey string) OpenAICompatConfig {
	return OpenAICompatConfig{
		APIKey:  apiKey,
		BaseURL: "https://api.groq.com/openai/v1",
		Model:   "llama-3.3-70b-versatile",
		Timeout: 60 * time.Second,
		Retry:   DefaultRetryPolicy(),
	}
}

// DefaultXAIConfig returns sensible defaults for xAI (Grok).
func DefaultXAIConfig(apiKey string) OpenAICompatConfig {
	return OpenAICompatConfig{
		APIKey:  apiKey,
		BaseURL: "https://api.x.ai/v1",
		Model:   "grok-2-latest",
		Timeout: 60 * time.Second,
		Retry:   DefaultRetryPolicy(),
	}
}

// OpenAICompatClient implements Client over an OpenAI-compatible HTTP
// API with bearer-token auth.
type OpenAICompatClient struct {
	cfg        OpenAICompatConfig
	httpClient *http.Client
	limiter    rateLimiter
	logger     *zap.Logger
}

// NewOpenAICompatClient creates a client for the given endpoint config.
func NewOpenAICompatClient(cfg OpenAICompatConfig, logger *zap.Logger) (*OpenAICompatClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key not configured for %s", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.BaseDelay == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAICompatClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rateLimiter{interval: cfg.MinInterval},
		logger:     logger,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string   `json:"content"`
			Citations []string `json:"citations"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
	Citations  []string `json:"citations"`
	Confidence *float64 `json:"confidence"`
}

// Generate sends a chat completion request with a bounded retry loop.
// Transient statuses (429, 5xx) and network errors are retried with
// jittered exponential backoff, honoring Retry-After when present.
func (c *OpenAICompatClient) Generate(ctx context.Context, instructions, prompt string) (Generation, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: instructions},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return Generation{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.cfg.BaseURL + "/chat/completions"
	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retry.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, c.cfg.Retry.backoff(attempt, retryAfterOf(lastErr))); err != nil {
				return Generation{}, err
			}
		}
		if err := c.limiter.wait(ctx); err != nil {
			return Generation{}, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return Generation{}, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return Generation{}, ctx.Err()
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			c.logger.Warn("provider request failed",
				zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("failed to read response: %w", readErr)
			continue
		}

		if isTransientStatus(resp.StatusCode) {
			lastErr = &transientError{
				status:     resp.StatusCode,
				retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			}
			c.logger.Warn("provider returned transient status",
				zap.Int("status", resp.StatusCode), zap.Int("attempt", attempt+1))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return Generation{}, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, truncateBody(respBody))
		}

		return parseChatResponse(respBody)
	}
	return Generation{}, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func parseChatResponse(body []byte) (Generation, error) {
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Generation{}, fmt.Errorf("failed to parse provider response: %w", err)
	}
	gen := Generation{Confidence: 0.75}
	if len(parsed.Choices) > 0 {
		gen.Content = parsed.Choices[0].Message.Content
		if gen.Content == "" {
			gen.Content = parsed.Choices[0].Text
		}
		gen.Citations = parsed.Choices[0].Message.Citations
	}
	if gen.Citations == nil {
		gen.Citations = parsed.Citations
	}
	if gen.Citations == nil {
		gen.Citations = []string{}
	}
	if parsed.Confidence != nil {
		gen.Confidence = clampConfidence(*parsed.Confidence)
	}
	return gen, nil
}

type transientError struct {
	status     int
	retryAfter time.Duration
}

func (e *transientError) Error() string {
	return fmt.Sprintf("provider returned status %d", e.status)
}

func retryAfterOf(err error) time.Duration {
	if te, ok := err.(*transientError); ok {
		return te.retryAfter
	}
	return 0
}

func isTransientStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

func truncateBody(b []byte) string {
	const max = 256
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
