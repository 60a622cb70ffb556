// Package provider implements text-generation clients for the agent
// pipeline. All providers satisfy the same Client contract: a system
// instruction plus a user prompt in, content with citations and a
// confidence score out. Retries, backoff, and rate limiting are handled
// here so the pipeline above stays strictly sequential and oblivious to
// transport concerns.
package provider

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"
)

// ErrUnavailable indicates no usable provider is configured or the
// configured provider could not be reached after exhausting retries.
var ErrUnavailable = errors.New("generation provider unavailable")

// Generation is a single structured completion.
type Generation struct {
	Content    string
	Citations  []string
	Confidence float64
}

// Client is the generation contract consumed by agents.
type Client interface {
	Generate(ctx context.Context, instructions, prompt string) (Generation, error)
}

// RetryPolicy bounds the retry loop applied to transient provider
// failures (429, 5xx, network errors).
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy mirrors the provider-friendly defaults used across
// all clients: 4 retries, 1s base, capped at 15s per sleep.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 4,
		BaseDelay:  time.Second,
		MaxDelay:   15 * time.Second,
	}
}

// backoff returns the jittered exponential delay for the given attempt
// (1-based). A positive retryAfter hint overrides the exponential base.
func (p RetryPolicy) backoff(attempt int, retryAfter time.Duration) time.Duration {
	d := retryAfter
	if d <= 0 {
		d = p.BaseDelay * time.Duration(1<<uint(attempt-1))
	}
	d += time.Duration(rand.Int63n(int64(d)/4 + 1))
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// sleep blocks for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// rateLimiter enforces a minimum interval between provider calls made
// through one client. Zero interval disables it.
type rateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

func (r *rateLimiter) wait(ctx context.Context) error {
	if r.interval <= 0 {
		return nil
	}
	r.mu.Lock()
	var pause time.Duration
	if !r.last.IsZero() {
		if elapsed := time.Since(r.last); elapsed < r.interval {
			pause = r.interval - elapsed
		}
	}
	r.last = time.Now().Add(pause)
	r.mu.Unlock()
	return sleep(ctx, pause)
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
