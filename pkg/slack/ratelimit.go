package slack

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/slack-go/slack"
	"golang.org/x/time/rate"
)

// RateLimiter throttles outbound messages per channel
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// NewRateLimiter allows msgPerSec messages per channel with the given burst
func NewRateLimiter(msgPerSec float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(msgPerSec),
		burst:    burst,
	}
}

func (rl *RateLimiter) getLimiter(channelID string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[channelID]
	rl.mu.RUnlock()

	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.limiters[channelID]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rl.rate, rl.burst)
	rl.limiters[channelID] = limiter
	return limiter
}

// Wait blocks until the channel may send or ctx is done
func (rl *RateLimiter) Wait(ctx context.Context, channelID string) error {
	return rl.getLimiter(channelID).Wait(ctx)
}

// ErrMaxRetries is returned when Slack keeps rate limiting a call
var ErrMaxRetries = errors.New("slack rate limit: max retries exceeded")

func retryAfter(err error) (time.Duration, bool) {
	var rateErr *slack.RateLimitedError
	if errors.As(err, &rateErr) && rateErr.RetryAfter > 0 {
		return rateErr.RetryAfter, true
	}
	return 0, false
}

// WithRetry runs fn after waiting on the channel's limiter, retrying when Slack
// answers with a rate-limited error and honoring its Retry-After.
func WithRetry(ctx context.Context, rl *RateLimiter, channelID string, maxRetries int, fn func() error) error {
	if fn == nil {
		return nil
	}
	if maxRetries < 1 {
		maxRetries = 1
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		if rl != nil {
			if err := rl.Wait(ctx, channelID); err != nil {
				return err
			}
		}

		err := fn()
		if err == nil {
			return nil
		}

		wait, shouldRetry := retryAfter(err)
		if !shouldRetry {
			return err
		}

		if attempt < maxRetries-1 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	return ErrMaxRetries
}
