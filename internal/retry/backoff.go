package retry

import (
	"context"
	"errors"
	"time"

	"scrapebot/internal/constants"

	"github.com/hashicorp/go-retryablehttp"
)

// Policy configures exponential backoff between attempts
type Policy struct {
	MaxAttempts int
	MinWait     time.Duration
	MaxWait     time.Duration

	// Retryable decides whether an error is worth another attempt. Nil retries everything
	// except context cancellation.
	Retryable func(error) bool
	// OnRetry is called before each wait
	OnRetry func(attempt int, err error, wait time.Duration)
}

// StartupPolicy is the policy used for one-off calls made while the bot starts
func StartupPolicy() Policy {
	return Policy{
		MaxAttempts: constants.DefaultStartupRetryAttempts,
		MinWait:     constants.DefaultStartupRetryInitialMs * time.Millisecond,
		MaxWait:     constants.DefaultStartupRetryMaxMs * time.Millisecond,
	}
}

// Do runs op until it succeeds, returns a non-retryable error, attempts run out
// or ctx is done. The last error is returned.
func Do(ctx context.Context, policy Policy, op func(ctx context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := policy.Retryable
	if retryable == nil {
		retryable = notCanceled
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) || attempt == attempts-1 {
			break
		}

		wait := NextDelay(policy, attempt)
		if policy.OnRetry != nil {
			policy.OnRetry(attempt+1, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}

	return lastErr
}

// NextDelay returns the wait after the given zero-based attempt
func NextDelay(policy Policy, attempt int) time.Duration {
	return retryablehttp.DefaultBackoff(policy.MinWait, policy.MaxWait, attempt, nil)
}

func notCanceled(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
