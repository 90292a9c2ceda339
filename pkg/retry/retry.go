// Package retry repeats an operation with backoff until it succeeds, the
// attempts run out or the context ends.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"
)

// Func is an operation that may be retried.
type Func func(ctx context.Context) error

// Retryer runs a Func under a Config.
type Retryer struct {
	config Config
}

// New validates config and returns a Retryer. Unset fields of an enabled
// config take their DefaultConfig values.
func New(config Config) (*Retryer, error) {
	if config.Enabled {
		config = config.withDefaults()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}
	return &Retryer{config: config}, nil
}

// Do calls fn until it succeeds. A disabled or nil Retryer calls fn once.
func (r *Retryer) Do(ctx context.Context, fn Func) error {
	if r == nil || !r.config.Enabled {
		return fn(ctx)
	}

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !r.retryable(err) {
			return err
		}
		if attempt >= r.config.MaxAttempts {
			return fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}
		if ctx.Err() != nil {
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		}

		delay := r.Delay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}
}

// Delay is the wait after the given failed attempt, capped at MaxDelay.
func (r *Retryer) Delay(attempt int) time.Duration {
	var delay time.Duration
	switch r.config.Backoff {
	case BackoffLinear:
		delay = r.config.InitialDelay * time.Duration(attempt)
	case BackoffExponential:
		delay = time.Duration(float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt-1)))
	default:
		delay = r.config.InitialDelay
	}
	delay = min(delay, r.config.MaxDelay)

	if r.config.Jitter > 0 {
		delay += time.Duration(float64(delay) * r.config.Jitter * (rand.Float64()*2 - 1))
		if delay < 0 {
			delay = r.config.InitialDelay
		}
	}
	return delay
}

func (r *Retryer) retryable(err error) bool {
	if len(r.config.Retryable) == 0 {
		return true
	}
	msg := err.Error()
	for _, pattern := range r.config.Retryable {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
