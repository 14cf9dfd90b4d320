// Package retry runs operations with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Defaults for the backoff policy.
const (
	DefaultMaxRetries      = 2
	InitialBackoffInterval = 500 * time.Millisecond
	MaxBackoffInterval     = 5 * time.Second
)

// ErrRetriesExhausted is returned when every attempt failed with a retryable error.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Operation is a retryable unit of work. It returns nil on success.
type Operation func() error

// ShouldRetryFunc reports whether the error returned by an Operation is transient.
type ShouldRetryFunc func(error) bool

// Config controls the retry behavior.
type Config struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultConfig returns the recommended settings.
func DefaultConfig() Config {
	return Config{
		MaxRetries:      DefaultMaxRetries,
		InitialInterval: InitialBackoffInterval,
		MaxInterval:     MaxBackoffInterval,
	}
}

// Do runs op until it succeeds, returns a non-retryable error, the retry budget is spent
// or ctx is done. MaxRetries counts retries, so op runs at most MaxRetries+1 times.
func Do(ctx context.Context, cfg Config, name string, op Operation, shouldRetry ShouldRetryFunc) error {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = cfg.InitialInterval
	expBackoff.MaxInterval = cfg.MaxInterval
	expBackoff.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(expBackoff, cfg.MaxRetries), ctx)

	var (
		lastErr   error
		permanent bool
	)
	attempt := func() error {
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err
		if shouldRetry != nil && shouldRetry(err) {
			return err
		}
		permanent = true
		return backoff.Permanent(err)
	}

	err := backoff.Retry(attempt, policy)
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", name, ctxErr)
	}

	if permanent {
		return fmt.Errorf("%s: %w", name, lastErr)
	}

	return fmt.Errorf("%s: %w after %d retries: %w", name, ErrRetriesExhausted, cfg.MaxRetries, lastErr)
}
