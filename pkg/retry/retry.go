// Package retry provides exponential backoff with jitter for reconnects and startup dials
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

var (
	// Thread-safe random source for jitter
	randMu     sync.Mutex
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// Float64 returns a uniform value in [0.0, 1.0) from the package random source.
// It is the default jitter source for Config.Delay.
func Float64() float64 {
	randMu.Lock()
	defer randMu.Unlock()
	return randSource.Float64()
}

// NonRetryableError wraps errors that should not be retried
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("non-retryable: %v", e.Err)
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// NonRetryable wraps an error to indicate it should not be retried
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// IsNonRetryable checks if an error is marked as non-retryable
func IsNonRetryable(err error) bool {
	var nre *NonRetryableError
	return errors.As(err, &nre)
}

// Config describes a backoff schedule.
//
// The delay before attempt n is min(InitialDelay * Multiplier^n, MaxDelay) plus a
// uniform random addition in [0, delay*JitterFactor). With ImmediateFirst set,
// attempt 0 has no delay at all.
type Config struct {
	MaxAttempts    int           // Maximum number of attempts (0 = unlimited for schedules, once for Do)
	InitialDelay   time.Duration // Base delay
	MaxDelay       time.Duration // Cap applied before jitter
	Multiplier     float64       // Backoff multiplier (typically 2.0)
	JitterFactor   float64       // Fraction of the delay added at random, 0 disables jitter
	ImmediateFirst bool          // Attempt 0 is retried without delay
}

// DefaultConfig returns sensible defaults for retry operations
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.25,
	}
}

// Reconnect returns the schedule used for websocket channel reconnects.
func Reconnect(base, maxDelay time.Duration, jitter float64, maxAttempts int) Config {
	return Config{
		MaxAttempts:    maxAttempts,
		InitialDelay:   base,
		MaxDelay:       maxDelay,
		Multiplier:     2.0,
		JitterFactor:   jitter,
		ImmediateFirst: true,
	}
}

// Quick returns a config for fast retries (useful during startup)
func Quick() Config {
	return Config{
		MaxAttempts:  10,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   1.5,
		JitterFactor: 0.25,
	}
}

// Validate reports configuration values that would produce a broken schedule.
func (c Config) Validate() error {
	if c.InitialDelay < 0 {
		return errors.New("retry: InitialDelay cannot be negative")
	}
	if c.MaxDelay < 0 {
		return errors.New("retry: MaxDelay cannot be negative")
	}
	if c.Multiplier < 0 {
		return errors.New("retry: Multiplier cannot be negative")
	}
	if c.JitterFactor < 0 || c.JitterFactor > 1 {
		return errors.New("retry: JitterFactor must be within [0, 1]")
	}
	if c.MaxDelay > 0 && c.MaxDelay < c.InitialDelay {
		return errors.New("retry: MaxDelay must be >= InitialDelay")
	}
	if c.MaxAttempts < 0 {
		return errors.New("retry: MaxAttempts cannot be negative")
	}
	return nil
}

// Exhausted reports whether attempts has reached the configured maximum.
// A MaxAttempts of zero never exhausts.
func (c Config) Exhausted(attempts int) bool {
	return c.MaxAttempts > 0 && attempts >= c.MaxAttempts
}

// BaseDelay returns the capped delay for attempt without jitter.
func (c Config) BaseDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if c.ImmediateFirst && attempt == 0 {
		return 0
	}

	multiplier := c.Multiplier
	if multiplier == 0 {
		multiplier = 2.0
	}
	// Prevent overflow with extremely large multipliers
	if multiplier > 1000 {
		multiplier = 1000
	}

	delay := float64(c.InitialDelay) * math.Pow(multiplier, float64(attempt))
	if c.MaxDelay > 0 && (delay > float64(c.MaxDelay) || math.IsInf(delay, 0)) {
		return c.MaxDelay
	}
	if delay > float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}

// Delay returns the delay for attempt using the package random source for jitter.
func (c Config) Delay(attempt int) time.Duration {
	return c.DelayWith(attempt, Float64)
}

// DelayWith returns the delay for attempt, drawing jitter from rnd.
// rnd must return values in [0.0, 1.0).
func (c Config) DelayWith(attempt int, rnd func() float64) time.Duration {
	delay := c.BaseDelay(attempt)
	if delay == 0 || c.JitterFactor <= 0 || rnd == nil {
		return delay
	}
	jitter := time.Duration(rnd() * float64(delay) * c.JitterFactor)
	return delay + jitter
}

// Do executes fn with exponential backoff retry
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1 // At least try once
	}
	if cfg.InitialDelay == 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = 5 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if IsNonRetryable(err) {
			return err
		}

		if ctx.Err() != nil {
			return fmt.Errorf("retry cancelled before attempt %d: %w", attempt, ctx.Err())
		}

		// Don't sleep after the last attempt
		if attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(cfg.Delay(attempt - 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled during backoff for attempt %d: %w", attempt+1, ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("retry failed after %d attempts: %w", maxAttempts, lastErr)
}

// DoWithResult executes fn with retry and returns both result and error
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func() error {
		var innerErr error
		result, innerErr = fn()
		return innerErr
	})
	return result, err
}
