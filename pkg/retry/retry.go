// Package retry re-runs failing operations with exponential backoff.
// It exists for calls to the model backend, which fail transiently while
// the host loads a model or sheds load.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Config shapes the retry loop. Zero fields fall back to defaults.
type Config struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
	// RetryableErrors limits retries to matching errors. Empty means
	// every error earns another attempt.
	RetryableErrors []error
	Logger          *zap.Logger
}

func (c Config) normalized() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.Multiplier < 1 {
		c.Multiplier = 2.0
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Do runs operation until it succeeds, fails with an error outside the
// allowlist, the context ends, or attempts run out. Exhaustion returns
// the last error seen, wrapped with the attempt count.
func Do(ctx context.Context, cfg Config, operation func() error) error {
	cfg = cfg.normalized()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation()
		if err == nil {
			if attempt > 1 {
				cfg.Logger.Info("Attempt succeeded after backoff",
					zap.Int("attempt", attempt),
				)
			}
			return nil
		}

		if !cfg.retryable(err) {
			cfg.Logger.Debug("Error is not retryable, giving up",
				zap.Error(err),
				zap.Int("attempt", attempt),
			)
			return err
		}

		if attempt >= cfg.MaxAttempts {
			return fmt.Errorf("gave up after %d attempts: %w", attempt, err)
		}

		pause := cfg.backoff(attempt)
		cfg.Logger.Warn("Attempt failed, backing off",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.MaxAttempts),
			zap.Duration("backoff", pause),
		)

		if err := sleep(ctx, pause); err != nil {
			return err
		}
	}
}

// DoWithResult is Do for operations that produce a value.
func DoWithResult[T any](ctx context.Context, cfg Config, operation func() (T, error)) (T, error) {
	var out T
	err := Do(ctx, cfg, func() error {
		var opErr error
		out, opErr = operation()
		return opErr
	})
	return out, err
}

func (c Config) retryable(err error) bool {
	if len(c.RetryableErrors) == 0 {
		return true
	}
	for _, candidate := range c.RetryableErrors {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}

// backoff is the pause after the given failed attempt. It grows by
// Multiplier per attempt, capped at MaxDelay, with JitterFraction of
// random spread.
func (c Config) backoff(attempt int) time.Duration {
	pause := c.InitialDelay
	for i := 1; i < attempt; i++ {
		pause = time.Duration(float64(pause) * c.Multiplier)
		if pause >= c.MaxDelay {
			pause = c.MaxDelay
			break
		}
	}
	if c.JitterFraction > 0 {
		spread := c.JitterFraction * float64(pause)
		pause += time.Duration((rand.Float64()*2 - 1) * spread)
	}
	return pause
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
