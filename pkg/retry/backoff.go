// Package retry wraps fallible calls in exponential backoff. Used for the
// external collaborators (assignment service, ground truth, ClickHouse) whose
// transient failures must never kill an epoch tick.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Config bounds one backoff run.
type Config struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	Multiplier    float64
	JitterEnabled bool
}

// DefaultConfig is tuned for slow-moving epoch work: generous attempts,
// delays capped at a minute.
func DefaultConfig() Config {
	return Config{
		MaxRetries:    10,
		InitialDelay:  2 * time.Second,
		MaxDelay:      60 * time.Second,
		Multiplier:    2.0,
		JitterEnabled: true,
	}
}

// WithBackoff runs fn until it succeeds, the attempts run out, or ctx dies.
// The terminal error wraps fn's last failure.
func (cfg Config) WithBackoff(ctx context.Context, logger *zap.Logger, operation string, fn func() error) error {
	delay := cfg.InitialDelay

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}

		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info("Operation succeeded after retries",
					zap.String("operation", operation),
					zap.Int("attempts", attempt))
			}
			return nil
		}
		if attempt >= cfg.MaxRetries {
			return fmt.Errorf("%s failed after %d attempts: %w", operation, cfg.MaxRetries, err)
		}

		logger.Warn("Operation failed, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", cfg.MaxRetries),
			zap.Duration("retry_in", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(cfg.jittered(delay)):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
}

// WithBackoff is the package-level form for callers that carry no Config.
func WithBackoff(ctx context.Context, cfg Config, logger *zap.Logger, operation string, fn func() error) error {
	return cfg.WithBackoff(ctx, logger, operation, fn)
}

// jittered spreads a delay by up to ±15% so a fleet of validators on the
// same cadence does not hammer a recovering collaborator in lockstep.
func (cfg Config) jittered(d time.Duration) time.Duration {
	if !cfg.JitterEnabled {
		return d
	}
	spread := 0.85 + rand.Float64()*0.3
	return time.Duration(float64(d) * spread)
}
