package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okrboard/backend/internal/core/ports"
	"github.com/okrboard/backend/internal/infrastructure/logger"
)

// RetryConfig bounds retries of transient store failures.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Multiplier:     2.0,
	}
}

// permanentError marks an error that must not be retried.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func isRetriable(err error) bool {
	if err == nil {
		return false
	}
	var p *permanentError
	if errors.As(err, &p) {
		return false
	}
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, ports.ErrNotFound),
		errors.Is(err, ports.ErrConflict):
		return false
	}
	return true
}

// withRetry runs fn until it succeeds, fails permanently, or the retry budget
// is spent. An exhausted budget is reported as ErrUnavailable.
func withRetry(ctx context.Context, cfg RetryConfig, log *logger.Logger, operation string, fn func(context.Context) error) error {
	backoff := cfg.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				log.Infow("retry_succeeded", "operation", operation, "attempts", attempt+1)
			}
			return nil
		}
		if !isRetriable(err) {
			var p *permanentError
			if errors.As(err, &p) {
				return p.err
			}
			return err
		}
		lastErr = err
		if attempt == cfg.MaxRetries {
			break
		}

		log.Warnw("retry_scheduled", "operation", operation, "attempt", attempt+1, "backoff_ms", backoff.Milliseconds(), "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * cfg.Multiplier)
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	log.Errorw("retry_exhausted", "operation", operation, "attempts", cfg.MaxRetries+1, "error", lastErr)
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, operation, lastErr)
}
