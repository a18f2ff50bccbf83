package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okrboard/backend/internal/core/ports"
	"github.com/okrboard/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetriable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "transient", err: errFlaky, want: true},
		{name: "wrapped transient", err: fmt.Errorf("update task: %w", errFlaky), want: true},
		{name: "not found", err: ports.ErrNotFound, want: false},
		{name: "conflict", err: fmt.Errorf("save: %w", ports.ErrConflict), want: false},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: false},
		{name: "permanent", err: permanent(errFlaky), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetriable(tt.err))
		})
	}
}

func TestWithRetry(t *testing.T) {
	log := logger.NewNop()
	cfg := fastRetry()

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), cfg, log, "op", func(context.Context) error {
			calls++
			if calls < 3 {
				return errFlaky
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("exhausted budget is unavailable", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), cfg, log, "op", func(context.Context) error {
			calls++
			return errFlaky
		})
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.Equal(t, cfg.MaxRetries+1, calls)
	})

	t.Run("permanent error is unwrapped and not retried", func(t *testing.T) {
		sentinel := errors.New("bad input")
		calls := 0
		err := withRetry(context.Background(), cfg, log, "op", func(context.Context) error {
			calls++
			return permanent(sentinel)
		})
		assert.Equal(t, sentinel, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		slow := RetryConfig{MaxRetries: 5, InitialBackoff: time.Hour, Multiplier: 2}
		calls := 0
		err := withRetry(ctx, slow, log, "op", func(context.Context) error {
			calls++
			cancel()
			return errFlaky
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestPartialCascadeErrorMessage(t *testing.T) {
	err := &PartialCascadeError{ParentID: "p1", Failed: []ports.ChildFailure{{TaskID: "c1"}, {TaskID: "c2"}}}
	assert.Equal(t, "cascade: some children were not updated: parent p1, failed children [c1, c2]", err.Error())
	assert.ErrorIs(t, err, ErrPartialCascade)
}
