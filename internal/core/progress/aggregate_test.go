package progress

import (
	"testing"
	"time"

	"github.com/okrboard/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name       string
		current    domain.TaskStatus
		children   []int
		wantPct    int
		wantStatus domain.TaskStatus
		wantOK     bool
	}{
		{"no children", domain.TaskStatusPending, nil, 0, domain.TaskStatusPending, false},
		{"mean rounds", domain.TaskStatusPending, []int{100, 0, 0}, 33, domain.TaskStatusInProgress, true},
		{"mean rounds up", domain.TaskStatusPending, []int{100, 100, 0}, 67, domain.TaskStatusInProgress, true},
		{"all done completes", domain.TaskStatusInProgress, []int{100, 100}, 100, domain.TaskStatusCompleted, true},
		{"zero keeps status", domain.TaskStatusPending, []int{0, 0}, 0, domain.TaskStatusPending, true},
		{"drop reopens completed umbrella", domain.TaskStatusCompleted, []int{100, 50}, 75, domain.TaskStatusInProgress, true},
		{"hold is sticky", domain.TaskStatusHold, []int{100, 100}, 100, domain.TaskStatusHold, true},
		{"cancelled is sticky", domain.TaskStatusCancelled, []int{100, 100}, 100, domain.TaskStatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pct, status, ok := Aggregate(tt.current, tt.children)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantPct, pct)
			assert.Equal(t, tt.wantStatus, status)
		})
	}
}

func TestAggregateTasks(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	parent := &domain.Task{ID: "p", Status: domain.TaskStatusInProgress, Progress: 40}
	children := []*domain.Task{{Progress: 100}, {Progress: 100}}

	out, ok := AggregateTasks(parent, children, now)

	require.True(t, ok)
	assert.Equal(t, 100, out.Task.Progress)
	assert.Equal(t, domain.TaskStatusCompleted, out.Task.Status)
	require.NotNil(t, out.Task.CompletedAt)
	assert.Equal(t, now, *out.Task.CompletedAt)
	assert.True(t, out.Changed())
	assert.Empty(t, out.Effects)
	assert.Equal(t, 40, parent.Progress, "input must not be mutated")

	_, ok = AggregateTasks(parent, nil, now)
	assert.False(t, ok)
}
