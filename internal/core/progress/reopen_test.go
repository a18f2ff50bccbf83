package progress

import (
	"errors"
	"testing"
	"time"

	"github.com/okrboard/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedTask() *domain.Task {
	done := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	parent := "umbrella"
	return &domain.Task{
		ID:           "t1",
		ParentTaskID: &parent,
		Status:       domain.TaskStatusCompleted,
		Progress:     100,
		CompletedAt:  &done,
		Milestones: []domain.Milestone{
			{ID: "a", Description: "design", Weight: 30, Completed: true},
			{ID: "b", Description: "build", Weight: 50, Completed: true},
			{ID: "c", Description: "ship", Weight: 20, Completed: true},
		},
	}
}

func TestReopenWithReset(t *testing.T) {
	task := completedTask()

	out, err := Reopen(task, true, time.Now())

	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, out.Task.Status)
	assert.Equal(t, 0, out.Task.Progress)
	assert.Nil(t, out.Task.CompletedAt)
	for i, ms := range out.Task.Milestones {
		assert.False(t, ms.Completed)
		assert.Equal(t, task.Milestones[i].Weight, ms.Weight)
		assert.Equal(t, task.Milestones[i].Description, ms.Description)
	}
	assert.True(t, task.Milestones[0].Completed, "input must not be mutated")
	assert.Equal(t, []Effect{
		{Kind: EffectRecomputeParent, TaskID: "umbrella"},
		{Kind: EffectReconcileUmbrella, TaskID: "t1"},
	}, out.Effects)
}

func TestReopenWithoutReset(t *testing.T) {
	out, err := Reopen(completedTask(), false, time.Now())

	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, out.Task.Status)
	assert.Equal(t, 100, out.Task.Progress)
	for _, ms := range out.Task.Milestones {
		assert.True(t, ms.Completed)
	}
}

func TestReopenCancelledWithoutMilestones(t *testing.T) {
	task := &domain.Task{ID: "t2", Status: domain.TaskStatusCancelled}

	out, err := Reopen(task, true, time.Now())

	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, out.Task.Status)
	assert.False(t, out.MilestonesSet)
}

func TestReopenRejectsActiveTask(t *testing.T) {
	for _, s := range []domain.TaskStatus{domain.TaskStatusPending, domain.TaskStatusInProgress, domain.TaskStatusHold} {
		_, err := Reopen(&domain.Task{Status: s}, true, time.Now())
		assert.True(t, errors.Is(err, ErrNotTerminal), "status %s", s)
	}
}
