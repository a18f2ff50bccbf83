package progress

import (
	"errors"
	"testing"
	"time"

	"github.com/okrboard/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Walks the design/build/ship example through the pure rules.
func TestMilestoneLifecycleScenario(t *testing.T) {
	now := time.Now()
	task := &domain.Task{ID: "T", Status: domain.TaskStatusInProgress}

	out, err := CommitMilestones(task, ms(m("design", 30, true), m("build", 50, true), m("ship", 20, false)), now)
	require.NoError(t, err)
	assert.Equal(t, 80, out.Task.Progress)
	assert.Equal(t, domain.TaskStatusInProgress, out.Task.Status)
	task = out.Task

	shipped := domain.CloneMilestones(task.Milestones)
	shipped[2].Completed = true
	out, err = CommitMilestones(task, shipped, now)
	require.NoError(t, err)
	assert.Equal(t, 100, out.Task.Progress)
	assert.Equal(t, domain.TaskStatusCompleted, out.Task.Status)
	task = out.Task

	out, err = ApplyStatus(task, domain.TaskStatusCancelled, now)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCancelled, out.Task.Status)
	assert.Nil(t, out.Task.CompletedAt)
	task = out.Task

	unshipped := domain.CloneMilestones(task.Milestones)
	unshipped[2].Completed = false
	out, err = CommitMilestones(task, unshipped, now)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCancelled, out.Task.Status)
	task = out.Task

	out, err = Reopen(task, true, now)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, out.Task.Status)
	for _, ms := range out.Task.Milestones {
		assert.False(t, ms.Completed)
	}
}

func TestCommitMilestonesRejectsBadWeights(t *testing.T) {
	task := &domain.Task{ID: "T", Status: domain.TaskStatusPending}

	_, err := CommitMilestones(task, ms(m("a", 50, false), m("b", 40, false)), time.Now())

	var werr *WeightError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, 90, werr.Sum)
}

func TestCommitMilestonesEffects(t *testing.T) {
	parent := "P"
	task := &domain.Task{ID: "C", ParentTaskID: &parent, Status: domain.TaskStatusPending}

	out, err := CommitMilestones(task, ms(m("a", 100, false)), time.Now())

	require.NoError(t, err)
	assert.Equal(t, []Effect{
		{Kind: EffectRecomputeParent, TaskID: "P"},
		{Kind: EffectReconcileUmbrella, TaskID: "C"},
	}, out.Effects)
}

func TestApplyStatus(t *testing.T) {
	now := time.Now()
	parent := "P"

	t.Run("unchanged status has no effects", func(t *testing.T) {
		task := &domain.Task{ID: "A", Status: domain.TaskStatusHold}
		out, err := ApplyStatus(task, domain.TaskStatusHold, now)
		require.NoError(t, err)
		assert.False(t, out.Changed())
		assert.Empty(t, out.Effects)
	})

	t.Run("change pushes down and recomputes up", func(t *testing.T) {
		task := &domain.Task{ID: "A", ParentTaskID: &parent, Status: domain.TaskStatusInProgress}
		out, err := ApplyStatus(task, domain.TaskStatusHold, now)
		require.NoError(t, err)
		assert.Equal(t, []Effect{
			{Kind: EffectPushToChildren, TaskID: "A", Status: domain.TaskStatusHold},
			{Kind: EffectRecomputeParent, TaskID: "P"},
		}, out.Effects)
	})

	t.Run("completing a task without milestones fills progress", func(t *testing.T) {
		task := &domain.Task{ID: "A", Status: domain.TaskStatusInProgress}
		out, err := ApplyStatus(task, domain.TaskStatusCompleted, now)
		require.NoError(t, err)
		assert.Equal(t, 100, out.Task.Progress)
		require.NotNil(t, out.Task.CompletedAt)
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := ApplyStatus(&domain.Task{}, "done", now)
		assert.True(t, errors.Is(err, ErrInvalidStatus))
	})
}

func TestPushedStatusBypassesDerivation(t *testing.T) {
	child := &domain.Task{
		ID:         "c",
		Status:     domain.TaskStatusInProgress,
		Milestones: ms(m("a", 100, false)),
	}

	out := PushedStatus(child, domain.TaskStatusCompleted, time.Now())

	assert.Equal(t, domain.TaskStatusCompleted, out.Task.Status)
	assert.Equal(t, 0, out.Task.Progress)
	assert.Empty(t, out.Effects)
}
