package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/fatih/color"
	"github.com/okrboard/backend/internal/core/services"
	"github.com/okrboard/backend/internal/domain"
	"github.com/okrboard/backend/internal/infrastructure/logger"
	"github.com/okrboard/backend/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*services.Engine, *memory.TaskStore) {
	t.Helper()
	color.NoColor = true
	store := memory.NewTaskStore()
	engine := services.NewEngine(services.EngineConfig{
		TaskRepo:     store,
		ApprovalRepo: memory.NewApprovalStore(),
		TimelineRepo: memory.NewTimelineStore(),
		Feed:         services.NewChangeBroker(logger.NewNop()),
		Logger:       logger.NewNop(),
		Retry:        services.DefaultRetryConfig(),
		EnableLocks:  true,
	})
	return engine, store
}

func seedUmbrella(t *testing.T, store *memory.TaskStore, childProgress ...int) *domain.Task {
	t.Helper()
	ctx := context.Background()
	parent := &domain.Task{
		Title:          "Ship v2",
		Scope:          domain.ScopeOrganization,
		OrganizationID: domain.StringPtr("org-1"),
		Status:         domain.TaskStatusPending,
		Priority:       domain.DefaultPriority,
	}
	require.NoError(t, store.Create(ctx, parent))
	for i, p := range childProgress {
		status := domain.TaskStatusInProgress
		if p == 0 {
			status = domain.TaskStatusPending
		}
		child := &domain.Task{
			Title:        "Ship v2",
			Scope:        domain.ScopeDepartment,
			DepartmentID: domain.StringPtr(string(rune('a' + i))),
			ParentTaskID: domain.StringPtr(parent.ID),
			Status:       status,
			Progress:     p,
			Priority:     domain.DefaultPriority,
		}
		require.NoError(t, store.Create(ctx, child))
	}
	return parent
}

func TestReconcileAllHealsStaleUmbrella(t *testing.T) {
	engine, store := newTestEngine(t)
	parent := seedUmbrella(t, store, 50, 100)

	var out bytes.Buffer
	summary, err := reconcileAll(context.Background(), engine.Sweeper, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Changed)
	assert.Equal(t, 0, summary.Failed)
	assert.Contains(t, out.String(), parent.ID)

	stored, err := store.GetByID(context.Background(), parent.ID)
	require.NoError(t, err)
	assert.Greater(t, stored.Progress, 0)

	out.Reset()
	summary, err = reconcileAll(context.Background(), engine.Sweeper, []string{parent.ID}, &out)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Changed)
	assert.Equal(t, 1, summary.Unchanged)
}

func TestReconcileAllContinuesPastFailures(t *testing.T) {
	engine, store := newTestEngine(t)
	parent := seedUmbrella(t, store, 100)

	var out bytes.Buffer
	summary, err := reconcileAll(context.Background(), engine.Sweeper, []string{"missing", parent.ID}, &out)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Changed)
	assert.Contains(t, out.String(), "missing")
}

func TestReconcileAllStopsOnCancel(t *testing.T) {
	engine, store := newTestEngine(t)
	parent := seedUmbrella(t, store, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	_, err := reconcileAll(ctx, engine.Sweeper, []string{parent.ID}, &out)
	assert.Error(t, err)
}

func TestShowTaskListsChildren(t *testing.T) {
	engine, store := newTestEngine(t)
	parent := seedUmbrella(t, store, 40, 0)

	var out bytes.Buffer
	require.NoError(t, showTask(context.Background(), engine.Tasks, parent.ID, &out))
	assert.Contains(t, out.String(), "Ship v2")
	assert.Contains(t, out.String(), "Children (2):")
	assert.Contains(t, out.String(), "in-progress")
}
