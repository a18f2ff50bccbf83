package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okrboard/backend/internal/core/ports"
	"github.com/okrboard/backend/internal/domain"
	"github.com/okrboard/backend/internal/infrastructure/logger"
	"github.com/okrboard/backend/internal/infrastructure/memory"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("connection reset by peer")

// flakyRepo wraps a task store, counting writes and injecting failures.
type flakyRepo struct {
	ports.TaskRepository

	mu sync.Mutex
	// updates counts successful Update calls per task id.
	updates map[string]int
	// failUpdates makes the next n Update calls for a task id fail transiently.
	failUpdates map[string]int
	// conflictUpdates makes every Update for a task id report a revision conflict.
	conflictUpdates map[string]bool
	attempts        map[string]int
}

func newFlakyRepo(inner ports.TaskRepository) *flakyRepo {
	return &flakyRepo{
		TaskRepository:  inner,
		updates:         make(map[string]int),
		failUpdates:     make(map[string]int),
		conflictUpdates: make(map[string]bool),
		attempts:        make(map[string]int),
	}
}

func (r *flakyRepo) Update(ctx context.Context, task *domain.Task) error {
	r.mu.Lock()
	r.attempts[task.ID]++
	if r.conflictUpdates[task.ID] {
		r.mu.Unlock()
		return ports.ErrConflict
	}
	if r.failUpdates[task.ID] > 0 {
		r.failUpdates[task.ID]--
		r.mu.Unlock()
		return errFlaky
	}
	r.mu.Unlock()

	if err := r.TaskRepository.Update(ctx, task); err != nil {
		return err
	}
	r.mu.Lock()
	r.updates[task.ID]++
	r.mu.Unlock()
	return nil
}

func (r *flakyRepo) failNext(id string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failUpdates[id] = n
}

func (r *flakyRepo) conflictAlways(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflictUpdates[id] = true
}

func (r *flakyRepo) totalUpdates() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.updates {
		total += n
	}
	return total
}

func (r *flakyRepo) attemptsFor(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts[id]
}

type harness struct {
	*Engine
	repo      *flakyRepo
	approvals *memory.ApprovalStore
	timeline  *memory.TimelineStore
	broker    *ChangeBroker
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, Multiplier: 2}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logger.NewNop()
	h := &harness{
		repo:      newFlakyRepo(memory.NewTaskStore()),
		approvals: memory.NewApprovalStore(),
		timeline:  memory.NewTimelineStore(),
		broker:    NewChangeBroker(log),
	}
	h.Engine = NewEngine(EngineConfig{
		TaskRepo:           h.repo,
		ApprovalRepo:       h.approvals,
		TimelineRepo:       h.timeline,
		Feed:               h.broker,
		Logger:             log,
		Retry:              fastRetry(),
		CascadeConcurrency: 4,
		EnableLocks:        true,
	})
	return h
}

func (h *harness) create(t *testing.T, p domain.TaskPayload) *domain.Task {
	t.Helper()
	if p.Title == "" {
		p.Title = "task"
	}
	if p.Scope == "" {
		p.Scope = domain.ScopeIndividual
	}
	task, err := h.Tasks.CreateTask(context.Background(), p, "creator")
	require.NoError(t, err)
	return task
}

// seedChild stores a child of parentID directly, bypassing the services.
func (h *harness) seedChild(t *testing.T, parentID string, progress int, status domain.TaskStatus) *domain.Task {
	t.Helper()
	child := &domain.Task{
		Title:        "copy",
		Scope:        domain.ScopeDepartment,
		DepartmentID: domain.StringPtr("eng"),
		ParentTaskID: domain.StringPtr(parentID),
		Priority:     domain.DefaultPriority,
		Progress:     progress,
		Status:       status,
	}
	require.NoError(t, h.repo.Create(context.Background(), child))
	return child
}

func (h *harness) get(t *testing.T, id string) *domain.Task {
	t.Helper()
	task, err := h.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return task
}

func (h *harness) eventTypes(t *testing.T, resourceType, id string) []string {
	t.Helper()
	events, err := h.timeline.GetByResource(context.Background(), resourceType, id)
	require.NoError(t, err)
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

func milestone(id, desc string, weight int, done bool) domain.Milestone {
	return domain.Milestone{ID: id, Description: desc, Weight: weight, Completed: done}
}
