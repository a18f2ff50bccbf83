// Package memory holds in-process stores that satisfy the repository ports.
// They back the memory database driver and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okrboard/backend/internal/core/ports"
	"github.com/okrboard/backend/internal/domain"
)

type TaskStore struct {
	tasks map[string]*domain.Task
	mu    sync.RWMutex
	now   func() time.Time
}

func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[string]*domain.Task), now: time.Now}
}

var _ ports.TaskRepository = (*TaskStore)(nil)

func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if _, ok := s.tasks[task.ID]; ok {
		return ports.ErrConflict
	}
	now := s.now()
	task.CreatedAt = now
	task.UpdatedAt = now
	task.Revision = 1
	s.tasks[task.ID] = task.Clone()
	return nil
}

func (s *TaskStore) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return task.Clone(), nil
}

func (s *TaskStore) Update(ctx context.Context, task *domain.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tasks[task.ID]
	if !ok {
		return ports.ErrNotFound
	}
	if stored.Revision != task.Revision {
		return ports.ErrConflict
	}
	next := task.Clone()
	next.CreatedAt = stored.CreatedAt
	next.UpdatedAt = s.now()
	next.Revision = stored.Revision + 1
	s.tasks[task.ID] = next

	task.Revision = next.Revision
	task.UpdatedAt = next.UpdatedAt
	return nil
}

func (s *TaskStore) ListByParent(ctx context.Context, parentID string) ([]*domain.Task, error) {
	return s.List(ctx, ports.TaskFilter{ParentID: parentID})
}

func (s *TaskStore) List(ctx context.Context, filter ports.TaskFilter) ([]*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Task, 0)
	for _, t := range s.tasks {
		if !matches(t, filter) {
			continue
		}
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *TaskStore) ListParentIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, t := range s.tasks {
		if t.HasParent() {
			seen[*t.ParentTaskID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func matches(t *domain.Task, f ports.TaskFilter) bool {
	if f.ParentID != "" && domain.StringValue(t.ParentTaskID) != f.ParentID {
		return false
	}
	if f.OrganizationID != "" && domain.StringValue(t.OrganizationID) != f.OrganizationID {
		return false
	}
	if f.DepartmentID != "" && domain.StringValue(t.DepartmentID) != f.DepartmentID {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Scope != "" && t.Scope != f.Scope {
		return false
	}
	return true
}
