package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okrboard/backend/internal/core/ports"
	"github.com/okrboard/backend/internal/core/progress"
	"github.com/okrboard/backend/internal/domain"
	"github.com/okrboard/backend/internal/infrastructure/logger"
)

type taskService struct {
	repo     ports.TaskRepository
	cascade  ports.CascadeService
	feed     ports.ChangeFeed
	activity *activity
	logger   *logger.Logger
	retry    RetryConfig
	locks    *keyLocker
	now      func() time.Time
}

type TaskServiceConfig struct {
	TaskRepo     ports.TaskRepository
	TimelineRepo ports.TimelineRepository
	Cascade      ports.CascadeService
	Feed         ports.ChangeFeed
	Logger       *logger.Logger
	Retry        RetryConfig
	EnableLocks  bool
	Clock        func() time.Time

	locks *keyLocker
}

func NewTaskService(cfg TaskServiceConfig) ports.TaskService {
	locks := cfg.locks
	if locks == nil {
		locks = newKeyLocker(cfg.EnableLocks)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &taskService{
		repo:     cfg.TaskRepo,
		cascade:  cfg.Cascade,
		feed:     cfg.Feed,
		activity: &activity{repo: cfg.TimelineRepo, logger: cfg.Logger},
		logger:   cfg.Logger,
		retry:    cfg.Retry,
		locks:    locks,
		now:      clock,
	}
}

func (s *taskService) CreateTask(ctx context.Context, payload domain.TaskPayload, createdBy string) (*domain.Task, error) {
	return s.CreateTaskWithID(ctx, "", payload, createdBy)
}

func (s *taskService) CreateTaskWithID(ctx context.Context, id string, payload domain.TaskPayload, createdBy string) (*domain.Task, error) {
	if err := validatePayload(payload); err != nil {
		return nil, err
	}
	task := payload.NewTask(createdBy)
	task.ID = id
	task.Milestones = progress.Committed(task.Milestones)
	task.Progress = progress.ComputeProgress(task.Milestones)
	task.Status = progress.Resolve(domain.TaskStatusPending, task.Milestones, nil)
	if task.Status == domain.TaskStatusCompleted {
		now := s.now()
		task.CompletedAt = &now
	}

	err := withRetry(ctx, s.retry, s.logger, "task_create", func(ctx context.Context) error {
		return s.repo.Create(ctx, task)
	})
	if err != nil {
		s.logger.Errorw("task_create_failed", "title", task.Title, "scope", task.Scope, "error", err)
		return nil, mapTaskErr(err)
	}

	s.logger.Infow("task_create_ok", "task_id", task.ID, "scope", task.Scope, "created_by", createdBy)
	s.activity.task(ctx, domain.EventTypeTaskCreated, domain.EventStatusSuccess, task.ID, "Task created", map[string]interface{}{
		"scope":      task.Scope,
		"created_by": createdBy,
		"milestones": len(task.Milestones),
	})
	publish(s.feed, domain.ChangeCreated, task)
	return task, nil
}

func (s *taskService) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapTaskErr(err)
	}
	return task, nil
}

func (s *taskService) ListTasks(ctx context.Context, filter ports.TaskFilter) ([]*domain.Task, error) {
	return s.repo.List(ctx, filter)
}

func (s *taskService) ListChildren(ctx context.Context, parentID string) ([]*domain.Task, error) {
	if _, err := s.repo.GetByID(ctx, parentID); err != nil {
		return nil, mapTaskErr(err)
	}
	return s.repo.ListByParent(ctx, parentID)
}

// CommitMilestones is the "done editing" boundary: weights are validated here
// and nowhere earlier.
func (s *taskService) CommitMilestones(ctx context.Context, id string, milestones []domain.Milestone) (*ports.MutationResult, error) {
	out, err := s.mutate(ctx, id, "task_commit_milestones", func(task *domain.Task) (progress.Outcome, error) {
		return progress.CommitMilestones(task, milestones, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.activity.task(ctx, domain.EventTypeMilestonesCommitted, domain.EventStatusSuccess, id, "Milestones committed", map[string]interface{}{
		"milestones": len(out.Task.Milestones),
		"progress":   out.Task.Progress,
		"status":     out.Task.Status,
	})
	return s.finish(ctx, out)
}

func (s *taskService) SetStatus(ctx context.Context, id string, status domain.TaskStatus) (*ports.MutationResult, error) {
	var previous domain.TaskStatus
	out, err := s.mutate(ctx, id, "task_set_status", func(task *domain.Task) (progress.Outcome, error) {
		previous = task.Status
		return progress.ApplyStatus(task, status, s.now())
	})
	if err != nil {
		return nil, err
	}
	if out.StatusChanged {
		s.activity.task(ctx, domain.EventTypeTaskStatusChanged, domain.EventStatusSuccess, id, fmt.Sprintf("Status changed from %s to %s", previous, out.Task.Status), map[string]interface{}{
			"from": previous,
			"to":   out.Task.Status,
		})
	}
	res, err := s.finish(ctx, out)
	if err != nil {
		return nil, err
	}
	if res.Cascade.Partial() {
		return res, &PartialCascadeError{ParentID: id, Failed: res.Cascade.Failed}
	}
	return res, nil
}

func (s *taskService) Reopen(ctx context.Context, id string, resetMilestones bool) (*ports.MutationResult, error) {
	var previous domain.TaskStatus
	out, err := s.mutate(ctx, id, "task_reopen", func(task *domain.Task) (progress.Outcome, error) {
		previous = task.Status
		return progress.Reopen(task, resetMilestones, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.activity.task(ctx, domain.EventTypeTaskReopened, domain.EventStatusSuccess, id, "Task reopened", map[string]interface{}{
		"from":             previous,
		"reset_milestones": resetMilestones,
		"progress":         out.Task.Progress,
	})
	return s.finish(ctx, out)
}

// mutate runs one read-derive-write cycle under the task's key lock. The
// derivation is pure; the write is a revision compare-and-swap.
func (s *taskService) mutate(ctx context.Context, id, op string, derive func(*domain.Task) (progress.Outcome, error)) (progress.Outcome, error) {
	unlock := s.locks.lockKeys(taskKey(id))
	defer unlock()

	var out progress.Outcome
	err := withRetry(ctx, s.retry, s.logger, op, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		next, err := derive(current)
		if err != nil {
			return permanent(err)
		}
		if next.Changed() {
			if err := s.repo.Update(ctx, next.Task); err != nil {
				return err
			}
		}
		out = next
		return nil
	})
	if err != nil {
		s.logger.Warnw(op+"_failed", "task_id", id, "error", err)
		return progress.Outcome{}, mapTaskErr(err)
	}

	s.logger.Infow(op+"_ok", "task_id", id, "status", out.Task.Status, "progress", out.Task.Progress, "changed", out.Changed())
	if out.Changed() {
		publish(s.feed, domain.ChangeUpdated, out.Task)
	}
	return out, nil
}

// finish executes the outcome's effects after the task lock is released.
// Failures here never undo the primary write; they are reported as warnings.
func (s *taskService) finish(ctx context.Context, out progress.Outcome) (*ports.MutationResult, error) {
	res := &ports.MutationResult{Task: out.Task, Changed: out.Changed()}
	for _, effect := range out.Effects {
		switch effect.Kind {
		case progress.EffectRecomputeParent:
			rec, err := s.cascade.ReconcileParent(ctx, effect.TaskID)
			if err != nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf("parent %s was not recomputed: %v", effect.TaskID, err))
				s.logger.Warnw("task_parent_recompute_failed", "task_id", out.Task.ID, "parent_id", effect.TaskID, "error", err)
				continue
			}
			res.Parent = rec.Task
		case progress.EffectPushToChildren:
			cascade, err := s.cascade.PushStatusToChildren(ctx, effect.TaskID, effect.Status)
			res.Cascade = cascade
			if err != nil {
				res.Warnings = append(res.Warnings, err.Error())
			}
		case progress.EffectReconcileUmbrella:
			rec, err := s.cascade.ReconcileParent(ctx, effect.TaskID)
			if err != nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf("umbrella %s was not recomputed: %v", effect.TaskID, err))
				s.logger.Warnw("task_umbrella_recompute_failed", "task_id", effect.TaskID, "error", err)
				continue
			}
			if rec.Children > 0 {
				res.Task = rec.Task
				res.Changed = res.Changed || rec.Changed
			}
		}
	}
	return res, nil
}

func validatePayload(p domain.TaskPayload) error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrTaskInvalidInput)
	}
	if !p.Scope.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidScope, p.Scope)
	}
	if p.Priority != 0 && (p.Priority < domain.MinPriority || p.Priority > domain.MaxPriority) {
		return ErrInvalidPriority
	}
	return progress.ValidateWeights(p.Milestones)
}
