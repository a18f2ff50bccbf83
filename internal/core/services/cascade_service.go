package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okrboard/backend/internal/core/ports"
	"github.com/okrboard/backend/internal/core/progress"
	"github.com/okrboard/backend/internal/domain"
	"github.com/okrboard/backend/internal/infrastructure/logger"
)

const defaultCascadeConcurrency = 8

type cascadeService struct {
	repo        ports.TaskRepository
	feed        ports.ChangeFeed
	activity    *activity
	logger      *logger.Logger
	retry       RetryConfig
	concurrency int
	locks       *keyLocker
	now         func() time.Time
}

type CascadeServiceConfig struct {
	TaskRepo     ports.TaskRepository
	TimelineRepo ports.TimelineRepository
	Feed         ports.ChangeFeed
	Logger       *logger.Logger
	Retry        RetryConfig
	// Concurrency bounds how many children are written at once.
	Concurrency int
	EnableLocks bool
	Clock       func() time.Time

	locks *keyLocker
}

func NewCascadeService(cfg CascadeServiceConfig) ports.CascadeService {
	locks := cfg.locks
	if locks == nil {
		locks = newKeyLocker(cfg.EnableLocks)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultCascadeConcurrency
	}
	return &cascadeService{
		repo:        cfg.TaskRepo,
		feed:        cfg.Feed,
		activity:    &activity{repo: cfg.TimelineRepo, logger: cfg.Logger},
		logger:      cfg.Logger,
		retry:       cfg.Retry,
		concurrency: concurrency,
		locks:       locks,
		now:         clock,
	}
}

// PushStatusToChildren writes status onto every child of parentID. Children
// already at status are skipped, so repeating a push performs no writes. Each
// child is written independently; failed children are listed in the result
// and reported as a *PartialCascadeError without undoing the others.
func (s *cascadeService) PushStatusToChildren(ctx context.Context, parentID string, status domain.TaskStatus) (*ports.CascadeResult, error) {
	if err := progress.ValidateStatus(status); err != nil {
		return nil, err
	}

	var children []*domain.Task
	err := withRetry(ctx, s.retry, s.logger, "cascade_list_children", func(ctx context.Context) error {
		var err error
		children, err = s.repo.ListByParent(ctx, parentID)
		return err
	})
	if err != nil {
		return nil, mapTaskErr(err)
	}

	result := &ports.CascadeResult{ParentID: parentID, Status: status, Updated: []string{}, Skipped: []string{}}
	var mu sync.Mutex

	// Children the listing already shows at status; merged once the
	// workers are done since they append to result under mu.
	var listed []string

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, child := range children {
		if child.Status == status {
			listed = append(listed, child.ID)
			continue
		}
		childID := child.ID
		g.Go(func() error {
			written, err := s.pushOne(ctx, childID, status)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Failed = append(result.Failed, ports.ChildFailure{TaskID: childID, Error: err.Error()})
			case written:
				result.Updated = append(result.Updated, childID)
			default:
				result.Skipped = append(result.Skipped, childID)
			}
			return nil
		})
	}
	_ = g.Wait()
	result.Skipped = append(result.Skipped, listed...)

	sort.Strings(result.Updated)
	sort.Strings(result.Skipped)
	sort.Slice(result.Failed, func(i, j int) bool { return result.Failed[i].TaskID < result.Failed[j].TaskID })

	if result.Partial() {
		failed := make([]string, 0, len(result.Failed))
		for _, f := range result.Failed {
			failed = append(failed, f.TaskID)
		}
		s.logger.Warnw("cascade_push_partial", "parent_id", parentID, "status", status, "updated", len(result.Updated), "failed", failed)
		s.activity.task(ctx, domain.EventTypeCascadePartialFailure, domain.EventStatusFailed, parentID, "Status was not pushed to every child", map[string]interface{}{
			"status":  status,
			"failed":  failed,
			"updated": result.Updated,
		})
		return result, &PartialCascadeError{ParentID: parentID, Failed: result.Failed}
	}

	s.logger.Infow("cascade_push_ok", "parent_id", parentID, "status", status, "updated", len(result.Updated), "skipped", len(result.Skipped))
	return result, nil
}

// pushOne re-reads the child so a concurrent writer is either observed or
// overwritten on the next attempt.
func (s *cascadeService) pushOne(ctx context.Context, childID string, status domain.TaskStatus) (bool, error) {
	unlock := s.locks.lockKeys(taskKey(childID))
	defer unlock()

	var written *domain.Task
	err := withRetry(ctx, s.retry, s.logger, "cascade_push_child", func(ctx context.Context) error {
		written = nil
		child, err := s.repo.GetByID(ctx, childID)
		if err != nil {
			return err
		}
		if child.Status == status {
			return nil
		}
		out := progress.PushedStatus(child, status, s.now())
		if err := s.repo.Update(ctx, out.Task); err != nil {
			if errors.Is(err, ports.ErrConflict) {
				return fmt.Errorf("child %s changed during push", childID)
			}
			return err
		}
		written = out.Task
		return nil
	})
	if err != nil {
		s.logger.Warnw("cascade_push_child_failed", "task_id", childID, "status", status, "error", err)
		return false, mapTaskErr(err)
	}
	if written == nil {
		return false, nil
	}
	publish(s.feed, domain.ChangeUpdated, written)
	return true, nil
}

// ReconcileParent re-aggregates an umbrella task from its children. It is
// idempotent and writes only when progress or status differ, so it can be
// re-run at any time to heal a partially applied cascade.
func (s *cascadeService) ReconcileParent(ctx context.Context, parentID string) (*ports.ReconcileResult, error) {
	unlock := s.locks.lockKeys(taskKey(parentID))
	defer unlock()

	var (
		out      progress.Outcome
		previous *domain.Task
		children int
	)
	err := withRetry(ctx, s.retry, s.logger, "cascade_reconcile_parent", func(ctx context.Context) error {
		parent, err := s.repo.GetByID(ctx, parentID)
		if err != nil {
			return err
		}
		kids, err := s.repo.ListByParent(ctx, parentID)
		if err != nil {
			return err
		}
		next, _ := progress.AggregateTasks(parent, kids, s.now())
		if next.Changed() {
			if err := s.repo.Update(ctx, next.Task); err != nil {
				if errors.Is(err, ports.ErrConflict) {
					return fmt.Errorf("parent %s changed during reconcile", parentID)
				}
				return err
			}
		}
		out, previous, children = next, parent, len(kids)
		return nil
	})
	if err != nil {
		s.logger.Warnw("cascade_reconcile_parent_failed", "parent_id", parentID, "error", err)
		return nil, mapTaskErr(err)
	}

	res := &ports.ReconcileResult{Task: out.Task, Children: children, Changed: out.Changed()}
	if !res.Changed {
		return res, nil
	}

	s.logger.Infow("cascade_reconcile_parent_ok", "parent_id", parentID, "children", children, "progress", out.Task.Progress, "status", out.Task.Status)
	s.activity.task(ctx, domain.EventTypeParentRecomputed, domain.EventStatusSuccess, parentID, "Umbrella task recomputed from its children", map[string]interface{}{
		"children":      children,
		"from_progress": previous.Progress,
		"to_progress":   out.Task.Progress,
		"from_status":   previous.Status,
		"to_status":     out.Task.Status,
	})
	publish(s.feed, domain.ChangeUpdated, out.Task)
	return res, nil
}
