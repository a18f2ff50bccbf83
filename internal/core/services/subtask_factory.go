package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/okrboard/backend/internal/core/ports"
	"github.com/okrboard/backend/internal/core/progress"
	"github.com/okrboard/backend/internal/domain"
	"github.com/okrboard/backend/internal/infrastructure/logger"
)

type subtaskFactory struct {
	repo     ports.TaskRepository
	cascade  ports.CascadeService
	feed     ports.ChangeFeed
	activity *activity
	logger   *logger.Logger
	retry    RetryConfig
	locks    *keyLocker
}

type SubtaskFactoryConfig struct {
	TaskRepo     ports.TaskRepository
	TimelineRepo ports.TimelineRepository
	Cascade      ports.CascadeService
	Feed         ports.ChangeFeed
	Logger       *logger.Logger
	Retry        RetryConfig
	EnableLocks  bool

	locks *keyLocker
}

func NewSubtaskFactory(cfg SubtaskFactoryConfig) ports.SubtaskFactory {
	locks := cfg.locks
	if locks == nil {
		locks = newKeyLocker(cfg.EnableLocks)
	}
	return &subtaskFactory{
		repo:     cfg.TaskRepo,
		cascade:  cfg.Cascade,
		feed:     cfg.Feed,
		activity: &activity{repo: cfg.TimelineRepo, logger: cfg.Logger},
		logger:   cfg.Logger,
		retry:    cfg.Retry,
		locks:    locks,
	}
}

// ExpandToSubtasks copies a template into narrower-scope children. Targets
// that already have a child of the template are skipped, so the call can be
// repeated safely.
func (f *subtaskFactory) ExpandToSubtasks(ctx context.Context, templateID string, targets ports.ExpandTargets, rights domain.AssignmentRights) (*ports.ExpandResult, error) {
	departments := progress.NormalizeMembers(targets.DepartmentIDs)
	members := progress.NormalizeMembers(targets.MemberIDs)
	if (len(departments) == 0) == (len(members) == 0) {
		return nil, ErrInvalidTargets
	}

	unlock := f.locks.lockKeys(taskKey(templateID))
	result, err := f.expandLocked(ctx, templateID, departments, members, rights)
	unlock()
	if err != nil {
		return nil, err
	}

	if len(result.Created) > 0 {
		rec, err := f.cascade.ReconcileParent(ctx, templateID)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("template %s was not recomputed: %v", templateID, err))
			f.logger.Warnw("factory_template_recompute_failed", "template_id", templateID, "error", err)
		} else {
			result.Template = rec.Task
		}
	}
	return result, nil
}

func (f *subtaskFactory) expandLocked(ctx context.Context, templateID string, departments, members []string, rights domain.AssignmentRights) (*ports.ExpandResult, error) {
	template, err := f.repo.GetByID(ctx, templateID)
	if err != nil {
		return nil, mapTaskErr(err)
	}
	if err := checkTemplate(template, len(departments) > 0, rights); err != nil {
		f.logger.Warnw("factory_expand_rejected", "template_id", templateID, "scope", template.Scope, "error", err)
		return nil, err
	}
	if err := progress.ValidateWeights(template.Milestones); err != nil {
		return nil, err
	}

	existing, err := f.repo.ListByParent(ctx, templateID)
	if err != nil {
		return nil, mapTaskErr(err)
	}

	var copies []*domain.Task
	var skipped []string
	if len(departments) > 0 {
		taken := make(map[string]bool, len(existing))
		for _, c := range existing {
			if c.Scope == domain.ScopeDepartment {
				taken[domain.StringValue(c.DepartmentID)] = true
			}
		}
		for _, dept := range departments {
			if taken[dept] {
				skipped = append(skipped, dept)
				continue
			}
			copies = append(copies, progress.CopyForDepartment(template, dept))
		}
	} else {
		key := progress.MemberKey(members)
		duplicate := false
		for _, c := range existing {
			if progress.MemberKey(c.AssignedToUserIDs) == key {
				duplicate = true
				break
			}
		}
		if duplicate {
			skipped = append(skipped, key)
		} else {
			copies = append(copies, progress.CopyForMembers(template, members))
		}
	}

	result := &ports.ExpandResult{TemplateID: templateID, Created: []*domain.Task{}, Skipped: skipped}
	var lastErr error
	for _, c := range copies {
		task := c
		err := withRetry(ctx, f.retry, f.logger, "factory_create_copy", func(ctx context.Context) error {
			return f.repo.Create(ctx, task)
		})
		if err != nil {
			target := domain.StringValue(task.DepartmentID)
			if task.Scope == domain.ScopeIndividual {
				target = progress.MemberKey(task.AssignedToUserIDs)
			}
			// Another writer created the same copy first.
			if errors.Is(err, ports.ErrConflict) {
				result.Skipped = append(result.Skipped, target)
				f.logger.Infow("factory_create_copy_exists", "template_id", templateID, "target", target)
				continue
			}
			lastErr = err
			result.Warnings = append(result.Warnings, fmt.Sprintf("copy for %s was not created: %v", target, err))
			f.logger.Errorw("factory_create_copy_failed", "template_id", templateID, "target", target, "error", err)
			continue
		}
		result.Created = append(result.Created, task)
		publish(f.feed, domain.ChangeCreated, task)
	}
	if len(result.Created) == 0 && lastErr != nil {
		return nil, lastErr
	}

	created := make([]string, 0, len(result.Created))
	for _, c := range result.Created {
		created = append(created, c.ID)
	}
	f.logger.Infow("factory_expand_ok", "template_id", templateID, "created", len(created), "skipped", len(skipped))
	f.activity.task(ctx, domain.EventTypeSubtasksExpanded, domain.EventStatusSuccess, templateID, fmt.Sprintf("Expanded into %d subtasks", len(created)), map[string]interface{}{
		"created":      created,
		"skipped":      skipped,
		"requested_by": rights.UserID,
		"departments":  len(departments),
		"members":      len(members),
	})
	return result, nil
}

// checkTemplate enforces the scope guard and the requester's rights before
// any copy is written.
func checkTemplate(template *domain.Task, toDepartments bool, rights domain.AssignmentRights) error {
	if toDepartments {
		if template.Scope != domain.ScopeOrganization {
			return fmt.Errorf("%w: department expansion needs an organization task, got %s", ErrWrongTemplateScope, template.Scope)
		}
		if !rights.Unrestricted {
			return ErrAssignmentForbidden
		}
		return nil
	}
	if template.Scope != domain.ScopeDepartment {
		return fmt.Errorf("%w: member assignment needs a department task, got %s", ErrWrongTemplateScope, template.Scope)
	}
	dept := domain.StringValue(template.DepartmentID)
	if dept == "" {
		return ErrMissingDepartment
	}
	if !rights.CanAssignWithin(dept) {
		return ErrAssignmentForbidden
	}
	return nil
}
