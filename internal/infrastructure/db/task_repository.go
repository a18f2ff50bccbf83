package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/okrboard/backend/internal/core/ports"
	"github.com/okrboard/backend/internal/domain"
	"github.com/okrboard/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type taskRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepository(db *gorm.DB, log *logger.Logger) ports.TaskRepository {
	return &taskRepository{db: db, log: log}
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	task.Revision = 1
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			r.log.Warnw("task_repo_create_duplicate", "id", task.ID, "parent_task_id", task.ParentTaskID)
			return ports.ErrConflict
		}
		r.log.Errorw("task_repo_create_failed", "title", task.Title, "scope", task.Scope, "error", err)
		return err
	}
	r.log.Infow("task_repo_create_ok", "id", task.ID, "scope", task.Scope)
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	var task domain.Task
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		r.log.Errorw("task_repo_get_failed", "id", id, "error", err)
		return nil, err
	}
	return &task, nil
}

// Update writes every column except the identity, guarded by the revision
// that was read. The guard and the increment happen in one statement.
func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	expected := task.Revision
	next := *task
	next.Revision = expected + 1
	next.UpdatedAt = time.Now()

	res := r.db.WithContext(ctx).
		Model(&domain.Task{ID: task.ID}).
		Where("revision = ?", expected).
		Select("*").
		Omit("id", "created_at").
		Updates(&next)
	if res.Error != nil {
		r.log.Errorw("task_repo_update_failed", "id", task.ID, "revision", expected, "error", res.Error)
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&domain.Task{}).Where("id = ?", task.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ports.ErrNotFound
		}
		r.log.Warnw("task_repo_update_conflict", "id", task.ID, "revision", expected)
		return ports.ErrConflict
	}

	task.Revision = next.Revision
	task.UpdatedAt = next.UpdatedAt
	r.log.Infow("task_repo_update_ok", "id", task.ID, "revision", task.Revision, "status", task.Status, "progress", task.Progress)
	return nil
}

func (r *taskRepository) ListByParent(ctx context.Context, parentID string) ([]*domain.Task, error) {
	return r.List(ctx, ports.TaskFilter{ParentID: parentID})
}

func (r *taskRepository) List(ctx context.Context, filter ports.TaskFilter) ([]*domain.Task, error) {
	q := r.db.WithContext(ctx).Model(&domain.Task{})
	if filter.ParentID != "" {
		q = q.Where("parent_task_id = ?", filter.ParentID)
	}
	if filter.OrganizationID != "" {
		q = q.Where("organization_id = ?", filter.OrganizationID)
	}
	if filter.DepartmentID != "" {
		q = q.Where("department_id = ?", filter.DepartmentID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Scope != "" {
		q = q.Where("scope = ?", filter.Scope)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var tasks []*domain.Task
	if err := q.Order("created_at asc, id asc").Find(&tasks).Error; err != nil {
		r.log.Errorw("task_repo_list_failed", "parent_id", filter.ParentID, "error", err)
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) ListParentIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("parent_task_id IS NOT NULL AND parent_task_id <> ''").
		Distinct().
		Order("parent_task_id").
		Pluck("parent_task_id", &ids).Error
	if err != nil {
		r.log.Errorw("task_repo_list_parents_failed", "error", err)
		return nil, err
	}
	r.log.Infow("task_repo_list_parents_ok", "count", len(ids))
	return ids, nil
}
