package ports

import (
	"context"
	"errors"

	"github.com/okrboard/backend/internal/domain"
)

var (
	ErrNotFound = errors.New("store: record not found")
	// ErrConflict is returned by TaskRepository.Update when the stored
	// revision no longer matches the one that was read.
	ErrConflict = errors.New("store: revision conflict")
)

type TaskFilter struct {
	OrganizationID string
	DepartmentID   string
	ParentID       string
	Status         domain.TaskStatus
	Scope          domain.Scope
	Limit          int
}

type TaskRepository interface {
	// Create assigns ID and Revision and stores the task.
	Create(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	// Update is a compare-and-swap on task.Revision. On success task.Revision
	// is advanced; on mismatch ErrConflict is returned and the task is untouched.
	Update(ctx context.Context, task *domain.Task) error
	ListByParent(ctx context.Context, parentID string) ([]*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)
	// ListParentIDs returns the ids referenced by at least one parent_task_id.
	ListParentIDs(ctx context.Context) ([]string, error)
}

type ApprovalRepository interface {
	Create(ctx context.Context, req *domain.ApprovalRequest) error
	GetByID(ctx context.Context, id string) (*domain.ApprovalRequest, error)
	Update(ctx context.Context, req *domain.ApprovalRequest) error
	List(ctx context.Context, status domain.ApprovalStatus) ([]domain.ApprovalRequest, error)
}

type TimelineRepository interface {
	Create(ctx context.Context, event *domain.TimelineEvent) error
	GetByResource(ctx context.Context, resourceType string, resourceID string) ([]domain.TimelineEvent, error)
	GetAll(ctx context.Context, limit int) ([]domain.TimelineEvent, error)
}

// ChangeFeed is the live change-subscription capability.
type ChangeFeed interface {
	Publish(change domain.TaskChange)
	Subscribe(filter domain.ChangeFilter) (<-chan domain.TaskChange, func())
}
