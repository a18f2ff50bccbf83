package ports

import (
	"context"

	"github.com/okrboard/backend/internal/domain"
)

type TaskService interface {
	// CreateTask stores a task without going through the approval gate.
	CreateTask(ctx context.Context, payload domain.TaskPayload, createdBy string) (*domain.Task, error)
	// CreateTaskWithID is CreateTask with a caller-chosen id. An id that is
	// already taken fails as a task conflict.
	CreateTaskWithID(ctx context.Context, id string, payload domain.TaskPayload, createdBy string) (*domain.Task, error)
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)
	ListChildren(ctx context.Context, parentID string) ([]*domain.Task, error)

	CommitMilestones(ctx context.Context, id string, milestones []domain.Milestone) (*MutationResult, error)
	SetStatus(ctx context.Context, id string, status domain.TaskStatus) (*MutationResult, error)
	Reopen(ctx context.Context, id string, resetMilestones bool) (*MutationResult, error)
}

type CascadeService interface {
	PushStatusToChildren(ctx context.Context, parentID string, status domain.TaskStatus) (*CascadeResult, error)
	ReconcileParent(ctx context.Context, parentID string) (*ReconcileResult, error)
}

type SubtaskFactory interface {
	ExpandToSubtasks(ctx context.Context, templateID string, targets ExpandTargets, rights domain.AssignmentRights) (*ExpandResult, error)
}

type ApprovalGate interface {
	RequestOrCreate(ctx context.Context, payload domain.TaskPayload, rights domain.AssignmentRights, notes string) (*GateResult, error)
	Resolve(ctx context.Context, requestID string, decision ApprovalDecision) (*domain.ApprovalResponse, error)
	GetRequest(ctx context.Context, id string) (*domain.ApprovalRequest, error)
	ListRequests(ctx context.Context, status domain.ApprovalStatus) ([]domain.ApprovalRequest, error)
}

// MutationResult is returned by every primary task mutation. Secondary
// recompute failures are reported in Warnings; the primary write stands.
type MutationResult struct {
	Task     *domain.Task   `json:"task"`
	Changed  bool           `json:"changed"`
	Parent   *domain.Task   `json:"parent,omitempty"`
	Cascade  *CascadeResult `json:"cascade,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
}

type ChildFailure struct {
	TaskID string `json:"task_id"`
	Error  string `json:"error"`
}

type CascadeResult struct {
	ParentID string            `json:"parent_id"`
	Status   domain.TaskStatus `json:"status"`
	Updated  []string          `json:"updated"`
	Skipped  []string          `json:"skipped"`
	Failed   []ChildFailure    `json:"failed,omitempty"`
}

func (r *CascadeResult) Partial() bool {
	return r != nil && len(r.Failed) > 0
}

type ReconcileResult struct {
	Task     *domain.Task `json:"task"`
	Children int          `json:"children"`
	Changed  bool         `json:"changed"`
}

// ExpandTargets selects the expansion mode: DepartmentIDs for an
// organization template, MemberIDs for a department template.
type ExpandTargets struct {
	DepartmentIDs []string `json:"department_ids,omitempty"`
	MemberIDs     []string `json:"member_ids,omitempty"`
}

type ExpandResult struct {
	TemplateID string         `json:"template_id"`
	Created    []*domain.Task `json:"created"`
	Skipped    []string       `json:"skipped,omitempty"`
	Template   *domain.Task   `json:"template,omitempty"`
	Warnings   []string       `json:"warnings,omitempty"`
}

type GateResult struct {
	Task    *domain.Task            `json:"task,omitempty"`
	Request *domain.ApprovalRequest `json:"request,omitempty"`
}

// Pending reports whether creation was intercepted for approval.
func (r *GateResult) Pending() bool {
	return r != nil && r.Request != nil
}

type ApprovalDecision struct {
	Approve   bool          `json:"approve"`
	DecidedBy string        `json:"decided_by"`
	Message   string        `json:"message"`
	ExpandTo  ExpandTargets `json:"expand_to"`
}
