package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/okrboard/backend/internal/core/ports"
	"github.com/okrboard/backend/internal/domain"
	"github.com/okrboard/backend/internal/infrastructure/logger"
)

type approvalGate struct {
	approvals ports.ApprovalRepository
	tasks     ports.TaskService
	factory   ports.SubtaskFactory
	activity  *activity
	logger    *logger.Logger
	retry     RetryConfig
	locks     *keyLocker
	now       func() time.Time
}

type ApprovalGateConfig struct {
	ApprovalRepo ports.ApprovalRepository
	TimelineRepo ports.TimelineRepository
	Tasks        ports.TaskService
	Factory      ports.SubtaskFactory
	Logger       *logger.Logger
	Retry        RetryConfig
	EnableLocks  bool
	Clock        func() time.Time

	locks *keyLocker
}

func NewApprovalGate(cfg ApprovalGateConfig) ports.ApprovalGate {
	locks := cfg.locks
	if locks == nil {
		locks = newKeyLocker(cfg.EnableLocks)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &approvalGate{
		approvals: cfg.ApprovalRepo,
		tasks:     cfg.Tasks,
		factory:   cfg.Factory,
		activity:  &activity{repo: cfg.TimelineRepo, logger: cfg.Logger},
		logger:    cfg.Logger,
		retry:     cfg.Retry,
		locks:     locks,
		now:       clock,
	}
}

// RequestOrCreate creates the task when the requester's rights allow it and
// otherwise stores an approval request carrying the full payload.
func (g *approvalGate) RequestOrCreate(ctx context.Context, payload domain.TaskPayload, rights domain.AssignmentRights, notes string) (*ports.GateResult, error) {
	payload = withRequesterContext(payload, rights)
	if err := validatePayload(payload); err != nil {
		return nil, err
	}
	switch payload.Scope {
	case domain.ScopeDepartment:
		if domain.StringValue(payload.DepartmentID) == "" {
			return nil, ErrMissingDepartment
		}
	case domain.ScopeOrganization:
		if domain.StringValue(payload.OrganizationID) == "" {
			return nil, ErrMissingOrganization
		}
	}

	if rights.CanCreateDirectly(payload.Scope) {
		task, err := g.tasks.CreateTask(ctx, payload, rights.UserID)
		if err != nil {
			return nil, err
		}
		return &ports.GateResult{Task: task}, nil
	}

	req := &domain.ApprovalRequest{
		Payload:       datatypes.NewJSONType(payload),
		ApprovalLevel: payload.Scope,
		Notes:         notes,
		RequestedBy:   rights.UserID,
		Status:        domain.ApprovalStatusPending,
	}
	err := withRetry(ctx, g.retry, g.logger, "approval_create", func(ctx context.Context) error {
		return g.approvals.Create(ctx, req)
	})
	if err != nil {
		g.logger.Errorw("approval_create_failed", "requested_by", rights.UserID, "scope", payload.Scope, "error", err)
		return nil, err
	}

	g.logger.Infow("approval_create_ok", "request_id", req.ID, "requested_by", rights.UserID, "level", req.ApprovalLevel)
	g.activity.record(ctx, domain.EventTypeApprovalRequested, domain.EventStatusPending, domain.ResourceTypeApproval, req.ID, "Task creation is waiting for approval", map[string]interface{}{
		"level":        req.ApprovalLevel,
		"requested_by": rights.UserID,
		"title":        payload.Title,
	})
	return &ports.GateResult{Request: req}, nil
}

// Resolve is the approval handoff: approve materializes the task (and
// optionally expands it), reject closes the request.
func (g *approvalGate) Resolve(ctx context.Context, requestID string, decision ports.ApprovalDecision) (*domain.ApprovalResponse, error) {
	unlock := g.locks.lockKeys("approval:" + requestID)
	defer unlock()

	req, err := g.approvals.GetByID(ctx, requestID)
	if err != nil {
		return nil, mapApprovalErr(err)
	}
	if req.Status != domain.ApprovalStatusPending {
		return nil, ErrApprovalAlreadyDecided
	}

	now := g.now()
	req.DecidedBy = domain.StringPtr(decision.DecidedBy)
	req.DecidedAt = &now
	req.DecisionMessage = decision.Message

	if !decision.Approve {
		req.Status = domain.ApprovalStatusRejected
		if err := g.saveRequest(ctx, req); err != nil {
			return nil, err
		}
		g.logger.Infow("approval_reject_ok", "request_id", requestID, "decided_by", decision.DecidedBy)
		g.activity.record(ctx, domain.EventTypeApprovalRejected, domain.EventStatusFailed, domain.ResourceTypeApproval, requestID, "Request rejected", map[string]interface{}{
			"decided_by": decision.DecidedBy,
			"message":    decision.Message,
		})
		msg := decision.Message
		if msg == "" {
			msg = "request rejected"
		}
		return &domain.ApprovalResponse{Success: false, Message: msg}, nil
	}

	task, err := g.materialize(ctx, req)
	if err != nil {
		g.logger.Errorw("approval_materialize_failed", "request_id", requestID, "error", err)
		return &domain.ApprovalResponse{Success: false, Message: err.Error()}, err
	}

	req.Status = domain.ApprovalStatusApproved
	req.TaskID = domain.StringPtr(task.ID)
	if err := g.saveRequest(ctx, req); err != nil {
		return &domain.ApprovalResponse{Success: false, TaskID: req.TaskID, Message: err.Error()}, err
	}

	message := "task created"
	if len(decision.ExpandTo.DepartmentIDs) > 0 || len(decision.ExpandTo.MemberIDs) > 0 {
		approver := domain.AssignmentRights{UserID: decision.DecidedBy, Unrestricted: true}
		expanded, err := g.factory.ExpandToSubtasks(ctx, task.ID, decision.ExpandTo, approver)
		if err != nil {
			g.logger.Warnw("approval_expand_failed", "request_id", requestID, "task_id", task.ID, "error", err)
			message = fmt.Sprintf("task created, expansion failed: %v", err)
		} else {
			message = fmt.Sprintf("task created with %d subtasks", len(expanded.Created))
		}
	}

	g.logger.Infow("approval_approve_ok", "request_id", requestID, "task_id", task.ID, "decided_by", decision.DecidedBy)
	g.activity.record(ctx, domain.EventTypeApprovalApproved, domain.EventStatusSuccess, domain.ResourceTypeApproval, requestID, message, map[string]interface{}{
		"decided_by": decision.DecidedBy,
		"task_id":    task.ID,
	})
	return &domain.ApprovalResponse{Success: true, TaskID: req.TaskID, Message: message}, nil
}

// materialize returns the task an approval produces. The task id is derived
// from the request id, so an approve retried after the request could not be
// saved finds the task the earlier attempt created instead of adding another.
func (g *approvalGate) materialize(ctx context.Context, req *domain.ApprovalRequest) (*domain.Task, error) {
	taskID := domain.StringValue(req.TaskID)
	if taskID == "" {
		taskID = approvedTaskID(req.ID)
	}

	task, err := g.tasks.GetTask(ctx, taskID)
	switch {
	case err == nil:
		g.logger.Infow("approval_materialize_reused", "request_id", req.ID, "task_id", taskID)
		return task, nil
	case !errors.Is(err, ErrTaskNotFound):
		return nil, err
	}
	return g.tasks.CreateTaskWithID(ctx, taskID, req.Payload.Data(), req.RequestedBy)
}

func approvedTaskID(requestID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("okrboard:approval:"+requestID)).String()
}

func (g *approvalGate) GetRequest(ctx context.Context, id string) (*domain.ApprovalRequest, error) {
	req, err := g.approvals.GetByID(ctx, id)
	if err != nil {
		return nil, mapApprovalErr(err)
	}
	return req, nil
}

func (g *approvalGate) ListRequests(ctx context.Context, status domain.ApprovalStatus) ([]domain.ApprovalRequest, error) {
	return g.approvals.List(ctx, status)
}

func (g *approvalGate) saveRequest(ctx context.Context, req *domain.ApprovalRequest) error {
	err := withRetry(ctx, g.retry, g.logger, "approval_update", func(ctx context.Context) error {
		return g.approvals.Update(ctx, req)
	})
	if err != nil {
		g.logger.Errorw("approval_update_failed", "request_id", req.ID, "error", err)
		return mapApprovalErr(err)
	}
	return nil
}

// withRequesterContext fills a missing department or organization from the
// requester's own context.
func withRequesterContext(p domain.TaskPayload, rights domain.AssignmentRights) domain.TaskPayload {
	if domain.StringValue(p.DepartmentID) == "" && p.Scope == domain.ScopeDepartment {
		p.DepartmentID = domain.StringPtr(rights.DepartmentID)
	}
	if domain.StringValue(p.OrganizationID) == "" && p.Scope != domain.ScopeIndividual {
		p.OrganizationID = domain.StringPtr(rights.OrganizationID)
	}
	return p
}
