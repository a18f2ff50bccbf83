package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/okrboard/backend/internal/core/ports"
	"github.com/okrboard/backend/internal/domain"
)

type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
	// Sum is the milestone weight total on weight validation failures.
	Sum *int `json:"sum,omitempty"`
	// Weight is the out-of-range milestone weight, when that is the failure.
	Weight *int `json:"weight,omitempty"`
}

type CreateTaskRequest struct {
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	Details           string             `json:"details"`
	Category          string             `json:"category"`
	Priority          int                `json:"priority"`
	Scope             string             `json:"scope"`
	OrganizationID    string             `json:"organization_id"`
	DepartmentID      string             `json:"department_id"`
	AssignedToUserID  string             `json:"assigned_to_user_id"`
	AssignedToUserIDs []string           `json:"assigned_to_user_ids"`
	StartDate         *time.Time         `json:"start_date"`
	DueDate           *time.Time         `json:"due_date"`
	DurationHours     *float64           `json:"duration_hours"`
	Milestones        []domain.Milestone `json:"milestones"`
	// Notes justify the request when it is routed to approval.
	Notes string `json:"notes"`
}

func (r *CreateTaskRequest) Validate() []string {
	var errors []string

	if strings.TrimSpace(r.Title) == "" {
		errors = append(errors, "title is required")
	}
	if r.Scope == "" {
		errors = append(errors, "scope is required")
	} else if !domain.Scope(r.Scope).Valid() {
		errors = append(errors, "scope must be one of: individual, department, organization")
	}
	if r.Priority != 0 && (r.Priority < domain.MinPriority || r.Priority > domain.MaxPriority) {
		errors = append(errors, fmt.Sprintf("priority must be between %d and %d", domain.MinPriority, domain.MaxPriority))
	}
	if r.StartDate != nil && r.DueDate != nil && r.DueDate.Before(*r.StartDate) {
		errors = append(errors, "due_date must not be before start_date")
	}
	if r.DurationHours != nil && *r.DurationHours < 0 {
		errors = append(errors, "duration_hours must not be negative")
	}

	return errors
}

func (r *CreateTaskRequest) ToPayload() domain.TaskPayload {
	return domain.TaskPayload{
		Title:             strings.TrimSpace(r.Title),
		Description:       r.Description,
		Details:           r.Details,
		Category:          r.Category,
		Priority:          r.Priority,
		Scope:             domain.Scope(r.Scope),
		OrganizationID:    domain.StringPtr(r.OrganizationID),
		DepartmentID:      domain.StringPtr(r.DepartmentID),
		AssignedToUserID:  domain.StringPtr(r.AssignedToUserID),
		AssignedToUserIDs: r.AssignedToUserIDs,
		StartDate:         r.StartDate,
		DueDate:           r.DueDate,
		DurationHours:     r.DurationHours,
		Milestones:        r.Milestones,
	}
}

type CommitMilestonesRequest struct {
	Milestones []domain.Milestone `json:"milestones"`
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

func (r *SetStatusRequest) Validate() []string {
	if r.Status == "" {
		return []string{"status is required"}
	}
	if !domain.TaskStatus(r.Status).Valid() {
		return []string{"status must be one of: pending, in-progress, hold, completed, cancelled"}
	}
	return nil
}

type ReopenRequest struct {
	ResetMilestones bool `json:"reset_milestones"`
}

type ExpandRequest struct {
	DepartmentIDs []string `json:"department_ids"`
	MemberIDs     []string `json:"member_ids"`
}

func (r *ExpandRequest) Validate() []string {
	if len(r.DepartmentIDs) == 0 && len(r.MemberIDs) == 0 {
		return []string{"one of department_ids or member_ids is required"}
	}
	if len(r.DepartmentIDs) > 0 && len(r.MemberIDs) > 0 {
		return []string{"department_ids and member_ids cannot be combined"}
	}
	return nil
}

func (r *ExpandRequest) Targets() ports.ExpandTargets {
	return ports.ExpandTargets{DepartmentIDs: r.DepartmentIDs, MemberIDs: r.MemberIDs}
}

// CreateTaskResponse carries either the created task or the pending request.
type CreateTaskResponse struct {
	Status  string                  `json:"status"`
	Task    *domain.Task            `json:"task,omitempty"`
	Request *domain.ApprovalRequest `json:"approval_request,omitempty"`
}

func GateToResponse(res *ports.GateResult) CreateTaskResponse {
	if res.Pending() {
		return CreateTaskResponse{Status: "pending_approval", Request: res.Request}
	}
	return CreateTaskResponse{Status: "created", Task: res.Task}
}
