package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okrboard/backend/internal/core/ports"
)

// Task errors
var (
	ErrTaskNotFound     = errors.New("task: not found")
	ErrTaskConflict     = errors.New("task: modified concurrently, reload and retry")
	ErrTaskInvalidInput = errors.New("task: invalid input")
	ErrInvalidPriority  = errors.New("task: priority must be between 1 and 5")
	ErrInvalidScope     = errors.New("task: invalid scope")
)

// Cascade errors
var (
	ErrPartialCascade = errors.New("cascade: some children were not updated")
)

// Subtask factory errors
var (
	ErrWrongTemplateScope  = errors.New("factory: template has the wrong scope for this expansion")
	ErrMissingDepartment   = errors.New("factory: department is required")
	ErrMissingOrganization = errors.New("factory: organization is required")
	ErrInvalidTargets      = errors.New("factory: exactly one of department_ids or member_ids is required")
	ErrAssignmentForbidden = errors.New("factory: requester may not assign this task")
)

// Approval errors
var (
	ErrApprovalNotFound       = errors.New("approval: not found")
	ErrApprovalAlreadyDecided = errors.New("approval: request already decided")
)

// Store errors
var (
	ErrUnavailable = errors.New("store: could not update, try again")
)

// PartialCascadeError lists the children that did not receive a pushed status.
// Writes that succeeded are kept.
type PartialCascadeError struct {
	ParentID string
	Failed   []ports.ChildFailure
}

func (e *PartialCascadeError) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		ids = append(ids, f.TaskID)
	}
	return fmt.Sprintf("%s: parent %s, failed children [%s]", ErrPartialCascade.Error(), e.ParentID, strings.Join(ids, ", "))
}

func (e *PartialCascadeError) Unwrap() error { return ErrPartialCascade }

func mapTaskErr(err error) error {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return ErrTaskNotFound
	case errors.Is(err, ports.ErrConflict):
		return ErrTaskConflict
	}
	return err
}

func mapApprovalErr(err error) error {
	if errors.Is(err, ports.ErrNotFound) {
		return ErrApprovalNotFound
	}
	return err
}
