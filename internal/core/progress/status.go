package progress

import (
	"fmt"

	"github.com/okrboard/backend/internal/domain"
)

// ValidateStatus rejects values outside the task state machine.
func ValidateStatus(s domain.TaskStatus) error {
	if !s.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return nil
}

// Resolve returns the next status of a task.
//
// An explicit transition always wins. Without one, the status is derived from
// the milestones: a fully completed valid set completes the task unless it is
// cancelled, and the first completed milestone moves a pending task to
// in-progress. Hold and cancelled are only ever entered explicitly.
func Resolve(current domain.TaskStatus, ms []domain.Milestone, explicit *domain.TaskStatus) domain.TaskStatus {
	if explicit != nil {
		return *explicit
	}
	return derive(current, ms)
}

func derive(current domain.TaskStatus, ms []domain.Milestone) domain.TaskStatus {
	if len(Active(ms)) == 0 {
		return current
	}
	if current == domain.TaskStatusCancelled {
		return current
	}
	if ValidateWeights(ms) == nil && ComputeProgress(ms) == 100 {
		return domain.TaskStatusCompleted
	}
	if current == domain.TaskStatusPending && anyCompleted(ms) {
		return domain.TaskStatusInProgress
	}
	return current
}

// byThreshold maps an aggregate percentage onto a status using the same
// thresholds as milestone derivation. Hold and cancelled stay sticky.
func byThreshold(current domain.TaskStatus, pct int) domain.TaskStatus {
	switch current {
	case domain.TaskStatusCancelled, domain.TaskStatusHold:
		return current
	}
	switch {
	case pct >= 100:
		return domain.TaskStatusCompleted
	case pct > 0:
		return domain.TaskStatusInProgress
	default:
		return current
	}
}
