package dto

import (
	"github.com/okrboard/backend/internal/core/ports"
	"github.com/okrboard/backend/internal/domain"
)

type ResolveApprovalRequest struct {
	Approve  bool                `json:"approve"`
	Message  string              `json:"message"`
	ExpandTo ports.ExpandTargets `json:"expand_to"`
}

func (r *ResolveApprovalRequest) Validate() []string {
	if !r.Approve && (len(r.ExpandTo.DepartmentIDs) > 0 || len(r.ExpandTo.MemberIDs) > 0) {
		return []string{"expand_to is only allowed when approving"}
	}
	return nil
}

func (r *ResolveApprovalRequest) Decision(decidedBy string) ports.ApprovalDecision {
	return ports.ApprovalDecision{
		Approve:   r.Approve,
		DecidedBy: decidedBy,
		Message:   r.Message,
		ExpandTo:  r.ExpandTo,
	}
}

func ValidApprovalStatus(s string) bool {
	switch domain.ApprovalStatus(s) {
	case "", domain.ApprovalStatusPending, domain.ApprovalStatusApproved, domain.ApprovalStatusRejected:
		return true
	}
	return false
}
