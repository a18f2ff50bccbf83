package domain

import (
	"time"

	"gorm.io/datatypes"
)

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// ApprovalRequest is a scoped task creation held for manager sign-off.
// ApprovalLevel mirrors the requested scope (department or organization).
type ApprovalRequest struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Payload       datatypes.JSONType[TaskPayload] `gorm:"type:jsonb;not null" json:"payload"`
	ApprovalLevel Scope                           `gorm:"size:20;not null" json:"approval_level"`
	Notes         string                          `gorm:"type:text" json:"notes"`
	RequestedBy   string                          `gorm:"size:64;index" json:"requested_by"`

	Status          ApprovalStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	DecidedBy       *string        `gorm:"size:64" json:"decided_by,omitempty"`
	DecidedAt       *time.Time     `json:"decided_at,omitempty"`
	DecisionMessage string         `gorm:"type:text" json:"decision_message,omitempty"`
	TaskID          *string        `gorm:"size:36;index" json:"task_id,omitempty"`
}

func (ApprovalRequest) TableName() string {
	return "approval_requests"
}

// ApprovalResponse is the result of converting a request into a live task.
type ApprovalResponse struct {
	Success bool    `json:"success"`
	TaskID  *string `json:"task_id,omitempty"`
	Message string  `json:"message,omitempty"`
}
