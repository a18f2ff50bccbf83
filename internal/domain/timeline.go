package domain

import "time"

// Task timeline event types
const (
	EventTypeTaskCreated           = "TASK_CREATED"
	EventTypeTaskStatusChanged     = "TASK_STATUS_CHANGED"
	EventTypeMilestonesCommitted   = "MILESTONES_COMMITTED"
	EventTypeTaskReopened          = "TASK_REOPENED"
	EventTypeParentRecomputed      = "PARENT_RECOMPUTED"
	EventTypeCascadePartialFailure = "CASCADE_PARTIAL_FAILURE"
	EventTypeSubtasksExpanded      = "SUBTASKS_EXPANDED"
	EventTypeApprovalRequested     = "APPROVAL_REQUESTED"
	EventTypeApprovalApproved      = "APPROVAL_APPROVED"
	EventTypeApprovalRejected      = "APPROVAL_REJECTED"
)

const (
	ResourceTypeTask     = "task"
	ResourceTypeApproval = "approval"
)

type EventStatus string

const (
	EventStatusPending EventStatus = "pending"
	EventStatusSuccess EventStatus = "success"
	EventStatusFailed  EventStatus = "failed"
)

type TimelineEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	Type         string      `gorm:"size:100;not null;index" json:"type"`
	Status       EventStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Message      string      `gorm:"type:text" json:"message"`
	Meta         JSONB       `gorm:"type:jsonb" json:"meta"`
	ResourceID   string      `gorm:"size:36;index" json:"resource_id"`
	ResourceType string      `gorm:"size:100;index" json:"resource_type"`
}

func (TimelineEvent) TableName() string {
	return "timeline_events"
}
