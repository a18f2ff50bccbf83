package domain

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// ==================== ENUMS ====================

type Scope string

const (
	ScopeIndividual   Scope = "individual"
	ScopeDepartment   Scope = "department"
	ScopeOrganization Scope = "organization"
)

func (s Scope) Valid() bool {
	switch s {
	case ScopeIndividual, ScopeDepartment, ScopeOrganization:
		return true
	}
	return false
}

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusHold       TaskStatus = "hold"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusHold, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status can only be left by reopening.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

const (
	MinPriority     = 1
	MaxPriority     = 5
	DefaultPriority = 3
)

// ==================== ENTITIES ====================

// Milestone is a weighted sub-step embedded in its task.
// Weight is relative importance and is independent of Completed.
type Milestone struct {
	ID               string     `json:"id"`
	Description      string     `json:"description"`
	Completed        bool       `json:"completed"`
	Weight           int        `json:"weight"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	AssignedToUserID *string    `json:"assigned_to_user_id,omitempty"`
}

type Task struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Revision  int64     `gorm:"not null;default:1" json:"revision"`

	Scope             Scope          `gorm:"size:20;not null;index" json:"scope"`
	OrganizationID    *string        `gorm:"size:64;index" json:"organization_id,omitempty"`
	DepartmentID      *string        `gorm:"size:64;index" json:"department_id,omitempty"`
	AssignedToUserID  *string        `gorm:"size:64;index" json:"assigned_to_user_id,omitempty"`
	AssignedToUserIDs pq.StringArray `gorm:"type:text[]" json:"assigned_to_user_ids,omitempty"`
	// MemberKey is the sorted member set of a member copy, unique per parent.
	MemberKey *string `gorm:"size:1024" json:"-"`
	CreatedBy         string         `gorm:"size:64;index" json:"created_by"`

	// One-directional pointer to the umbrella task; children are found by query.
	ParentTaskID *string `gorm:"size:36;index" json:"parent_task_id,omitempty"`

	Title         string     `gorm:"size:255;not null" json:"title"`
	Description   string     `gorm:"type:text" json:"description"`
	Details       string     `gorm:"type:text" json:"details"`
	Category      string     `gorm:"size:100" json:"category,omitempty"`
	Priority      int        `gorm:"not null;default:3" json:"priority"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	DurationHours *float64   `json:"duration_hours,omitempty"`

	Milestones datatypes.JSONSlice[Milestone] `gorm:"type:jsonb;not null;default:'[]'" json:"milestones"`

	Status      TaskStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Progress    int        `gorm:"not null;default:0" json:"progress"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (Task) TableName() string {
	return "tasks"
}

func (t *Task) HasParent() bool {
	return t.ParentTaskID != nil && *t.ParentTaskID != ""
}

// Clone returns a deep copy so callers never share milestone or pointer state.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.OrganizationID = cloneString(t.OrganizationID)
	c.DepartmentID = cloneString(t.DepartmentID)
	c.AssignedToUserID = cloneString(t.AssignedToUserID)
	c.ParentTaskID = cloneString(t.ParentTaskID)
	c.MemberKey = cloneString(t.MemberKey)
	if t.AssignedToUserIDs != nil {
		c.AssignedToUserIDs = append(pq.StringArray(nil), t.AssignedToUserIDs...)
	}
	if t.StartDate != nil {
		v := *t.StartDate
		c.StartDate = &v
	}
	if t.DueDate != nil {
		v := *t.DueDate
		c.DueDate = &v
	}
	if t.DurationHours != nil {
		v := *t.DurationHours
		c.DurationHours = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	c.Milestones = CloneMilestones(t.Milestones)
	return &c
}

func CloneMilestones(ms []Milestone) datatypes.JSONSlice[Milestone] {
	if ms == nil {
		return nil
	}
	out := make(datatypes.JSONSlice[Milestone], len(ms))
	for i, m := range ms {
		out[i] = m
		out[i].AssignedToUserID = cloneString(m.AssignedToUserID)
		if m.DueDate != nil {
			v := *m.DueDate
			out[i].DueDate = &v
		}
	}
	return out
}

// TaskPayload is the creatable part of a task. It is also the body of an
// approval request.
type TaskPayload struct {
	Title             string      `json:"title"`
	Description       string      `json:"description"`
	Details           string      `json:"details"`
	Category          string      `json:"category,omitempty"`
	Priority          int         `json:"priority"`
	Scope             Scope       `json:"scope"`
	OrganizationID    *string     `json:"organization_id,omitempty"`
	DepartmentID      *string     `json:"department_id,omitempty"`
	AssignedToUserID  *string     `json:"assigned_to_user_id,omitempty"`
	AssignedToUserIDs []string    `json:"assigned_to_user_ids,omitempty"`
	StartDate         *time.Time  `json:"start_date,omitempty"`
	DueDate           *time.Time  `json:"due_date,omitempty"`
	DurationHours     *float64    `json:"duration_hours,omitempty"`
	Milestones        []Milestone `json:"milestones,omitempty"`
}

// NewTask builds an unsaved pending task from the payload.
func (p TaskPayload) NewTask(createdBy string) *Task {
	priority := p.Priority
	if priority == 0 {
		priority = DefaultPriority
	}
	t := &Task{
		Scope:            p.Scope,
		OrganizationID:   cloneString(p.OrganizationID),
		DepartmentID:     cloneString(p.DepartmentID),
		AssignedToUserID: cloneString(p.AssignedToUserID),
		CreatedBy:        createdBy,
		Title:            p.Title,
		Description:      p.Description,
		Details:          p.Details,
		Category:         p.Category,
		Priority:         priority,
		StartDate:        p.StartDate,
		DueDate:          p.DueDate,
		DurationHours:    p.DurationHours,
		Milestones:       CloneMilestones(p.Milestones),
		Status:           TaskStatusPending,
	}
	if len(p.AssignedToUserIDs) > 0 {
		t.AssignedToUserIDs = append(pq.StringArray(nil), p.AssignedToUserIDs...)
	}
	return t
}
