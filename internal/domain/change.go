package domain

type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
)

// TaskChange is one entry of the live change stream.
type TaskChange struct {
	Type ChangeType `json:"type"`
	Task *Task      `json:"task"`
}

// ChangeFilter selects which changes a subscriber receives. Empty fields match anything.
type ChangeFilter struct {
	TaskID         string `json:"task_id,omitempty"`
	ParentID       string `json:"parent_id,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
	DepartmentID   string `json:"department_id,omitempty"`
}

func (f ChangeFilter) Matches(t *Task) bool {
	if t == nil {
		return false
	}
	if f.TaskID != "" && t.ID != f.TaskID {
		return false
	}
	if f.ParentID != "" && StringValue(t.ParentTaskID) != f.ParentID {
		return false
	}
	if f.OrganizationID != "" && StringValue(t.OrganizationID) != f.OrganizationID {
		return false
	}
	if f.DepartmentID != "" && StringValue(t.DepartmentID) != f.DepartmentID {
		return false
	}
	return true
}
