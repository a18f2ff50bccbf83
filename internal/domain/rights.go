package domain

// AssignmentRights describes what the requester may create or assign.
// It is computed once per request and passed down explicitly.
type AssignmentRights struct {
	UserID         string `json:"user_id"`
	Unrestricted   bool   `json:"unrestricted"`
	DepartmentID   string `json:"department_id,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
}

// CanCreateDirectly reports whether a task of the given scope bypasses approval.
func (r AssignmentRights) CanCreateDirectly(scope Scope) bool {
	if r.Unrestricted {
		return true
	}
	return scope == ScopeIndividual
}

// CanAssignWithin reports whether the requester may hand out work in a department.
func (r AssignmentRights) CanAssignWithin(departmentID string) bool {
	if r.Unrestricted {
		return true
	}
	return departmentID != "" && r.DepartmentID == departmentID
}
