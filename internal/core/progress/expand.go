package progress

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/okrboard/backend/internal/domain"
)

// CopyForDepartment builds the department-scope copy of an organization template.
func CopyForDepartment(template *domain.Task, departmentID string) *domain.Task {
	c := copyTemplate(template, nil)
	c.Scope = domain.ScopeDepartment
	c.DepartmentID = domain.StringPtr(departmentID)
	return c
}

// CopyForMembers builds the single multi-assignee copy of a department template.
// When exactly one member is targeted, milestones are assigned to that member.
func CopyForMembers(template *domain.Task, memberIDs []string) *domain.Task {
	members := NormalizeMembers(memberIDs)
	var owner *string
	if len(members) == 1 {
		owner = domain.StringPtr(members[0])
	}
	c := copyTemplate(template, owner)
	c.Scope = domain.ScopeIndividual
	c.AssignedToUserIDs = pq.StringArray(members)
	c.AssignedToUserID = owner
	c.MemberKey = domain.StringPtr(strings.Join(members, ","))
	return c
}

// NormalizeMembers trims, de-duplicates and sorts member ids.
func NormalizeMembers(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// MemberKey identifies the member set of a task for duplicate detection.
func MemberKey(ids []string) string {
	return strings.Join(NormalizeMembers(ids), ",")
}

func copyTemplate(template *domain.Task, milestoneOwner *string) *domain.Task {
	src := template.Clone()
	parentID := template.ID
	c := &domain.Task{
		OrganizationID: src.OrganizationID,
		DepartmentID:   src.DepartmentID,
		CreatedBy:      src.CreatedBy,
		ParentTaskID:   &parentID,
		Title:          src.Title,
		Description:    src.Description,
		Details:        src.Details,
		Category:       src.Category,
		Priority:       src.Priority,
		StartDate:      src.StartDate,
		DueDate:        src.DueDate,
		DurationHours:  src.DurationHours,
		Status:         domain.TaskStatusPending,
	}
	if len(src.Milestones) > 0 {
		ms := domain.CloneMilestones(Active(src.Milestones))
		for i := range ms {
			ms[i].ID = uuid.NewString()
			ms[i].Completed = false
			ms[i].AssignedToUserID = nil
			if milestoneOwner != nil {
				owner := *milestoneOwner
				ms[i].AssignedToUserID = &owner
			}
		}
		c.Milestones = ms
	}
	return c
}
