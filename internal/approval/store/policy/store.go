// Package policy persists approver assignments and approval rule configs.
package policy

import "acadmin/internal/approval/models"

// AssignmentFilter narrows ListAssignments. Empty fields match everything.
type AssignmentFilter struct {
	ObjectType      string
	Action          string
	ApproverEmail   string
	IncludeInactive bool
}

func (f AssignmentFilter) matches(a *models.ApproverAssignment) bool {
	if !f.IncludeInactive && !a.IsActive {
		return false
	}
	if f.ObjectType != "" && a.ObjectType != f.ObjectType {
		return false
	}
	if f.Action != "" && a.Action != f.Action {
		return false
	}
	if f.ApproverEmail != "" && a.ApproverEmail != models.NormalizeEmail(f.ApproverEmail) {
		return false
	}
	return true
}
