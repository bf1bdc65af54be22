package models

import (
	"strings"
	"time"

	dErrors "acadmin/pkg/domain-errors"
)

// Rule is the decision rule applied when tallying votes.
type Rule string

const (
	// RuleEitherOne: the first vote decides.
	RuleEitherOne Rule = "either_one"
	// RuleQuorum: approved once approvals reach MinApprovers.
	RuleQuorum Rule = "quorum"
	// RuleUnanimous: every explicitly assigned approver must approve.
	RuleUnanimous Rule = "unanimous"
)

func (r Rule) IsValid() bool {
	switch r {
	case RuleEitherOne, RuleQuorum, RuleUnanimous:
		return true
	}
	return false
}

// RuleConfig is the per (object_type, action) policy record.
// AutoApproveAfterHours and EscalateAfterHours are stored for an external
// scheduler and never acted on here.
type RuleConfig struct {
	ObjectType            string     `json:"object_type" yaml:"object_type"`
	Action                string     `json:"action" yaml:"action"`
	RequireUserAssignment bool       `json:"require_user_assignment" yaml:"require_user_assignment"`
	FallbackToRoles       bool       `json:"fallback_to_roles" yaml:"fallback_to_roles"`
	RequiresReason        bool       `json:"requires_reason" yaml:"requires_reason"`
	MinApprovers          int        `json:"min_approvers" yaml:"min_approvers"`
	ApprovalRule          Rule       `json:"approval_rule" yaml:"approval_rule"`
	AutoApproveAfterHours *int       `json:"auto_approve_after_hours,omitempty" yaml:"auto_approve_after_hours"`
	EscalateAfterHours    *int       `json:"escalate_after_hours,omitempty" yaml:"escalate_after_hours"`
	LinkedPagePermission  string     `json:"linked_page_permission,omitempty" yaml:"linked_page_permission"`
	UpdatedBy             string     `json:"updated_by,omitempty" yaml:"-"`
	UpdatedAt             *time.Time `json:"updated_at,omitempty" yaml:"-"`
}

// DefaultRuleConfig is used for pairs without a configured row.
func DefaultRuleConfig(objectType, action string) RuleConfig {
	key := NewActionKey(objectType, action)
	return RuleConfig{
		ObjectType:            key.ObjectType,
		Action:                key.Action,
		RequireUserAssignment: true,
		FallbackToRoles:       true,
		MinApprovers:          1,
		ApprovalRule:          RuleEitherOne,
	}
}

func (c RuleConfig) Key() ActionKey {
	return NewActionKey(c.ObjectType, c.Action)
}

// Normalize lower-cases the key and fills zero MinApprovers and empty rule.
func (c RuleConfig) Normalize() RuleConfig {
	key := c.Key()
	c.ObjectType, c.Action = key.ObjectType, key.Action
	if c.MinApprovers < 1 {
		c.MinApprovers = 1
	}
	if c.ApprovalRule == "" {
		c.ApprovalRule = RuleEitherOne
	}
	return c
}

func (c RuleConfig) Validate() error {
	if c.ObjectType == "" || c.Action == "" {
		return dErrors.New(dErrors.CodeValidation, "object_type and action are required")
	}
	if !c.ApprovalRule.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown approval_rule "+string(c.ApprovalRule))
	}
	if c.MinApprovers < 1 {
		return dErrors.New(dErrors.CodeValidation, "min_approvers must be at least 1")
	}
	if c.AutoApproveAfterHours != nil && *c.AutoApproveAfterHours < 0 {
		return dErrors.New(dErrors.CodeValidation, "auto_approve_after_hours must not be negative")
	}
	if c.EscalateAfterHours != nil && *c.EscalateAfterHours < 0 {
		return dErrors.New(dErrors.CodeValidation, "escalate_after_hours must not be negative")
	}
	return nil
}

// Scope narrows an assignment or a request to an organisational unit.
// Empty fields are unset. Values are compared case-insensitively.
type Scope struct {
	Degree  string `json:"degree,omitempty"`
	Program string `json:"program,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

func NewScope(degree, program, branch string) Scope {
	return Scope{
		Degree:  strings.TrimSpace(degree),
		Program: strings.TrimSpace(program),
		Branch:  strings.TrimSpace(branch),
	}
}

func (s Scope) IsZero() bool {
	return s.Degree == "" && s.Program == "" && s.Branch == ""
}

// Covers reports whether an assignment scoped to s applies to a request in
// context target. Every set field of s must equal the matching field of target;
// unset fields match anything.
func (s Scope) Covers(target Scope) bool {
	return scopeFieldCovers(s.Degree, target.Degree) &&
		scopeFieldCovers(s.Program, target.Program) &&
		scopeFieldCovers(s.Branch, target.Branch)
}

func scopeFieldCovers(assigned, target string) bool {
	if assigned == "" {
		return true
	}
	return strings.EqualFold(assigned, target)
}

// ApproverAssignment grants one person approval rights for a key,
// optionally narrowed to a scope.
type ApproverAssignment struct {
	ID            int64      `json:"id"`
	ObjectType    string     `json:"object_type"`
	Action        string     `json:"action"`
	ApproverEmail string     `json:"approver_email"`
	Scope         Scope      `json:"scope"`
	IsActive      bool       `json:"is_active"`
	AssignedBy    string     `json:"assigned_by,omitempty"`
	AssignedAt    time.Time  `json:"assigned_at"`
	DeactivatedBy string     `json:"deactivated_by,omitempty"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

// NewApproverAssignment validates and builds an active assignment.
func NewApproverAssignment(objectType, action, email string, scope Scope, assignedBy string, now time.Time) (*ApproverAssignment, error) {
	key := NewActionKey(objectType, action)
	if key.ObjectType == "" || key.Action == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "object_type and action are required")
	}
	email = NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeValidation, "approver_email must be an email address")
	}
	return &ApproverAssignment{
		ObjectType:    key.ObjectType,
		Action:        key.Action,
		ApproverEmail: email,
		Scope:         scope,
		IsActive:      true,
		AssignedBy:    assignedBy,
		AssignedAt:    now,
	}, nil
}

// Applies reports whether an active assignment covers a request scope.
func (a *ApproverAssignment) Applies(scope Scope) bool {
	return a.IsActive && a.Scope.Covers(scope)
}

// Deactivate marks the assignment inactive; already inactive is an invariant violation.
func (a *ApproverAssignment) Deactivate(by string, now time.Time) error {
	if !a.IsActive {
		return dErrors.New(dErrors.CodeInvariantViolation, "assignment is already inactive")
	}
	a.IsActive = false
	a.DeactivatedBy = by
	a.DeactivatedAt = &now
	return nil
}
