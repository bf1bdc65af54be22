package handler

import (
	"strings"

	"acadmin/internal/approval/models"
	"acadmin/internal/approval/service"
	dErrors "acadmin/pkg/domain-errors"
	"acadmin/pkg/email"
	"acadmin/pkg/requestcontext"
)

// CreateApprovalRequest is the HTTP request body for POST /approvals.
type CreateApprovalRequest struct {
	ObjectType string         `json:"object_type" validate:"required,max=64"`
	Action     string         `json:"action" validate:"required,max=64"`
	ObjectID   string         `json:"object_id" validate:"max=128"`
	Requester  string         `json:"requester" validate:"max=255"`
	Payload    map[string]any `json:"payload"`
	ReasonNote string         `json:"reason_note" validate:"max=2000"`
}

// Validate implements httputil.Validatable.
func (r *CreateApprovalRequest) Validate() error {
	r.ObjectType = strings.TrimSpace(r.ObjectType)
	r.Action = strings.TrimSpace(r.Action)
	r.ObjectID = strings.TrimSpace(r.ObjectID)
	r.Requester = strings.TrimSpace(r.Requester)
	if r.ObjectType == "" || r.Action == "" {
		return dErrors.New(dErrors.CodeValidation, "object_type and action are required")
	}
	return nil
}

// toModel fills the requester from the principal; a display name in the
// body is kept.
func (r *CreateApprovalRequest) toModel(actor requestcontext.Principal) models.CreateRequest {
	requester := r.Requester
	if requester == "" {
		requester = email.DisplayName(actor.Email)
	}
	return models.CreateRequest{
		ObjectType:     r.ObjectType,
		Action:         r.Action,
		ObjectID:       r.ObjectID,
		Requester:      requester,
		RequesterEmail: actor.Email,
		Payload:        r.Payload,
		ReasonNote:     r.ReasonNote,
	}
}

// VoteRequest is the HTTP request body for POST /approvals/{id}/votes.
// The voter is always the authenticated principal.
type VoteRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject APPROVE REJECT"`
	Note     string `json:"note" validate:"max=2000"`
}

func (r *VoteRequest) Validate() error {
	r.Decision = strings.ToLower(strings.TrimSpace(r.Decision))
	r.Note = strings.TrimSpace(r.Note)
	return nil
}

// AssignApproverRequest is the HTTP request body for POST /admin/approver-assignments.
type AssignApproverRequest struct {
	ObjectType    string `json:"object_type" validate:"required,max=64"`
	Action        string `json:"action" validate:"required,max=64"`
	ApproverEmail string `json:"approver_email" validate:"required,email,max=255"`
	Degree        string `json:"degree" validate:"max=64"`
	Program       string `json:"program" validate:"max=64"`
	Branch        string `json:"branch" validate:"max=64"`
}

func (r *AssignApproverRequest) toInput() service.AssignInput {
	return service.AssignInput{
		ObjectType:    r.ObjectType,
		Action:        r.Action,
		ApproverEmail: r.ApproverEmail,
		Scope:         models.NewScope(r.Degree, r.Program, r.Branch),
	}
}

// UpsertRuleRequest is the HTTP request body for PUT /admin/approval-rules.
type UpsertRuleRequest struct {
	ObjectType            string `json:"object_type" validate:"required,max=64"`
	Action                string `json:"action" validate:"required,max=64"`
	RequireUserAssignment *bool  `json:"require_user_assignment"`
	FallbackToRoles       *bool  `json:"fallback_to_roles"`
	RequiresReason        bool   `json:"requires_reason"`
	MinApprovers          int    `json:"min_approvers" validate:"gte=0"`
	ApprovalRule          string `json:"approval_rule" validate:"omitempty,oneof=either_one quorum unanimous"`
	AutoApproveAfterHours *int   `json:"auto_approve_after_hours" validate:"omitempty,gte=1"`
	EscalateAfterHours    *int   `json:"escalate_after_hours" validate:"omitempty,gte=1"`
	LinkedPagePermission  string `json:"linked_page_permission" validate:"max=128"`
}

// toModel starts from the defaults so omitted flags keep their default value.
func (r *UpsertRuleRequest) toModel() models.RuleConfig {
	cfg := models.DefaultRuleConfig(r.ObjectType, r.Action)
	if r.RequireUserAssignment != nil {
		cfg.RequireUserAssignment = *r.RequireUserAssignment
	}
	if r.FallbackToRoles != nil {
		cfg.FallbackToRoles = *r.FallbackToRoles
	}
	cfg.RequiresReason = r.RequiresReason
	if r.MinApprovers > 0 {
		cfg.MinApprovers = r.MinApprovers
	}
	if r.ApprovalRule != "" {
		cfg.ApprovalRule = models.Rule(r.ApprovalRule)
	}
	cfg.AutoApproveAfterHours = r.AutoApproveAfterHours
	cfg.EscalateAfterHours = r.EscalateAfterHours
	cfg.LinkedPagePermission = strings.TrimSpace(r.LinkedPagePermission)
	return cfg
}
