package service

import (
	"context"
	"errors"

	"acadmin/internal/approval/models"
	"acadmin/internal/approval/policy"
	policystore "acadmin/internal/approval/store/policy"
	dErrors "acadmin/pkg/domain-errors"
	"acadmin/pkg/platform/sentinel"
	"acadmin/pkg/requestcontext"
)

// AssignInput grants approval rights for a pair, optionally scoped.
type AssignInput struct {
	ObjectType    string
	Action        string
	ApproverEmail string
	Scope         models.Scope
}

// ResolveApprovers answers who may decide requests for the pair in scope.
func (s *Service) ResolveApprovers(ctx context.Context, objectType, action string, scope models.Scope) (policy.Resolution, error) {
	return s.resolver.ResolveApproverSet(ctx, objectType, action, scope)
}

// CanApprove reports whether principal may vote on the request.
func (s *Service) CanApprove(ctx context.Context, principal requestcontext.Principal, id int64) (bool, error) {
	req, err := s.loadRequest(ctx, id, false)
	if err != nil {
		return false, err
	}
	return s.resolver.CanUserApprove(ctx, principal.Email, principal.Roles, req.ObjectType, req.Action, req.Scope())
}

// AssignApprover creates an assignment or reactivates an identical one.
func (s *Service) AssignApprover(ctx context.Context, in AssignInput) (*models.ApproverAssignment, error) {
	a, err := models.NewApproverAssignment(in.ObjectType, in.Action, in.ApproverEmail, in.Scope,
		requestcontext.Actor(ctx).Email, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	saved, err := s.policies.SaveAssignment(ctx, a)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save approver assignment")
	}
	s.logAudit(ctx, "approver_assigned",
		"assignment_id", saved.ID,
		"object_type", saved.ObjectType,
		"action", saved.Action,
		"approver_email", saved.ApproverEmail,
	)
	return saved, nil
}

// DeactivateAssignment withdraws an active assignment.
func (s *Service) DeactivateAssignment(ctx context.Context, id int64) error {
	err := s.policies.DeactivateAssignment(ctx, id, requestcontext.Actor(ctx).Email, requestcontext.Now(ctx))
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "approver assignment not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeConflict, "approver assignment is already inactive")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate approver assignment")
	}
	s.logAudit(ctx, "approver_unassigned", "assignment_id", id)
	return nil
}

func (s *Service) ListAssignments(ctx context.Context, f policystore.AssignmentFilter) ([]*models.ApproverAssignment, error) {
	if f.ObjectType != "" || f.Action != "" {
		key := models.NewActionKey(f.ObjectType, f.Action)
		f.ObjectType, f.Action = key.ObjectType, key.Action
	}
	out, err := s.policies.ListAssignments(ctx, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list approver assignments")
	}
	return out, nil
}

// UpsertRuleConfig stores the rule for its pair and drops any cached copy.
func (s *Service) UpsertRuleConfig(ctx context.Context, cfg models.RuleConfig) (*models.RuleConfig, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	cfg.UpdatedBy = requestcontext.Actor(ctx).Email
	cfg.UpdatedAt = &now

	if err := s.policies.UpsertRuleConfig(ctx, &cfg); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save approval rule")
	}
	if s.ruleCache != nil {
		if err := s.ruleCache.Invalidate(ctx, cfg.Key()); err != nil {
			s.logger.WarnContext(ctx, "approval rule cache not invalidated",
				"request_id", requestcontext.RequestID(ctx),
				"key", cfg.Key().String(),
				"error", err,
			)
		}
	}
	s.logAudit(ctx, "approval_rule_updated",
		"key", cfg.Key().String(),
		"approval_rule", string(cfg.ApprovalRule),
		"min_approvers", cfg.MinApprovers,
	)
	return &cfg, nil
}

func (s *Service) ListRuleConfigs(ctx context.Context) ([]*models.RuleConfig, error) {
	out, err := s.policies.ListRuleConfigs(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list approval rules")
	}
	return out, nil
}

// SeedRuleDefaults inserts rules for pairs that have no configured row.
func (s *Service) SeedRuleDefaults(ctx context.Context, rules []models.RuleConfig) (int, error) {
	n, err := policystore.Seed(ctx, s.policies, rules)
	if err != nil {
		return n, dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed approval rules")
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "seeded approval rules", "inserted", n)
	}
	return n, nil
}
