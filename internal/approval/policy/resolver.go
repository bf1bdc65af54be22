// Package policy decides who may approve a request and under which rule.
package policy

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"acadmin/internal/approval/models"
	dErrors "acadmin/pkg/domain-errors"
	"acadmin/pkg/platform/sentinel"
)

// Store reads the policy tables.
type Store interface {
	// FindRuleConfig returns sentinel.ErrNotFound for unconfigured pairs.
	FindRuleConfig(ctx context.Context, key models.ActionKey) (*models.RuleConfig, error)
	ListActiveAssignments(ctx context.Context, key models.ActionKey) ([]*models.ApproverAssignment, error)
}

// Source says where an approver set came from.
type Source string

const (
	SourceAssignments Source = "assignments"
	SourceRoles       Source = "roles"
	SourceNone        Source = "none"
)

// ApproverSet holds role names or literal emails, never both.
type ApproverSet struct {
	Source Source   `json:"source"`
	Roles  []string `json:"roles,omitempty"`
	Emails []string `json:"emails,omitempty"`
}

// Principals returns the set as plain strings.
func (a ApproverSet) Principals() []string {
	out := make([]string, 0, len(a.Roles)+len(a.Emails))
	out = append(out, a.Roles...)
	return append(out, a.Emails...)
}

// Allows reports whether a user with email and roles is in the set.
func (a ApproverSet) Allows(email string, roles []string) bool {
	email = models.NormalizeEmail(email)
	if email != "" && slices.Contains(a.Emails, email) {
		return true
	}
	for _, role := range roles {
		if slices.Contains(a.Roles, strings.ToLower(strings.TrimSpace(role))) {
			return true
		}
	}
	return false
}

// Resolution is the answer for one (object_type, action, scope).
type Resolution struct {
	Approvers ApproverSet       `json:"approvers"`
	Rule      models.RuleConfig `json:"rule"`
}

// ExplicitApprovers returns the email set when it came from assignments.
func (r Resolution) ExplicitApprovers() []string {
	if r.Approvers.Source != SourceAssignments {
		return nil
	}
	return r.Approvers.Emails
}

// Resolver answers policy questions from a Store.
type Resolver struct {
	store  Store
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func New(store Store, opts ...Option) *Resolver {
	r := &Resolver{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RuleConfig returns the configured rule for the pair, or the default.
func (r *Resolver) RuleConfig(ctx context.Context, objectType, action string) (models.RuleConfig, error) {
	key := models.NewActionKey(objectType, action)
	cfg, err := r.store.FindRuleConfig(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.DefaultRuleConfig(key.ObjectType, key.Action), nil
		}
		return models.RuleConfig{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load approval rule")
	}
	return cfg.Normalize(), nil
}

// ResolveApproverSet applies the rule: matching explicit assignments, when
// consulted and present, replace the role table entirely; otherwise the role
// table applies if the rule allows it.
func (r *Resolver) ResolveApproverSet(ctx context.Context, objectType, action string, scope models.Scope) (Resolution, error) {
	cfg, err := r.RuleConfig(ctx, objectType, action)
	if err != nil {
		return Resolution{}, err
	}
	res := Resolution{Rule: cfg, Approvers: ApproverSet{Source: SourceNone}}

	if cfg.RequireUserAssignment {
		assignments, err := r.store.ListActiveAssignments(ctx, cfg.Key())
		if err != nil {
			return Resolution{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load approver assignments")
		}
		var emails []string
		for _, a := range assignments {
			if a.Applies(scope) {
				emails = append(emails, models.NormalizeEmail(a.ApproverEmail))
			}
		}
		if len(emails) > 0 {
			slices.Sort(emails)
			res.Approvers = ApproverSet{Source: SourceAssignments, Emails: slices.Compact(emails)}
			return res, nil
		}
	}

	if cfg.FallbackToRoles || !cfg.RequireUserAssignment {
		res.Approvers = ApproverSet{Source: SourceRoles, Roles: FallbackRoles(cfg.ObjectType)}
	}
	return res, nil
}

// CanUserApprove reports whether the user's email or any of their roles is
// in the resolved approver set.
func (r *Resolver) CanUserApprove(ctx context.Context, email string, roles []string, objectType, action string, scope models.Scope) (bool, error) {
	res, err := r.ResolveApproverSet(ctx, objectType, action, scope)
	if err != nil {
		return false, err
	}
	return res.Approvers.Allows(email, roles), nil
}
