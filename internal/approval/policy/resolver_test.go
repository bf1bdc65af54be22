package policy_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"acadmin/internal/approval/models"
	"acadmin/internal/approval/policy"
	policystore "acadmin/internal/approval/store/policy"
	dErrors "acadmin/pkg/domain-errors"
)

type ResolverSuite struct {
	suite.Suite
	ctx      context.Context
	store    *policystore.InMemory
	resolver *policy.Resolver
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = policystore.NewInMemory()
	s.resolver = policy.New(s.store)
}

func (s *ResolverSuite) assign(objectType, action, email string, scope models.Scope) {
	a, err := models.NewApproverAssignment(objectType, action, email, scope, "admin@x.com", time.Now())
	s.Require().NoError(err)
	_, err = s.store.SaveAssignment(s.ctx, a)
	s.Require().NoError(err)
}

func (s *ResolverSuite) setRule(cfg models.RuleConfig) {
	s.Require().NoError(s.store.UpsertRuleConfig(s.ctx, &cfg))
}

func (s *ResolverSuite) TestDefaults() {
	s.Run("unconfigured pair uses default rule and role fallback", func() {
		res, err := s.resolver.ResolveApproverSet(s.ctx, "Degree", "Delete", models.Scope{})
		s.Require().NoError(err)
		s.Equal(models.RuleEitherOne, res.Rule.ApprovalRule)
		s.Equal(1, res.Rule.MinApprovers)
		s.True(res.Rule.RequireUserAssignment)
		s.Equal(policy.SourceRoles, res.Approvers.Source)
		s.ElementsMatch([]string{"superadmin", "principal", "director"}, res.Approvers.Roles)
		s.Nil(res.ExplicitApprovers())
	})

	s.Run("role holder can approve under fallback", func() {
		ok, err := s.resolver.CanUserApprove(s.ctx, "p@x.com", []string{"Principal"}, "faculty", "delete", models.Scope{})
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("user without role or assignment cannot approve", func() {
		ok, err := s.resolver.CanUserApprove(s.ctx, "clerk@x.com", []string{"staff"}, "faculty", "delete", models.Scope{})
		s.Require().NoError(err)
		s.False(ok)
	})
}

func (s *ResolverSuite) TestExplicitAssignmentSuppressesFallback() {
	s.assign("faculty", "delete", "x@x.com", models.Scope{})

	s.Run("principal with other email is not eligible", func() {
		ok, err := s.resolver.CanUserApprove(s.ctx, "principal@x.com", []string{"principal"}, "faculty", "delete", models.Scope{})
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("assigned email is eligible regardless of role", func() {
		ok, err := s.resolver.CanUserApprove(s.ctx, "X@x.com", nil, "faculty", "delete", models.Scope{})
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("resolution reports explicit emails only", func() {
		res, err := s.resolver.ResolveApproverSet(s.ctx, "faculty", "delete", models.Scope{})
		s.Require().NoError(err)
		s.Equal(policy.SourceAssignments, res.Approvers.Source)
		s.Equal([]string{"x@x.com"}, res.ExplicitApprovers())
		s.Empty(res.Approvers.Roles)
	})

	s.Run("other actions still fall back to roles", func() {
		ok, err := s.resolver.CanUserApprove(s.ctx, "principal@x.com", []string{"principal"}, "faculty", "edit", models.Scope{})
		s.Require().NoError(err)
		s.True(ok)
	})
}

func (s *ResolverSuite) TestScopeNarrowing() {
	s.assign("program", "delete", "btech@x.com", models.NewScope("BTECH", "", ""))
	s.assign("program", "delete", "cs@x.com", models.NewScope("BTECH", "CS101", ""))
	s.assign("program", "delete", "mba@x.com", models.NewScope("MBA", "", ""))

	cases := []struct {
		name   string
		scope  models.Scope
		emails []string
		source policy.Source
	}{
		{"degree scope matches degree-wide assignment only", models.NewScope("btech", "", ""), []string{"btech@x.com"}, policy.SourceAssignments},
		{"program scope adds program assignment", models.NewScope("BTECH", "CS101", ""), []string{"btech@x.com", "cs@x.com"}, policy.SourceAssignments},
		{"different program is not matched", models.NewScope("BTECH", "EE201", ""), []string{"btech@x.com"}, policy.SourceAssignments},
		{"unrelated degree", models.NewScope("MBA", "FIN", ""), []string{"mba@x.com"}, policy.SourceAssignments},
		{"no scope falls back to roles", models.Scope{}, nil, policy.SourceRoles},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			res, err := s.resolver.ResolveApproverSet(s.ctx, "program", "delete", tc.scope)
			s.Require().NoError(err)
			s.Equal(tc.source, res.Approvers.Source)
			s.Equal(tc.emails, res.Approvers.Emails)
		})
	}

	s.Run("institution-wide assignment applies everywhere", func() {
		s.assign("program", "delete", "registrar@x.com", models.Scope{})
		res, err := s.resolver.ResolveApproverSet(s.ctx, "program", "delete", models.Scope{})
		s.Require().NoError(err)
		s.Equal([]string{"registrar@x.com"}, res.Approvers.Emails)
	})
}

func (s *ResolverSuite) TestRuleFlags() {
	s.Run("fallback disabled leaves no approvers", func() {
		cfg := models.DefaultRuleConfig("branch", "delete")
		cfg.FallbackToRoles = false
		s.setRule(cfg)

		res, err := s.resolver.ResolveApproverSet(s.ctx, "branch", "delete", models.Scope{})
		s.Require().NoError(err)
		s.Equal(policy.SourceNone, res.Approvers.Source)
		s.Empty(res.Approvers.Principals())
	})

	s.Run("assignments ignored when not required", func() {
		cfg := models.DefaultRuleConfig("subject", "delete")
		cfg.RequireUserAssignment = false
		cfg.FallbackToRoles = false
		s.setRule(cfg)
		s.assign("subject", "delete", "x@x.com", models.Scope{})

		res, err := s.resolver.ResolveApproverSet(s.ctx, "subject", "delete", models.Scope{})
		s.Require().NoError(err)
		s.Equal(policy.SourceRoles, res.Approvers.Source)

		ok, err := s.resolver.CanUserApprove(s.ctx, "x@x.com", nil, "subject", "delete", models.Scope{})
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("configured rule is returned", func() {
		cfg := models.DefaultRuleConfig("degree", "edit")
		cfg.ApprovalRule = models.RuleQuorum
		cfg.MinApprovers = 2
		s.setRule(cfg)

		got, err := s.resolver.RuleConfig(s.ctx, "degree", "edit")
		s.Require().NoError(err)
		s.Equal(models.RuleQuorum, got.ApprovalRule)
		s.Equal(2, got.MinApprovers)
	})
}

type failingStore struct{}

func (failingStore) FindRuleConfig(context.Context, models.ActionKey) (*models.RuleConfig, error) {
	return nil, errors.New("connection reset")
}

func (failingStore) ListActiveAssignments(context.Context, models.ActionKey) ([]*models.ApproverAssignment, error) {
	return nil, nil
}

func (s *ResolverSuite) TestStoreFailureIsInternal() {
	r := policy.New(failingStore{})
	_, err := r.ResolveApproverSet(s.ctx, "degree", "delete", models.Scope{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestFallbackRolesReturnsCopy(t *testing.T) {
	roles := policy.FallbackRoles("degree")
	roles[0] = "mutated"
	if policy.FallbackRoles("degree")[0] == "mutated" {
		t.Fatal("fallback table was mutated through returned slice")
	}
}
