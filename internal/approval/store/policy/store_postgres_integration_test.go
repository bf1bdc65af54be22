//go:build integration

package policy_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"acadmin/internal/approval/models"
	policystore "acadmin/internal/approval/store/policy"
	"acadmin/pkg/platform/sentinel"
	"acadmin/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *policystore.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = policystore.NewPostgres(s.postgres.DB)
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "approver_assignments", "approval_rules_config"))
}

func (s *PostgresStoreSuite) TestRuleConfigRoundTrip() {
	ctx := context.Background()
	hours := 48
	cfg := models.DefaultRuleConfig("program", "delete")
	cfg.MinApprovers = 2
	cfg.ApprovalRule = models.RuleQuorum
	cfg.AutoApproveAfterHours = &hours
	cfg.LinkedPagePermission = "programs"
	cfg.UpdatedBy = "admin@x.com"
	cfg.UpdatedAt = &s.now

	s.Require().NoError(s.store.UpsertRuleConfig(ctx, &cfg))

	found, err := s.store.FindRuleConfig(ctx, cfg.Key())
	s.Require().NoError(err)
	s.Equal(2, found.MinApprovers)
	s.Equal(models.RuleQuorum, found.ApprovalRule)
	s.Require().NotNil(found.AutoApproveAfterHours)
	s.Equal(48, *found.AutoApproveAfterHours)
	s.Nil(found.EscalateAfterHours)
	s.Equal("admin@x.com", found.UpdatedBy)

	cfg.MinApprovers = 3
	s.Require().NoError(s.store.UpsertRuleConfig(ctx, &cfg))
	found, err = s.store.FindRuleConfig(ctx, cfg.Key())
	s.Require().NoError(err)
	s.Equal(3, found.MinApprovers)

	inserted, err := s.store.InsertRuleConfigIfAbsent(ctx, &cfg)
	s.Require().NoError(err)
	s.False(inserted)

	_, err = s.store.FindRuleConfig(ctx, models.NewActionKey("nothing", "here"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestAssignmentLifecycle() {
	ctx := context.Background()
	a, err := models.NewApproverAssignment("faculty", "delete", "x@x.com", models.NewScope("BTECH", "", ""), "admin@x.com", s.now)
	s.Require().NoError(err)

	saved, err := s.store.SaveAssignment(ctx, a)
	s.Require().NoError(err)
	s.NotZero(saved.ID)
	s.Equal("BTECH", saved.Scope.Degree)

	s.Require().NoError(s.store.DeactivateAssignment(ctx, saved.ID, "admin@x.com", s.now))
	err = s.store.DeactivateAssignment(ctx, saved.ID, "admin@x.com", s.now)
	s.ErrorIs(err, sentinel.ErrInvalidState)
	err = s.store.DeactivateAssignment(ctx, saved.ID+100, "admin@x.com", s.now)
	s.ErrorIs(err, sentinel.ErrNotFound)

	active, err := s.store.ListActiveAssignments(ctx, models.NewActionKey("faculty", "delete"))
	s.Require().NoError(err)
	s.Empty(active)

	again, err := s.store.SaveAssignment(ctx, a)
	s.Require().NoError(err)
	s.Equal(saved.ID, again.ID)
	s.True(again.IsActive)
	s.Empty(again.DeactivatedBy)

	listed, err := s.store.ListAssignments(ctx, policystore.AssignmentFilter{ObjectType: "faculty", ApproverEmail: "X@x.com"})
	s.Require().NoError(err)
	s.Len(listed, 1)
}

func (s *PostgresStoreSuite) TestSeedDefaults() {
	ctx := context.Background()
	rules, err := policystore.LoadSeed("")
	s.Require().NoError(err)

	n, err := policystore.Seed(ctx, s.store, rules)
	s.Require().NoError(err)
	s.Equal(len(rules), n)

	n, err = policystore.Seed(ctx, s.store, rules)
	s.Require().NoError(err)
	s.Zero(n)
}
