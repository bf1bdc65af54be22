//go:build integration

package request_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"acadmin/internal/approval/models"
	"acadmin/internal/approval/store/request"
	"acadmin/pkg/platform/sentinel"
	"acadmin/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *request.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = request.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "approvals_votes", "approvals"))
}

func (s *PostgresStoreSuite) create(payload map[string]any) *models.ApprovalRequest {
	r, err := models.NewApprovalRequest(models.CreateRequest{
		ObjectType: "program", Action: "delete", ObjectID: "CS101",
		Requester: "admin", RequesterEmail: "admin@x.com", Payload: payload, ReasonNote: "merged",
	}, models.DefaultRuleConfig("program", "delete"), time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(context.Background(), r))
	return r
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	r := s.create(map[string]any{"cascade": true})
	s.NotZero(r.ID)

	found, err := s.store.FindByID(ctx, r.ID)
	s.Require().NoError(err)
	s.Equal("CS101", found.ObjectID)
	s.Equal(models.StatusPending, found.Status)
	s.Equal("merged", found.ReasonNote)
	s.JSONEq(`{"cascade": true}`, string(found.Payload))
	s.Nil(found.DecidedAt)

	found.ApplyDecision(models.StatusApproved, "p@x.com", "ok", time.Now().UTC())
	s.Require().NoError(s.store.UpdateStatus(ctx, found, models.StatusPending))

	decided, err := s.store.FindByID(ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, decided.Status)
	s.Equal("p@x.com", decided.Approver)
	s.NotNil(decided.DecidedAt)

	err = s.store.UpdateStatus(ctx, found, models.StatusPending)
	s.ErrorIs(err, sentinel.ErrInvalidState)

	_, err = s.store.FindByID(ctx, r.ID+1000)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListByStatus() {
	ctx := context.Background()
	s.create(nil)
	second := s.create(nil)

	open, err := s.store.ListByStatus(ctx, []models.Status{models.StatusPending})
	s.Require().NoError(err)
	s.Require().Len(open, 2)
	s.Equal(second.ID, open[0].ID)

	closed, err := s.store.ListByStatus(ctx, []models.Status{models.StatusApproved, models.StatusRejected})
	s.Require().NoError(err)
	s.Empty(closed)
}

// TestConcurrentDuplicateVotes checks the unique constraint admits one vote per voter.
func (s *PostgresStoreSuite) TestConcurrentDuplicateVotes() {
	ctx := context.Background()
	r := s.create(nil)

	const goroutines = 10
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := models.NewApprovalVote(models.VoteInput{ApprovalID: r.ID, VoterEmail: "a@x.com", Decision: "approve"}, time.Now())
			if err != nil {
				return
			}
			switch err := s.store.InsertVote(ctx, v); {
			case err == nil:
				successes.Add(1)
			case err == sentinel.ErrConflict:
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())

	votes, err := s.store.ListVotes(ctx, r.ID)
	s.Require().NoError(err)
	s.Len(votes, 1)
}
