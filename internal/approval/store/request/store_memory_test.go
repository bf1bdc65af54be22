package request

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"acadmin/internal/approval/models"
	"acadmin/pkg/platform/sentinel"
)

type InMemorySuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *InMemorySuite) create(objectID string, at time.Time) *models.ApprovalRequest {
	r, err := models.NewApprovalRequest(models.CreateRequest{
		ObjectType: "degree", Action: "delete", ObjectID: objectID, Requester: "admin@x.com",
	}, models.DefaultRuleConfig("degree", "delete"), at)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, r))
	return r
}

func (s *InMemorySuite) TestRequests() {
	s.Run("create assigns ids and find returns a copy", func() {
		r := s.create("BTECH", s.now)
		s.Equal(int64(1), r.ID)

		found, err := s.store.FindByID(s.ctx, r.ID)
		s.Require().NoError(err)
		found.Status = models.StatusApproved

		again, err := s.store.FindByID(s.ctx, r.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, again.Status)
	})

	s.Run("missing request is not found", func() {
		_, err := s.store.FindByID(s.ctx, 404)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("update is guarded on the previous status", func() {
		r := s.create("MBA", s.now)
		r.ApplyDecision(models.StatusApproved, "p@x.com", "", s.now)
		s.Require().NoError(s.store.UpdateStatus(s.ctx, r, models.StatusPending))

		r.ApplyDecision(models.StatusRejected, "q@x.com", "", s.now)
		err := s.store.UpdateStatus(s.ctx, r, models.StatusPending)
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})
}

func (s *InMemorySuite) TestListByStatus() {
	older := s.create("A", s.now)
	newer := s.create("B", s.now.Add(time.Minute))
	done := s.create("C", s.now.Add(2*time.Minute))
	done.ApplyDecision(models.StatusRejected, "p@x.com", "", s.now)
	s.Require().NoError(s.store.UpdateStatus(s.ctx, done, models.StatusPending))

	open, err := s.store.ListByStatus(s.ctx, []models.Status{models.StatusPending, models.StatusUnderReview})
	s.Require().NoError(err)
	s.Require().Len(open, 2)
	s.Equal(newer.ID, open[0].ID)
	s.Equal(older.ID, open[1].ID)

	closed, err := s.store.ListByStatus(s.ctx, []models.Status{models.StatusApproved, models.StatusRejected})
	s.Require().NoError(err)
	s.Require().Len(closed, 1)
	s.Equal(done.ID, closed[0].ID)
}

func (s *InMemorySuite) TestVotes() {
	r := s.create("BTECH", s.now)
	vote := func(email string) error {
		v, err := models.NewApprovalVote(models.VoteInput{ApprovalID: r.ID, VoterEmail: email, Decision: "approve"}, s.now)
		s.Require().NoError(err)
		return s.store.InsertVote(s.ctx, v)
	}

	s.Require().NoError(vote("a@x.com"))
	s.ErrorIs(vote("A@x.com"), sentinel.ErrConflict)
	s.Require().NoError(vote("b@x.com"))

	votes, err := s.store.ListVotes(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Require().Len(votes, 2)
	s.Equal("a@x.com", votes[0].VoterEmail)

	v, err := models.NewApprovalVote(models.VoteInput{ApprovalID: 99, VoterEmail: "a@x.com", Decision: "reject"}, s.now)
	s.Require().NoError(err)
	s.ErrorIs(s.store.InsertVote(s.ctx, v), sentinel.ErrNotFound)
}

func (s *InMemorySuite) TestSnapshotRestore() {
	r := s.create("BTECH", s.now)
	snap := s.store.Snapshot()

	v, err := models.NewApprovalVote(models.VoteInput{ApprovalID: r.ID, VoterEmail: "a@x.com", Decision: "approve"}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.InsertVote(s.ctx, v))
	r.ApplyDecision(models.StatusApproved, "a@x.com", "", s.now)
	s.Require().NoError(s.store.UpdateStatus(s.ctx, r, models.StatusPending))

	s.store.Restore(snap)

	found, err := s.store.FindByID(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, found.Status)
	votes, err := s.store.ListVotes(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Empty(votes)
}
