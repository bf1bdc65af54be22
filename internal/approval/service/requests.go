package service

import (
	"context"

	"acadmin/internal/approval/models"
	"acadmin/internal/approval/outbox"
	dErrors "acadmin/pkg/domain-errors"
	txcontext "acadmin/pkg/platform/tx"
	"acadmin/pkg/requestcontext"
)

var (
	openStatuses      = []models.Status{models.StatusPending, models.StatusUnderReview}
	completedStatuses = []models.Status{models.StatusApproved, models.StatusRejected}
)

// CreateRequest validates the submission against the pair's rule and stores
// a pending request. Domain data is not touched.
func (s *Service) CreateRequest(ctx context.Context, in models.CreateRequest) (*models.ApprovalRequest, error) {
	rule, err := s.resolver.RuleConfig(ctx, in.ObjectType, in.Action)
	if err != nil {
		return nil, err
	}
	req, err := models.NewApprovalRequest(in, rule, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context, _ txcontext.Querier) error {
		if err := s.requests.Create(ctx, req); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create approval request")
		}
		return s.emit(ctx, outbox.EventCreated, req, req.RequesterEmail, "", req.ReasonNote)
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, "approval_created",
		"approval_id", req.ID,
		"object_type", req.ObjectType,
		"action", req.Action,
		"object_id", req.ObjectID,
	)
	s.metrics.IncrementCreated(req.ObjectType, req.Action)
	return req, nil
}

// MarkUnderReview moves a pending request to under_review. A request already
// under review is returned unchanged.
func (s *Service) MarkUnderReview(ctx context.Context, id int64) (*models.ApprovalRequest, error) {
	var (
		req     *models.ApprovalRequest
		changed bool
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context, _ txcontext.Querier) error {
		var err error
		req, err = s.loadRequest(ctx, id, true)
		if err != nil {
			return err
		}
		already, err := req.CanMarkUnderReview()
		if err != nil || already {
			return err
		}
		from := req.Status
		req.ApplyUnderReview(requestcontext.Now(ctx))
		if err := s.requests.UpdateStatus(ctx, req, from); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update approval request")
		}
		changed = true
		return s.emit(ctx, outbox.EventUnderReview, req, requestcontext.Actor(ctx).Email, "", "")
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.logAudit(ctx, "approval_under_review", "approval_id", req.ID)
	}
	return req, nil
}

// GetRequest returns one request.
func (s *Service) GetRequest(ctx context.Context, id int64) (*models.ApprovalRequest, error) {
	return s.loadRequest(ctx, id, false)
}

// ListVotes returns the votes cast on a request in the order they were cast.
func (s *Service) ListVotes(ctx context.Context, id int64) ([]models.ApprovalVote, error) {
	if _, err := s.loadRequest(ctx, id, false); err != nil {
		return nil, err
	}
	votes, err := s.requests.ListVotes(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list votes")
	}
	return votes, nil
}

// ListPending returns pending and under_review requests, newest first.
func (s *Service) ListPending(ctx context.Context) ([]*models.ApprovalRequest, error) {
	out, err := s.requests.ListByStatus(ctx, openStatuses)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending approvals")
	}
	return out, nil
}

// ListCompleted returns approved and rejected requests, newest first.
func (s *Service) ListCompleted(ctx context.Context) ([]*models.ApprovalRequest, error) {
	out, err := s.requests.ListByStatus(ctx, completedStatuses)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list completed approvals")
	}
	return out, nil
}
