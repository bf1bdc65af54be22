package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"acadmin/internal/approval/models"
	"acadmin/internal/approval/outbox"
	"acadmin/internal/catalog"
	dErrors "acadmin/pkg/domain-errors"
	"acadmin/pkg/platform/sentinel"
	txcontext "acadmin/pkg/platform/tx"
	"acadmin/pkg/requestcontext"
)

// VoteResult reports the vote and the request state after it.
type VoteResult struct {
	Request *models.ApprovalRequest `json:"request"`
	Vote    *models.ApprovalVote    `json:"vote"`
	Outcome models.Outcome          `json:"outcome"`
}

// RecordVote stores a vote and, when the rule is satisfied, finalises the
// request. An approval runs the registered action in the same transaction;
// if the action fails nothing is kept, including the vote.
func (s *Service) RecordVote(ctx context.Context, in models.VoteInput) (*VoteResult, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveVoteLatency(time.Since(start))
	}()

	ctx, span := tracer.Start(ctx, "approval.RecordVote")
	defer span.End()
	span.SetAttributes(attribute.Int64("approval_id", in.ApprovalID))

	vote, err := models.NewApprovalVote(in, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	var result *VoteResult
	err = s.tx.RunInTx(ctx, func(ctx context.Context, q txcontext.Querier) error {
		r, err := s.applyVote(ctx, q, vote)
		result = r
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	req := result.Request
	span.SetAttributes(
		attribute.String("object_type", req.ObjectType),
		attribute.String("action", req.Action),
		attribute.String("status", string(req.Status)),
	)
	s.metrics.IncrementVote(string(vote.Decision))
	s.logAudit(ctx, "approval_vote_recorded",
		"approval_id", req.ID,
		"voter", vote.VoterEmail,
		"decision", string(vote.Decision),
	)
	if result.Outcome.Final {
		s.metrics.IncrementFinalized(string(req.Status), req.ObjectType)
		s.logAudit(ctx, "approval_"+string(req.Status),
			"approval_id", req.ID,
			"object_type", req.ObjectType,
			"action", req.Action,
			"object_id", req.ObjectID,
			"approver", req.Approver,
		)
	}
	return result, nil
}

func (s *Service) applyVote(ctx context.Context, q txcontext.Querier, vote *models.ApprovalVote) (*VoteResult, error) {
	req, err := s.loadRequest(ctx, vote.ApprovalID, true)
	if err != nil {
		return nil, err
	}
	if err := req.CanVote(); err != nil {
		return nil, err
	}

	if err := s.requests.InsertVote(ctx, vote); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeDuplicateVote, vote.VoterEmail+" has already voted on this request")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record vote")
	}
	if err := s.emit(ctx, outbox.EventVoteRecorded, req, vote.VoterEmail, string(vote.Decision), vote.Note); err != nil {
		return nil, err
	}

	votes, err := s.requests.ListVotes(ctx, req.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load votes")
	}
	resolution, err := s.resolver.ResolveApproverSet(ctx, req.ObjectType, req.Action, req.Scope())
	if err != nil {
		return nil, err
	}
	rule := resolution.Rule
	if req.Rule.IsValid() {
		// The rule tag is fixed when the request is created.
		rule.ApprovalRule = req.Rule
	}
	outcome := models.Tally(rule, votes, resolution.ExplicitApprovers())

	result := &VoteResult{Request: req, Vote: vote, Outcome: outcome}
	if !outcome.Final {
		return result, nil
	}

	from := req.Status
	req.ApplyDecision(outcome.Status, vote.VoterEmail, vote.Note, requestcontext.Now(ctx))
	if err := s.requests.UpdateStatus(ctx, req, from); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.New(dErrors.CodeAlreadyDecided, "approval request was decided concurrently")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to finalise approval request")
	}

	if outcome.Status == models.StatusApproved {
		if err := s.dispatcher.Perform(ctx, s.env(q), req); err != nil {
			return nil, s.actionFailed(ctx, req, err)
		}
	}
	if err := s.emit(ctx, outbox.FinalEvent(outcome.Status), req, vote.VoterEmail, string(vote.Decision), vote.Note); err != nil {
		return nil, err
	}
	return result, nil
}

// actionFailed classifies a handler error. Blocked deletes and missing
// handlers keep their own codes so callers can show counts or the key;
// anything else becomes action_execution_failed with the handler's message.
func (s *Service) actionFailed(ctx context.Context, req *models.ApprovalRequest, err error) error {
	var blocked *catalog.DependentRecordsError
	var out error
	switch {
	case errors.As(err, &blocked):
		out = blocked
	case dErrors.HasCode(err, dErrors.CodeUnregisteredHandler):
		out = err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		out = dErrors.Wrap(err, dErrors.CodeTimeout, "action timed out: "+err.Error())
	default:
		out = dErrors.Wrap(err, dErrors.CodeActionExecution, err.Error())
	}

	s.metrics.IncrementActionFailure(req.ObjectType, string(dErrors.CodeOf(out)))
	s.logger.ErrorContext(ctx, "approval action failed, rolling back",
		"request_id", requestcontext.RequestID(ctx),
		"approval_id", req.ID,
		"object_type", req.ObjectType,
		"action", req.Action,
		"object_id", req.ObjectID,
		"error", err,
	)
	return out
}
