package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"acadmin/internal/catalog"
	dErrors "acadmin/pkg/domain-errors"
	txcontext "acadmin/pkg/platform/tx"
)

// PreviewResult describes what approving a request would do right now.
type PreviewResult struct {
	ApprovalID      int64            `json:"approval_id"`
	ObjectType      string           `json:"object_type"`
	Action          string           `json:"action"`
	WouldSucceed    bool             `json:"would_succeed"`
	ErrorCode       dErrors.Code     `json:"error_code,omitempty"`
	Error           string           `json:"error,omitempty"`
	DependentCounts map[string]int64 `json:"dependent_counts,omitempty"`
}

// Preview runs the request's action and rolls it back. Handler failures are
// reported in the result; only infrastructure failures return an error.
func (s *Service) Preview(ctx context.Context, id int64) (*PreviewResult, error) {
	ctx, span := tracer.Start(ctx, "approval.Preview")
	defer span.End()
	span.SetAttributes(attribute.Int64("approval_id", id))

	req, err := s.loadRequest(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if err := req.CanVote(); err != nil {
		return nil, err
	}

	var performErr error
	err = s.tx.RunDryRun(ctx, func(ctx context.Context, q txcontext.Querier) error {
		performErr = s.dispatcher.Perform(ctx, s.env(q), req)
		return nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to run preview")
	}

	result := &PreviewResult{
		ApprovalID:   req.ID,
		ObjectType:   req.ObjectType,
		Action:       req.Action,
		WouldSucceed: performErr == nil,
	}
	if performErr != nil {
		result.Error = performErr.Error()
		result.ErrorCode = dErrors.CodeOf(performErr)
		var blocked *catalog.DependentRecordsError
		if errors.As(performErr, &blocked) {
			result.DependentCounts = blocked.CountMap()
		}
		if result.ErrorCode == dErrors.CodeInternal {
			result.ErrorCode = dErrors.CodeActionExecution
		}
	}
	span.SetAttributes(attribute.Bool("would_succeed", result.WouldSucceed))
	return result, nil
}
