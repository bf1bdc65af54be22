package main

import (
	"context"
	"time"

	dErrors "acadmin/pkg/domain-errors"
	txcontext "acadmin/pkg/platform/tx"
)

const defaultApprovalTxTimeout = 10 * time.Second

// approvalTx bounds every approval transaction by the configured timeout
// unless the caller already set a deadline.
type approvalTx struct {
	runner  *txcontext.Runner
	timeout time.Duration
}

func newApprovalTx(runner *txcontext.Runner, timeout time.Duration) *approvalTx {
	if timeout <= 0 {
		timeout = defaultApprovalTxTimeout
	}
	return &approvalTx{runner: runner, timeout: timeout}
}

func (t *approvalTx) RunInTx(ctx context.Context, fn func(ctx context.Context, q txcontext.Querier) error) error {
	ctx, cancel, err := t.bound(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	return t.runner.RunInTx(ctx, fn)
}

func (t *approvalTx) RunDryRun(ctx context.Context, fn func(ctx context.Context, q txcontext.Querier) error) error {
	ctx, cancel, err := t.bound(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	return t.runner.RunDryRun(ctx, fn)
}

func (t *approvalTx) bound(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	return ctx, cancel, nil
}
