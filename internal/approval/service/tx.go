package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"acadmin/internal/approval/outbox"
	requeststore "acadmin/internal/approval/store/request"
	dErrors "acadmin/pkg/domain-errors"
	txcontext "acadmin/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// Checkpoint captures state and returns a function that restores it.
type Checkpoint func() (restore func())

// RequestCheckpoint snapshots an in-memory request store.
func RequestCheckpoint(s *requeststore.InMemory) Checkpoint {
	return func() func() {
		snap := s.Snapshot()
		return func() { s.Restore(snap) }
	}
}

// OutboxCheckpoint drops entries appended after the checkpoint.
func OutboxCheckpoint(o *outbox.InMemory) Checkpoint {
	return func() func() {
		n := o.Len()
		return func() { o.Truncate(n) }
	}
}

// InMemoryTx serialises units of work with one lock and undoes a failed
// unit by restoring checkpoints. Handlers receive a nil Querier.
type InMemoryTx struct {
	mu          sync.Mutex
	checkpoints []Checkpoint
	timeout     time.Duration
}

func NewInMemoryTx(checkpoints ...Checkpoint) *InMemoryTx {
	return &InMemoryTx{checkpoints: checkpoints, timeout: defaultTxTimeout}
}

func (t *InMemoryTx) RunInTx(ctx context.Context, fn func(ctx context.Context, q txcontext.Querier) error) error {
	return t.run(ctx, fn, false)
}

func (t *InMemoryTx) RunDryRun(ctx context.Context, fn func(ctx context.Context, q txcontext.Querier) error) error {
	return t.run(ctx, fn, true)
}

func (t *InMemoryTx) run(ctx context.Context, fn func(ctx context.Context, q txcontext.Querier) error, discard bool) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	restores := make([]func(), 0, len(t.checkpoints))
	for _, cp := range t.checkpoints {
		restores = append(restores, cp())
	}
	err := fn(ctx, nil)
	if err != nil || discard {
		for _, restore := range slices.Backward(restores) {
			restore()
		}
	}
	return err
}
