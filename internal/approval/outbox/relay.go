package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"acadmin/internal/approval/metrics"
)

// Producer publishes one record. Implementations must be safe for sequential reuse.
type Producer interface {
	Produce(ctx context.Context, key string, value []byte, headers map[string]string) error
}

// Relay polls the outbox and hands unpublished entries to a Producer.
// Delivery is at least once: an entry is marked only after it was produced.
type Relay struct {
	store    Store
	producer Producer
	interval time.Duration
	batch    int
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

type RelayOption func(*Relay)

func WithInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batch = n
		}
	}
}

func WithLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) RelayOption {
	return func(r *Relay) {
		r.metrics = m
	}
}

func NewRelay(store Store, producer Producer, opts ...RelayOption) *Relay {
	r := &Relay{
		store:    store,
		producer: producer,
		interval: time.Second,
		batch:    100,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays until ctx is cancelled. Batch failures are logged and retried
// on the next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil && ctx.Err() == nil {
				r.metrics.IncrementOutboxFailure()
				r.logger.ErrorContext(ctx, "outbox relay failed", "error", err)
			}
		}
	}
}

// RelayOnce publishes up to one batch and returns how many entries were marked.
// Entries produced before a failure are still marked.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	entries, err := r.store.FetchUnpublished(ctx, r.batch)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	published := make([]uuid.UUID, 0, len(entries))
	var produceErr error
	for _, e := range entries {
		headers := map[string]string{
			"event_type":     string(e.EventType),
			"aggregate_type": e.AggregateType,
			"outbox_id":      e.ID.String(),
		}
		if err := r.producer.Produce(ctx, e.AggregateID, e.Payload, headers); err != nil {
			produceErr = err
			break
		}
		published = append(published, e.ID)
	}

	if err := r.store.MarkPublished(ctx, published, r.now()); err != nil {
		return 0, err
	}
	r.metrics.AddOutboxPublished(len(published))
	return len(published), produceErr
}
