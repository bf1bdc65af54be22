package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the approval workflow.
type Metrics struct {
	RequestsCreated *prometheus.CounterVec

	// Votes by decision (approve, reject)
	Votes *prometheus.CounterVec

	// Finalised requests by status and object type
	Finalizations *prometheus.CounterVec

	// Handler failures that rolled back a finalisation, by error code
	ActionFailures *prometheus.CounterVec

	VoteLatency prometheus.Histogram

	OutboxPublished prometheus.Counter
	OutboxFailures  prometheus.Counter
}

// New registers the approval metrics with the default registry.
func New() *Metrics {
	return &Metrics{
		RequestsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "acadmin_approval_requests_created_total",
			Help: "Approval requests created by object type and action",
		}, []string{"object_type", "action"}),

		Votes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "acadmin_approval_votes_total",
			Help: "Votes recorded by decision",
		}, []string{"decision"}),

		Finalizations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "acadmin_approval_finalizations_total",
			Help: "Approval requests finalised by status and object type",
		}, []string{"status", "object_type"}),

		ActionFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "acadmin_approval_action_failures_total",
			Help: "Action handler failures during finalisation by object type and error code",
		}, []string{"object_type", "code"}),

		VoteLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "acadmin_approval_vote_duration_seconds",
			Help:    "Duration of RecordVote including the action handler",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		OutboxPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "acadmin_approval_outbox_published_total",
			Help: "Outbox entries published to Kafka",
		}),

		OutboxFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "acadmin_approval_outbox_failures_total",
			Help: "Outbox relay batches that failed to publish",
		}),
	}
}

func (m *Metrics) IncrementCreated(objectType, action string) {
	if m != nil {
		m.RequestsCreated.WithLabelValues(objectType, action).Inc()
	}
}

func (m *Metrics) IncrementVote(decision string) {
	if m != nil {
		m.Votes.WithLabelValues(decision).Inc()
	}
}

func (m *Metrics) IncrementFinalized(status, objectType string) {
	if m != nil {
		m.Finalizations.WithLabelValues(status, objectType).Inc()
	}
}

func (m *Metrics) IncrementActionFailure(objectType, code string) {
	if m != nil {
		m.ActionFailures.WithLabelValues(objectType, code).Inc()
	}
}

// ObserveVoteLatency records the total RecordVote duration.
func (m *Metrics) ObserveVoteLatency(d time.Duration) {
	if m != nil {
		m.VoteLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) AddOutboxPublished(n int) {
	if m != nil {
		m.OutboxPublished.Add(float64(n))
	}
}

func (m *Metrics) IncrementOutboxFailure() {
	if m != nil {
		m.OutboxFailures.Inc()
	}
}
