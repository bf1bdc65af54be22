// Package service runs the approval state machine. It owns the transaction
// that records a vote, finalises the request and applies the approved action,
// so an approval is never observable apart from its effect.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"acadmin/internal/approval/dispatch"
	"acadmin/internal/approval/metrics"
	"acadmin/internal/approval/models"
	"acadmin/internal/approval/outbox"
	"acadmin/internal/approval/policy"
	policystore "acadmin/internal/approval/store/policy"
	"acadmin/internal/schema"
	dErrors "acadmin/pkg/domain-errors"
	"acadmin/pkg/platform/sentinel"
	txcontext "acadmin/pkg/platform/tx"
	"acadmin/pkg/requestcontext"
)

var tracer = otel.Tracer("acadmin/approval")

// RequestStore persists approvals and votes.
type RequestStore interface {
	Create(ctx context.Context, r *models.ApprovalRequest) error
	FindByID(ctx context.Context, id int64) (*models.ApprovalRequest, error)
	// FindForUpdate locks the row for the rest of the transaction.
	FindForUpdate(ctx context.Context, id int64) (*models.ApprovalRequest, error)
	// UpdateStatus returns sentinel.ErrInvalidState if the stored status is no longer from.
	UpdateStatus(ctx context.Context, r *models.ApprovalRequest, from models.Status) error
	ListByStatus(ctx context.Context, statuses []models.Status) ([]*models.ApprovalRequest, error)
	// InsertVote returns sentinel.ErrConflict for a second vote by the same voter.
	InsertVote(ctx context.Context, v *models.ApprovalVote) error
	ListVotes(ctx context.Context, approvalID int64) ([]models.ApprovalVote, error)
}

// PolicyStore is the administrative side of the policy tables.
type PolicyStore interface {
	ListRuleConfigs(ctx context.Context) ([]*models.RuleConfig, error)
	UpsertRuleConfig(ctx context.Context, cfg *models.RuleConfig) error
	InsertRuleConfigIfAbsent(ctx context.Context, cfg *models.RuleConfig) (bool, error)
	ListAssignments(ctx context.Context, f policystore.AssignmentFilter) ([]*models.ApproverAssignment, error)
	SaveAssignment(ctx context.Context, a *models.ApproverAssignment) (*models.ApproverAssignment, error)
	FindAssignment(ctx context.Context, id int64) (*models.ApproverAssignment, error)
	DeactivateAssignment(ctx context.Context, id int64, by string, at time.Time) error
}

// Dispatcher applies an approved request. *dispatch.Registry implements it.
type Dispatcher interface {
	Perform(ctx context.Context, env dispatch.Env, req *models.ApprovalRequest) error
}

// TxRunner provides the atomic boundary. The ctx handed to fn carries the
// transaction for stores; q is the same transaction for action handlers.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, q txcontext.Querier) error) error
	// RunDryRun always discards fn's writes.
	RunDryRun(ctx context.Context, fn func(ctx context.Context, q txcontext.Querier) error) error
}

// OutboxWriter appends lifecycle events inside the running transaction.
type OutboxWriter interface {
	Append(ctx context.Context, e outbox.Entry) error
}

// RuleInvalidator drops cached rule configs after an update.
type RuleInvalidator interface {
	Invalidate(ctx context.Context, key models.ActionKey) error
}

// Service orchestrates approval requests, votes and policy administration.
type Service struct {
	requests   RequestStore
	policies   PolicyStore
	resolver   *policy.Resolver
	dispatcher Dispatcher
	tx         TxRunner
	outbox     OutboxWriter
	ruleCache  RuleInvalidator
	caps       *schema.Capabilities
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithOutbox enables lifecycle events.
func WithOutbox(w OutboxWriter) Option {
	return func(s *Service) {
		s.outbox = w
	}
}

func WithRuleCache(c RuleInvalidator) Option {
	return func(s *Service) {
		s.ruleCache = c
	}
}

// WithCapabilities hands the probed schema to action handlers.
func WithCapabilities(caps *schema.Capabilities) Option {
	return func(s *Service) {
		s.caps = caps
	}
}

// New constructs a Service.
func New(requests RequestStore, policies PolicyStore, resolver *policy.Resolver, dispatcher Dispatcher, tx TxRunner, opts ...Option) *Service {
	s := &Service{
		requests:   requests,
		policies:   policies,
		resolver:   resolver,
		dispatcher: dispatcher,
		tx:         tx,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) env(q txcontext.Querier) dispatch.Env {
	return dispatch.Env{Conn: q, Caps: s.caps, Logger: s.logger}
}

func (s *Service) emit(ctx context.Context, eventType outbox.EventType, req *models.ApprovalRequest, actor, decision, note string) error {
	if s.outbox == nil {
		return nil
	}
	entry, err := outbox.NewEntry(eventType, req, actor, decision, note, requestcontext.RequestID(ctx), requestcontext.Now(ctx))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build approval event")
	}
	if err := s.outbox.Append(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record approval event")
	}
	return nil
}

func (s *Service) loadRequest(ctx context.Context, id int64, forUpdate bool) (*models.ApprovalRequest, error) {
	find := s.requests.FindByID
	if forUpdate {
		find = s.requests.FindForUpdate
	}
	req, err := find(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "approval request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load approval request")
	}
	return req, nil
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if actor := requestcontext.Actor(ctx); actor.Email != "" {
		attributes = append(attributes, "actor", actor.Email)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
}
