// Package outbox records approval lifecycle events in the same transaction
// as the state change and relays them to Kafka afterwards.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"acadmin/internal/approval/models"
)

// EventType names a lifecycle event. It doubles as the Kafka record key prefix.
type EventType string

const (
	EventCreated      EventType = "approval.created"
	EventUnderReview  EventType = "approval.under_review"
	EventVoteRecorded EventType = "approval.vote_recorded"
	EventApproved     EventType = "approval.approved"
	EventRejected     EventType = "approval.rejected"
)

const aggregateApproval = "approval"

// Entry is one outbox row.
type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     EventType
	Payload       json.RawMessage
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// Event is the JSON body published for every approval event.
type Event struct {
	ApprovalID int64         `json:"approval_id"`
	ObjectType string        `json:"object_type"`
	ObjectID   string        `json:"object_id"`
	Action     string        `json:"action"`
	Status     models.Status `json:"status"`
	Actor      string        `json:"actor,omitempty"`
	Decision   string        `json:"decision,omitempty"`
	Note       string        `json:"note,omitempty"`
	RequestID  string        `json:"request_id,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// NewEntry builds the outbox row for an event on req.
func NewEntry(eventType EventType, req *models.ApprovalRequest, actor, decision, note, requestID string, now time.Time) (Entry, error) {
	payload, err := json.Marshal(Event{
		ApprovalID: req.ID,
		ObjectType: req.ObjectType,
		ObjectID:   req.ObjectID,
		Action:     req.Action,
		Status:     req.Status,
		Actor:      actor,
		Decision:   decision,
		Note:       note,
		RequestID:  requestID,
		OccurredAt: now,
	})
	if err != nil {
		return Entry{}, fmt.Errorf("marshal outbox payload: %w", err)
	}
	return Entry{
		ID:            uuid.New(),
		AggregateType: aggregateApproval,
		AggregateID:   strconv.FormatInt(req.ID, 10),
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     now,
	}, nil
}

// FinalEvent maps a terminal status to its event type.
func FinalEvent(status models.Status) EventType {
	if status == models.StatusRejected {
		return EventRejected
	}
	return EventApproved
}

// Store is the persistence used by the relay.
type Store interface {
	Append(ctx context.Context, e Entry) error
	FetchUnpublished(ctx context.Context, limit int) ([]Entry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}
