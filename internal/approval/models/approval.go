package models

import (
	"encoding/json"
	"strings"
	"time"

	dErrors "acadmin/pkg/domain-errors"
)

// Status is the lifecycle state of an approval request.
type Status string

const (
	StatusPending     Status = "pending"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransitionTo encodes the state machine:
// pending -> under_review -> {approved, rejected}, with review optional.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusUnderReview || target == StatusApproved || target == StatusRejected
	case StatusUnderReview:
		return target == StatusPending || target == StatusApproved || target == StatusRejected
	}
	return false
}

// ActionKey identifies a dispatch handler and a policy row.
type ActionKey struct {
	ObjectType string
	Action     string
}

// NewActionKey normalises both parts to trimmed lower case.
func NewActionKey(objectType, action string) ActionKey {
	return ActionKey{
		ObjectType: strings.ToLower(strings.TrimSpace(objectType)),
		Action:     strings.ToLower(strings.TrimSpace(action)),
	}
}

func (k ActionKey) String() string {
	return k.ObjectType + "." + k.Action
}

// ApprovalRequest is the aggregate root for one proposed mutation.
//
// Invariants:
//   - ObjectType and Action are non-empty
//   - Status moves forward only, except pending <-> under_review
//   - approved and rejected are terminal; Approver, DecisionNote and DecidedAt are set once
//   - Payload is always valid JSON (an empty object when nothing was supplied)
//   - rows are never deleted
type ApprovalRequest struct {
	ID             int64           `json:"id"`
	ObjectType     string          `json:"object_type"`
	ObjectID       string          `json:"object_id"`
	Action         string          `json:"action"`
	Status         Status          `json:"status"`
	Requester      string          `json:"requester"`
	RequesterEmail string          `json:"requester_email"`
	Approver       string          `json:"approver,omitempty"`
	Payload        json.RawMessage `json:"payload"`
	ReasonNote     string          `json:"reason_note,omitempty"`
	DecisionNote   string          `json:"decision_note,omitempty"`
	Rule           Rule            `json:"rule"`
	CreatedAt      time.Time       `json:"created_at"`
	DecidedAt      *time.Time      `json:"decided_at,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CreateRequest is the input for submitting a change.
type CreateRequest struct {
	ObjectType     string
	Action         string
	ObjectID       string
	Requester      string
	RequesterEmail string
	Payload        map[string]any
	ReasonNote     string
}

// NewApprovalRequest validates input against the resolved rule and builds a
// pending request. The ID is assigned by the store.
func NewApprovalRequest(in CreateRequest, rule RuleConfig, now time.Time) (*ApprovalRequest, error) {
	key := NewActionKey(in.ObjectType, in.Action)
	if key.ObjectType == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "object_type is required")
	}
	if key.Action == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "action is required")
	}
	reason := strings.TrimSpace(in.ReasonNote)
	if rule.RequiresReason && reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "reason_note is required for "+key.String())
	}

	payload := json.RawMessage(`{}`)
	if len(in.Payload) > 0 {
		raw, err := json.Marshal(in.Payload)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "payload is not serialisable")
		}
		payload = raw
	}

	return &ApprovalRequest{
		ObjectType:     key.ObjectType,
		ObjectID:       strings.TrimSpace(in.ObjectID),
		Action:         key.Action,
		Status:         StatusPending,
		Requester:      strings.TrimSpace(in.Requester),
		RequesterEmail: strings.ToLower(strings.TrimSpace(in.RequesterEmail)),
		Payload:        payload,
		ReasonNote:     reason,
		Rule:           rule.ApprovalRule,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (r *ApprovalRequest) Key() ActionKey {
	return NewActionKey(r.ObjectType, r.Action)
}

// Scope reads the organisational scope from the payload. Either a nested
// "scope" object or top-level degree_code/program_code/branch_code keys are
// accepted; the nested form wins.
func (r *ApprovalRequest) Scope() Scope {
	var doc struct {
		Scope *struct {
			Degree  string `json:"degree"`
			Program string `json:"program"`
			Branch  string `json:"branch"`
		} `json:"scope"`
		DegreeCode  string `json:"degree_code"`
		ProgramCode string `json:"program_code"`
		BranchCode  string `json:"branch_code"`
	}
	if len(r.Payload) == 0 || json.Unmarshal(r.Payload, &doc) != nil {
		return Scope{}
	}
	if doc.Scope != nil {
		return NewScope(doc.Scope.Degree, doc.Scope.Program, doc.Scope.Branch)
	}
	return NewScope(doc.DegreeCode, doc.ProgramCode, doc.BranchCode)
}

// CanMarkUnderReview returns nil when the request may move to under_review.
// Marking an already under_review request is a no-op, reported by the bool.
func (r *ApprovalRequest) CanMarkUnderReview() (alreadyUnderReview bool, err error) {
	switch r.Status {
	case StatusUnderReview:
		return true, nil
	case StatusPending:
		return false, nil
	}
	return false, dErrors.New(dErrors.CodeAlreadyDecided, "approval request is already "+string(r.Status))
}

// ApplyUnderReview transitions to under_review.
// Must only be called after CanMarkUnderReview returns nil.
func (r *ApprovalRequest) ApplyUnderReview(now time.Time) {
	r.Status = StatusUnderReview
	r.UpdatedAt = now
}

// CanVote returns an already_decided error for terminal requests.
func (r *ApprovalRequest) CanVote() error {
	if r.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeAlreadyDecided, "approval request is already "+string(r.Status))
	}
	return nil
}

// ApplyDecision finalises the request.
// Must only be called after CanVote returns nil.
func (r *ApprovalRequest) ApplyDecision(status Status, approver, note string, now time.Time) {
	r.Status = status
	r.Approver = approver
	r.DecisionNote = note
	decided := now
	r.DecidedAt = &decided
	r.UpdatedAt = now
}

// Clone returns a deep copy safe to hand out of in-memory stores.
func (r *ApprovalRequest) Clone() *ApprovalRequest {
	if r == nil {
		return nil
	}
	c := *r
	c.Payload = append(json.RawMessage(nil), r.Payload...)
	if r.DecidedAt != nil {
		d := *r.DecidedAt
		c.DecidedAt = &d
	}
	return &c
}
