package models

import (
	"strings"
	"time"

	dErrors "acadmin/pkg/domain-errors"
)

// Decision is a single approver's verdict.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision accepts "approve"/"reject" in any case.
func ParseDecision(raw string) (Decision, error) {
	d := Decision(strings.ToLower(strings.TrimSpace(raw)))
	switch d {
	case DecisionApprove, DecisionReject:
		return d, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "decision must be approve or reject")
}

// ApprovalVote is append-only; (ApprovalID, VoterEmail) is unique.
type ApprovalVote struct {
	ID         int64     `json:"id"`
	ApprovalID int64     `json:"approval_id"`
	VoterEmail string    `json:"voter_email"`
	Decision   Decision  `json:"decision"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// VoteInput is the input for recording a vote.
type VoteInput struct {
	ApprovalID int64
	VoterEmail string
	Decision   string
	Note       string
}

// NewApprovalVote validates input and builds a vote row.
func NewApprovalVote(in VoteInput, now time.Time) (*ApprovalVote, error) {
	if in.ApprovalID <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "approval id is required")
	}
	email := NormalizeEmail(in.VoterEmail)
	if email == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "voter_email is required")
	}
	decision, err := ParseDecision(in.Decision)
	if err != nil {
		return nil, err
	}
	return &ApprovalVote{
		ApprovalID: in.ApprovalID,
		VoterEmail: email,
		Decision:   decision,
		Note:       strings.TrimSpace(in.Note),
		CreatedAt:  now,
	}, nil
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
