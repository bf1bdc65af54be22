package handler

import (
	"acadmin/internal/approval/models"
	"acadmin/internal/approval/service"
)

// ApprovalListResponse is returned by the pending and completed listings.
type ApprovalListResponse struct {
	Approvals []*models.ApprovalRequest `json:"approvals"`
	Count     int                       `json:"count"`
}

func newListResponse(list []*models.ApprovalRequest) ApprovalListResponse {
	if list == nil {
		list = []*models.ApprovalRequest{}
	}
	return ApprovalListResponse{Approvals: list, Count: len(list)}
}

// ApprovalDetailResponse is returned by GET /approvals/{id}.
type ApprovalDetailResponse struct {
	Request *models.ApprovalRequest `json:"request"`
	Votes   []models.ApprovalVote   `json:"votes"`
}

// VoteResponse is returned by POST /approvals/{id}/votes.
type VoteResponse struct {
	Request    *models.ApprovalRequest `json:"request"`
	Vote       *models.ApprovalVote    `json:"vote"`
	Final      bool                    `json:"final"`
	Approvals  int                     `json:"approvals"`
	Rejections int                     `json:"rejections"`
}

func newVoteResponse(r *service.VoteResult) VoteResponse {
	return VoteResponse{
		Request:    r.Request,
		Vote:       r.Vote,
		Final:      r.Outcome.Final,
		Approvals:  r.Outcome.Approvals,
		Rejections: r.Outcome.Rejections,
	}
}

type AssignmentListResponse struct {
	Assignments []*models.ApproverAssignment `json:"assignments"`
	Count       int                          `json:"count"`
}

type RuleListResponse struct {
	Rules []*models.RuleConfig `json:"rules"`
	Count int                  `json:"count"`
}
