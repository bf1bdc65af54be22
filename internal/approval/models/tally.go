package models

// Outcome is the result of tallying the votes of one request.
type Outcome struct {
	Final  bool
	Status Status
	// Approvals and Rejections count the votes considered.
	Approvals  int
	Rejections int
}

// Tally decides whether the votes finalise a request under cfg.
// A single reject always finalises as rejected. explicitApprovers is the
// resolved email set when the approver set came from explicit assignments,
// and empty when it came from the role table.
func Tally(cfg RuleConfig, votes []ApprovalVote, explicitApprovers []string) Outcome {
	cfg = cfg.Normalize()
	out := Outcome{}
	approvedBy := make(map[string]struct{}, len(votes))
	for _, v := range votes {
		switch v.Decision {
		case DecisionReject:
			out.Rejections++
		case DecisionApprove:
			out.Approvals++
			approvedBy[NormalizeEmail(v.VoterEmail)] = struct{}{}
		}
	}

	if out.Rejections > 0 {
		out.Final, out.Status = true, StatusRejected
		return out
	}
	if out.Approvals == 0 {
		return out
	}

	switch cfg.ApprovalRule {
	case RuleEitherOne:
		out.Final = true
	case RuleUnanimous:
		if len(explicitApprovers) == 0 {
			out.Final = out.Approvals >= cfg.MinApprovers
			break
		}
		out.Final = true
		for _, email := range explicitApprovers {
			if _, ok := approvedBy[NormalizeEmail(email)]; !ok {
				out.Final = false
				break
			}
		}
	default:
		out.Final = out.Approvals >= cfg.MinApprovers
	}
	if out.Final {
		out.Status = StatusApproved
	}
	return out
}
