package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"acadmin/internal/approval/handler/mocks"
	"acadmin/internal/approval/models"
	"acadmin/internal/approval/policy"
	"acadmin/internal/approval/service"
	policystore "acadmin/internal/approval/store/policy"
	"acadmin/internal/catalog"
	dErrors "acadmin/pkg/domain-errors"
	"acadmin/pkg/platform/middleware/auth"
	"acadmin/pkg/requestcontext"
	"acadmin/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// tokenValidator treats the bearer token as "email:role".
type tokenValidator struct{}

func (tokenValidator) ValidateToken(token string) (*auth.JWTClaims, error) {
	email, role, ok := strings.Cut(token, ":")
	if !ok {
		return nil, errors.New("malformed token")
	}
	return &auth.JWTClaims{Email: email, Roles: []string{role}}, nil
}

type HandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.router = chi.NewRouter()
	New(s.service, logger, tokenValidator{}, nil).Register(s.router)
}

func (s *HandlerSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

const (
	adminToken     = "admin@x.com:superadmin"
	principalToken = "p@x.com:principal"
	facultyToken   = "f@x.com:faculty"
)

func (s *HandlerSuite) TestAuthenticationRequired() {
	w := s.do(http.MethodGet, "/approvals/pending", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("unauthorized", s.decode(w)["error"])
}

func (s *HandlerSuite) TestCreate() {
	s.Run("requester comes from the token", func() {
		s.service.EXPECT().CreateRequest(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, in models.CreateRequest) (*models.ApprovalRequest, error) {
				s.Equal("degree", in.ObjectType)
				s.Equal("p@x.com", in.RequesterEmail)
				s.Equal("P", in.Requester)
				s.Equal(true, in.Payload["cascade"])
				s.False(requestcontext.Now(ctx).IsZero())
				return &models.ApprovalRequest{ID: 5, ObjectType: "degree", Action: "delete", Status: models.StatusPending}, nil
			})

		w := s.do(http.MethodPost, "/approvals", principalToken, map[string]any{
			"object_type": "degree", "action": "delete", "object_id": "BTECH", "payload": map[string]any{"cascade": true},
		})
		s.Equal(http.StatusCreated, w.Code)
		s.EqualValues(5, s.decode(w)["id"])
	})

	s.Run("missing action is a validation error", func() {
		w := s.do(http.MethodPost, "/approvals", principalToken, map[string]any{"object_type": "degree"})
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal("validation_error", s.decode(w)["error"])
	})
}

func (s *HandlerSuite) TestListings() {
	s.service.EXPECT().ListPending(gomock.Any()).Return(nil, nil)
	w := s.do(http.MethodGet, "/approvals/pending", principalToken, nil)
	s.Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.EqualValues(0, body["count"])
	s.Equal([]any{}, body["approvals"])

	s.service.EXPECT().ListCompleted(gomock.Any()).Return([]*models.ApprovalRequest{{ID: 1}, {ID: 2}}, nil)
	w = s.do(http.MethodGet, "/approvals/completed", principalToken, nil)
	s.Equal(http.StatusOK, w.Code)
	s.EqualValues(2, s.decode(w)["count"])
}

func (s *HandlerSuite) TestGet() {
	s.Run("request with votes", func() {
		s.service.EXPECT().GetRequest(gomock.Any(), int64(9)).Return(&models.ApprovalRequest{ID: 9}, nil)
		s.service.EXPECT().ListVotes(gomock.Any(), int64(9)).Return([]models.ApprovalVote{{ID: 1, VoterEmail: "p@x.com", Decision: models.DecisionApprove}}, nil)
		w := s.do(http.MethodGet, "/approvals/9", principalToken, nil)
		s.Equal(http.StatusOK, w.Code)
		s.Len(s.decode(w)["votes"], 1)
	})

	s.Run("unknown id", func() {
		s.service.EXPECT().GetRequest(gomock.Any(), int64(404)).Return(nil, dErrors.New(dErrors.CodeNotFound, "approval request not found"))
		w := s.do(http.MethodGet, "/approvals/404", principalToken, nil)
		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("non numeric id", func() {
		w := s.do(http.MethodGet, "/approvals/abc", principalToken, nil)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *HandlerSuite) TestMarkUnderReview() {
	s.service.EXPECT().MarkUnderReview(gomock.Any(), int64(3)).
		Return(nil, dErrors.New(dErrors.CodeAlreadyDecided, "approval request is already approved"))
	w := s.do(http.MethodPost, "/approvals/3/review", principalToken, nil)
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("already_decided", s.decode(w)["error"])
}

func (s *HandlerSuite) TestVote() {
	s.Run("eligible principal votes as themselves", func() {
		s.service.EXPECT().CanApprove(gomock.Any(), gomock.Any(), int64(7)).
			DoAndReturn(func(_ context.Context, p requestcontext.Principal, _ int64) (bool, error) {
				s.Equal("p@x.com", p.Email)
				return true, nil
			})
		s.service.EXPECT().RecordVote(gomock.Any(), models.VoteInput{ApprovalID: 7, VoterEmail: "p@x.com", Decision: "approve", Note: "ok"}).
			Return(&service.VoteResult{
				Request: &models.ApprovalRequest{ID: 7, Status: models.StatusApproved},
				Vote:    &models.ApprovalVote{ID: 1},
				Outcome: models.Outcome{Final: true, Status: models.StatusApproved, Approvals: 1},
			}, nil)

		w := s.do(http.MethodPost, "/approvals/7/votes", principalToken, map[string]any{"decision": "APPROVE", "note": " ok "})
		s.Equal(http.StatusOK, w.Code)
		body := s.decode(w)
		s.Equal(true, body["final"])
		s.EqualValues(1, body["approvals"])
	})

	s.Run("ineligible principal is forbidden", func() {
		s.service.EXPECT().CanApprove(gomock.Any(), gomock.Any(), int64(7)).Return(false, nil)
		w := s.do(http.MethodPost, "/approvals/7/votes", facultyToken, map[string]any{"decision": "approve"})
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("invalid decision never reaches the service", func() {
		w := s.do(http.MethodPost, "/approvals/7/votes", principalToken, map[string]any{"decision": "abstain"})
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("duplicate vote is a conflict", func() {
		s.service.EXPECT().CanApprove(gomock.Any(), gomock.Any(), int64(7)).Return(true, nil)
		s.service.EXPECT().RecordVote(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeDuplicateVote, "p@x.com has already voted on this request"))
		w := s.do(http.MethodPost, "/approvals/7/votes", principalToken, map[string]any{"decision": "approve"})
		s.Equal(http.StatusConflict, w.Code)
		s.Equal("duplicate_vote", s.decode(w)["error"])
	})

	s.Run("blocked delete reports dependent counts", func() {
		s.service.EXPECT().CanApprove(gomock.Any(), gomock.Any(), int64(8)).Return(true, nil)
		s.service.EXPECT().RecordVote(gomock.Any(), gomock.Any()).Return(nil, &catalog.DependentRecordsError{
			Object: "program CS101",
			Counts: []catalog.DependentCount{{Table: "branches", Count: 2}},
		})
		w := s.do(http.MethodPost, "/approvals/8/votes", principalToken, map[string]any{"decision": "approve"})
		s.Equal(http.StatusConflict, w.Code)
		body := s.decode(w)
		s.Equal("dependent_records", body["error"])
		s.Equal(map[string]any{"branches": float64(2)}, body["dependent_counts"])
	})

	s.Run("failed action is unprocessable", func() {
		s.service.EXPECT().CanApprove(gomock.Any(), gomock.Any(), int64(8)).Return(true, nil)
		s.service.EXPECT().RecordVote(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.Wrap(errors.New("fk"), dErrors.CodeActionExecution, "fk"))
		w := s.do(http.MethodPost, "/approvals/8/votes", principalToken, map[string]any{"decision": "approve"})
		s.Equal(http.StatusUnprocessableEntity, w.Code)
	})
}

func (s *HandlerSuite) TestPreview() {
	s.service.EXPECT().Preview(gomock.Any(), int64(4)).Return(&service.PreviewResult{
		ApprovalID: 4, WouldSucceed: false, ErrorCode: dErrors.CodeDependentRecords,
		DependentCounts: map[string]int64{"branches": 2},
	}, nil)
	w := s.do(http.MethodGet, "/approvals/4/preview", principalToken, nil)
	s.Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.Equal(false, body["would_succeed"])
	s.Equal("dependent_records", body["error_code"])
}

func (s *HandlerSuite) TestResolveApprovers() {
	s.service.EXPECT().ResolveApprovers(gomock.Any(), "program", "delete", models.NewScope("BTECH", "", "")).
		Return(policy.Resolution{
			Approvers: policy.ApproverSet{Source: policy.SourceAssignments, Emails: []string{"dean@x.com"}},
			Rule:      models.DefaultRuleConfig("program", "delete"),
		}, nil)
	w := s.do(http.MethodGet, "/approvers?object_type=program&action=delete&degree=BTECH", facultyToken, nil)
	s.Equal(http.StatusOK, w.Code)
	approvers := s.decode(w)["approvers"].(map[string]any)
	s.Equal("assignments", approvers["source"])

	w = s.do(http.MethodGet, "/approvers?object_type=program", facultyToken, nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerSuite) TestAdminRoutes() {
	s.Run("non admin is forbidden", func() {
		w := s.do(http.MethodGet, "/admin/approval-rules", principalToken, nil)
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("assign approver", func() {
		s.service.EXPECT().AssignApprover(gomock.Any(), service.AssignInput{
			ObjectType: "faculty", Action: "delete", ApproverEmail: "dean@x.com", Scope: models.NewScope("BTECH", "", ""),
		}).Return(&models.ApproverAssignment{ID: 11, ApproverEmail: "dean@x.com", IsActive: true, AssignedAt: time.Now()}, nil)

		w := s.do(http.MethodPost, "/admin/approver-assignments", adminToken, map[string]any{
			"object_type": "faculty", "action": "delete", "approver_email": "dean@x.com", "degree": "BTECH",
		})
		s.Equal(http.StatusCreated, w.Code)
		s.EqualValues(11, s.decode(w)["id"])
	})

	s.Run("assign rejects a bad email", func() {
		w := s.do(http.MethodPost, "/admin/approver-assignments", adminToken, map[string]any{
			"object_type": "faculty", "action": "delete", "approver_email": "dean",
		})
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("list assignments passes the filter", func() {
		s.service.EXPECT().ListAssignments(gomock.Any(), policystore.AssignmentFilter{ObjectType: "faculty", IncludeInactive: true}).
			Return([]*models.ApproverAssignment{{ID: 1}}, nil)
		w := s.do(http.MethodGet, "/admin/approver-assignments?object_type=faculty&include_inactive=true", adminToken, nil)
		s.Equal(http.StatusOK, w.Code)
		s.EqualValues(1, s.decode(w)["count"])
	})

	s.Run("deactivate", func() {
		s.service.EXPECT().DeactivateAssignment(gomock.Any(), int64(11)).Return(nil)
		w := s.do(http.MethodDelete, "/admin/approver-assignments/11", adminToken, nil)
		s.Equal(http.StatusNoContent, w.Code)
	})

	s.Run("upsert rule keeps omitted flags at their defaults", func() {
		s.service.EXPECT().UpsertRuleConfig(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, cfg models.RuleConfig) (*models.RuleConfig, error) {
				s.Equal(models.RuleQuorum, cfg.ApprovalRule)
				s.Equal(2, cfg.MinApprovers)
				s.True(cfg.RequireUserAssignment)
				s.False(cfg.FallbackToRoles)
				return &cfg, nil
			})
		w := s.do(http.MethodPut, "/admin/approval-rules", adminToken, map[string]any{
			"object_type": "program", "action": "delete", "approval_rule": "quorum", "min_approvers": 2, "fallback_to_roles": false,
		})
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("upsert rejects an unknown rule", func() {
		w := s.do(http.MethodPut, "/admin/approval-rules", adminToken, map[string]any{
			"object_type": "program", "action": "delete", "approval_rule": "majority",
		})
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("list rules", func() {
		s.service.EXPECT().ListRuleConfigs(gomock.Any()).Return(nil, dErrors.New(dErrors.CodeInternal, "db down"))
		w := s.do(http.MethodGet, "/admin/approval-rules", adminToken, nil)
		s.Equal(http.StatusInternalServerError, w.Code)
		s.NotContains(s.decode(w), "error_description")
	})
}

func TestVoteEligibility(t *testing.T) {
	testutil.Given(t, "a pending request that only principals may decide", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockService(ctrl)
		router := chi.NewRouter()
		New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)), tokenValidator{}, nil).Register(router)

		svc.EXPECT().CanApprove(gomock.Any(), gomock.Any(), int64(21)).
			DoAndReturn(func(_ context.Context, p requestcontext.Principal, _ int64) (bool, error) {
				return p.HasRole("principal"), nil
			}).AnyTimes()

		testutil.When(t, "faculty votes", func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/approvals/21/votes", map[string]string{"decision": "approve"})
			rr := testutil.DoRequest(router, testutil.WithBearer(req, facultyToken))

			testutil.Then(t, "the vote is refused", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
			})
		})

		testutil.When(t, "the principal votes", func(t *testing.T) {
			svc.EXPECT().RecordVote(gomock.Any(), gomock.Any()).Return(&service.VoteResult{
				Request: &models.ApprovalRequest{ID: 21, Status: models.StatusApproved},
				Vote:    &models.ApprovalVote{ID: 3, Decision: models.DecisionApprove},
				Outcome: models.Outcome{Final: true, Status: models.StatusApproved, Approvals: 1},
			}, nil)
			req := testutil.NewJSONRequest(t, http.MethodPost, "/approvals/21/votes", map[string]string{"decision": "approve"})
			rr := testutil.DoRequest(router, testutil.WithBearer(req, principalToken))

			testutil.Then(t, "the request is finalised", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
				testutil.AssertJSONContains(t, rr, "final", true)
			})
		})
	})
}
