package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"acadmin/internal/approval/models"
	"acadmin/internal/approval/policy"
	"acadmin/internal/approval/service"
	policystore "acadmin/internal/approval/store/policy"
	dErrors "acadmin/pkg/domain-errors"
	"acadmin/pkg/platform/httputil"
	"acadmin/pkg/platform/middleware/admin"
	"acadmin/pkg/platform/middleware/auth"
	request "acadmin/pkg/platform/middleware/request"
	"acadmin/pkg/platform/middleware/requesttime"
	"acadmin/pkg/requestcontext"
)

// RoleAdmin may administer approver assignments and rules.
const RoleAdmin = "superadmin"

// Service defines the approval operations exposed over HTTP.
type Service interface {
	CreateRequest(ctx context.Context, in models.CreateRequest) (*models.ApprovalRequest, error)
	GetRequest(ctx context.Context, id int64) (*models.ApprovalRequest, error)
	ListVotes(ctx context.Context, id int64) ([]models.ApprovalVote, error)
	ListPending(ctx context.Context) ([]*models.ApprovalRequest, error)
	ListCompleted(ctx context.Context) ([]*models.ApprovalRequest, error)
	MarkUnderReview(ctx context.Context, id int64) (*models.ApprovalRequest, error)
	CanApprove(ctx context.Context, principal requestcontext.Principal, id int64) (bool, error)
	RecordVote(ctx context.Context, in models.VoteInput) (*service.VoteResult, error)
	Preview(ctx context.Context, id int64) (*service.PreviewResult, error)
	ResolveApprovers(ctx context.Context, objectType, action string, scope models.Scope) (policy.Resolution, error)
	AssignApprover(ctx context.Context, in service.AssignInput) (*models.ApproverAssignment, error)
	DeactivateAssignment(ctx context.Context, id int64) error
	ListAssignments(ctx context.Context, f policystore.AssignmentFilter) ([]*models.ApproverAssignment, error)
	UpsertRuleConfig(ctx context.Context, cfg models.RuleConfig) (*models.RuleConfig, error)
	ListRuleConfigs(ctx context.Context) ([]*models.RuleConfig, error)
}

// Handler wires approval endpoints to the approval service.
type Handler struct {
	service      Service
	logger       *slog.Logger
	jwtValidator auth.JWTValidator
	observer     request.RequestObserver
	timeout      time.Duration
}

// New constructs an approval handler with its dependencies. observer may be nil.
func New(svc Service, logger *slog.Logger, jwtValidator auth.JWTValidator, observer request.RequestObserver) *Handler {
	return &Handler{
		service:      svc,
		logger:       logger,
		jwtValidator: jwtValidator,
		observer:     observer,
		timeout:      30 * time.Second,
	}
}

// Register mounts the approval endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(request.Recovery(h.logger))
	router.Use(request.RequestID)
	router.Use(requesttime.Middleware)
	router.Use(request.Logger(h.logger))
	router.Use(request.Timeout(h.timeout))
	router.Use(request.ContentTypeJSON)
	router.Use(request.LatencyMiddleware(h.observer))
	router.Use(auth.RequireAuth(h.jwtValidator, nil, h.logger))

	router.Route("/approvals", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/pending", h.handleListPending)
		r.Get("/completed", h.handleListCompleted)
		r.Get("/{id}", h.handleGet)
		r.Post("/{id}/review", h.handleMarkUnderReview)
		r.Post("/{id}/votes", h.handleVote)
		r.Get("/{id}/preview", h.handlePreview)
	})
	router.Get("/approvers", h.handleResolveApprovers)

	router.Route("/admin", func(r chi.Router) {
		r.Use(admin.RequireRole(h.logger, RoleAdmin))
		r.Get("/approver-assignments", h.handleListAssignments)
		r.Post("/approver-assignments", h.handleAssign)
		r.Delete("/approver-assignments/{id}", h.handleDeactivateAssignment)
		r.Get("/approval-rules", h.handleListRules)
		r.Put("/approval-rules", h.handleUpsertRule)
	})

	r.Mount("/", router)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "id must be a positive integer")
	}
	return id, nil
}

// fail logs service errors at a level matching their status and writes the reply.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error, attrs ...any) {
	attrs = append([]any{"request_id", request.GetRequestID(ctx), "error", err}, attrs...)
	if dErrors.ToHTTPStatus(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[CreateApprovalRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	actor := requestcontext.Actor(ctx)
	created, err := h.service.CreateRequest(ctx, req.toModel(actor))
	if err != nil {
		h.fail(ctx, w, "approval create failed", err, "object_type", req.ObjectType, "action", req.Action)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.service.ListPending(ctx)
	if err != nil {
		h.fail(ctx, w, "list pending approvals failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newListResponse(list))
}

func (h *Handler) handleListCompleted(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.service.ListCompleted(ctx)
	if err != nil {
		h.fail(ctx, w, "list completed approvals failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newListResponse(list))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := h.service.GetRequest(ctx, id)
	if err != nil {
		h.fail(ctx, w, "get approval failed", err, "approval_id", id)
		return
	}
	votes, err := h.service.ListVotes(ctx, id)
	if err != nil {
		h.fail(ctx, w, "list votes failed", err, "approval_id", id)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ApprovalDetailResponse{Request: req, Votes: votes})
}

func (h *Handler) handleMarkUnderReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := h.service.MarkUnderReview(ctx, id)
	if err != nil {
		h.fail(ctx, w, "mark under review failed", err, "approval_id", id)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	body, ok := httputil.DecodeAndPrepare[VoteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	actor := requestcontext.Actor(ctx)
	allowed, err := h.service.CanApprove(ctx, actor, id)
	if err != nil {
		h.fail(ctx, w, "approver check failed", err, "approval_id", id)
		return
	}
	if !allowed {
		h.logger.WarnContext(ctx, "vote refused - not an approver",
			"request_id", requestID,
			"approval_id", id,
			"email", actor.Email,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "you are not an approver for this request"))
		return
	}

	result, err := h.service.RecordVote(ctx, models.VoteInput{
		ApprovalID: id,
		VoterEmail: actor.Email,
		Decision:   body.Decision,
		Note:       body.Note,
	})
	if err != nil {
		h.fail(ctx, w, "vote failed", err, "approval_id", id, "voter", actor.Email)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newVoteResponse(result))
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.Preview(ctx, id)
	if err != nil {
		h.fail(ctx, w, "preview failed", err, "approval_id", id)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleResolveApprovers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	objectType, action := q.Get("object_type"), q.Get("action")
	if objectType == "" || action == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "object_type and action are required"))
		return
	}
	scope := models.NewScope(q.Get("degree"), q.Get("program"), q.Get("branch"))
	res, err := h.service.ResolveApprovers(ctx, objectType, action, scope)
	if err != nil {
		h.fail(ctx, w, "resolve approvers failed", err, "object_type", objectType, "action", action)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	includeInactive, _ := strconv.ParseBool(q.Get("include_inactive"))
	list, err := h.service.ListAssignments(ctx, policystore.AssignmentFilter{
		ObjectType:      q.Get("object_type"),
		Action:          q.Get("action"),
		ApproverEmail:   q.Get("approver_email"),
		IncludeInactive: includeInactive,
	})
	if err != nil {
		h.fail(ctx, w, "list assignments failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AssignmentListResponse{Assignments: list, Count: len(list)})
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, ok := httputil.DecodeAndPrepare[AssignApproverRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	a, err := h.service.AssignApprover(ctx, body.toInput())
	if err != nil {
		h.fail(ctx, w, "assign approver failed", err, "object_type", body.ObjectType, "action", body.Action)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) handleDeactivateAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeactivateAssignment(ctx, id); err != nil {
		h.fail(ctx, w, "deactivate assignment failed", err, "assignment_id", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rules, err := h.service.ListRuleConfigs(ctx)
	if err != nil {
		h.fail(ctx, w, "list approval rules failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RuleListResponse{Rules: rules, Count: len(rules)})
}

func (h *Handler) handleUpsertRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, ok := httputil.DecodeAndPrepare[UpsertRuleRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	cfg, err := h.service.UpsertRuleConfig(ctx, body.toModel())
	if err != nil {
		h.fail(ctx, w, "upsert approval rule failed", err, "object_type", body.ObjectType, "action", body.Action)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}
