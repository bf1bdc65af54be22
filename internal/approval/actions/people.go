package actions

import (
	"context"
	"fmt"
	"strings"

	"acadmin/internal/approval/dispatch"
	"acadmin/internal/catalog"
	dErrors "acadmin/pkg/domain-errors"
)

func (h *handlers) deleteFaculty(ctx context.Context, env dispatch.Env, t dispatch.Target, _ NoPayload) error {
	res, err := catalog.DeleteFaculty(ctx, env.Conn, env.Caps, t.Ref)
	if err != nil {
		return err
	}
	env.Log().InfoContext(ctx, "faculty deleted",
		"approval_id", t.ApprovalID,
		"faculty", t.Ref.String(),
		"removed", fmt.Sprint(res.Removed),
	)
	return nil
}

func (h *handlers) editAffiliation(ctx context.Context, env dispatch.Env, t dispatch.Target, p EditPayload) error {
	id, err := numericID(t, "affiliation")
	if err != nil {
		return err
	}
	res, err := catalog.EditAffiliation(ctx, env.Conn, env.Caps, id, p.Updates)
	if err != nil {
		return err
	}
	logIgnored(ctx, env, t, res)
	return nil
}

func (h *handlers) changeAcademicYearStatus(ctx context.Context, env dispatch.Env, t dispatch.Target, p AcademicYearStatusPayload) error {
	id, err := numericID(t, "academic year")
	if err != nil {
		return err
	}
	status := strings.TrimSpace(p.Status)
	if status == "" {
		return dErrors.New(dErrors.CodeValidation, "status is required")
	}
	if h.deps.AcademicYears != nil {
		return h.deps.AcademicYears.UpdateStatus(ctx, env.Conn, id, status)
	}
	return catalog.SetAcademicYearStatus(ctx, env.Conn, env.Caps, id, status)
}

func (h *handlers) deleteAcademicYear(ctx context.Context, env dispatch.Env, t dispatch.Target, _ NoPayload) error {
	id, err := numericID(t, "academic year")
	if err != nil {
		return err
	}
	if h.deps.AcademicYears != nil {
		return h.deps.AcademicYears.Delete(ctx, env.Conn, id)
	}
	return catalog.DeleteAcademicYear(ctx, env.Conn, env.Caps, id)
}

func (h *handlers) editOutcome(ctx context.Context, env dispatch.Env, t dispatch.Target, p OutcomeEditPayload) error {
	id, err := numericID(t, "outcome item")
	if err != nil {
		return err
	}
	if h.deps.Outcomes != nil {
		return h.deps.Outcomes.UpdateItem(ctx, env.Conn, id, p.After)
	}
	res, err := catalog.UpdateOutcomeItem(ctx, env.Conn, env.Caps, id, p.After.Columns())
	if err != nil {
		return err
	}
	logIgnored(ctx, env, t, res)
	return nil
}

func numericID(t dispatch.Target, kind string) (int64, error) {
	id, ok := t.Ref.ByID()
	if !ok {
		return 0, dErrors.New(dErrors.CodeValidation, kind+" id must be numeric, got "+t.Ref.String())
	}
	return id, nil
}
