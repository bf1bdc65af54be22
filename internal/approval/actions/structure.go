package actions

import (
	"context"
	"fmt"

	"acadmin/internal/approval/dispatch"
	"acadmin/internal/approval/models"
	"acadmin/internal/catalog"
	dErrors "acadmin/pkg/domain-errors"
)

func (h *handlers) deleteDegree(ctx context.Context, env dispatch.Env, t dispatch.Target, p DegreeDeletePayload) error {
	code := t.Ref.Code()
	if code == "" {
		return dErrors.New(dErrors.CodeValidation, "degree code is required")
	}
	if !p.Cascade {
		return catalog.DeleteDegree(ctx, env.Conn, env.Caps, code)
	}
	res, err := catalog.DeleteDegreeCascade(ctx, env.Conn, env.Caps, code)
	if err != nil {
		return err
	}
	env.Log().InfoContext(ctx, "degree deleted with cascade",
		"approval_id", t.ApprovalID,
		"degree_code", code,
		"removed", fmt.Sprint(res.Removed),
	)
	return nil
}

func (h *handlers) editDegree(ctx context.Context, env dispatch.Env, t dispatch.Target, p EditPayload) error {
	res, err := catalog.EditDegree(ctx, env.Conn, env.Caps, t.Ref.Code(), p.Updates)
	if err != nil {
		return err
	}
	logIgnored(ctx, env, t, res)
	return nil
}

func (h *handlers) deleteProgram(ctx context.Context, env dispatch.Env, t dispatch.Target, p ProgramDeletePayload) error {
	res, err := catalog.DeleteProgram(ctx, env.Conn, env.Caps, t.Ref, catalog.ProgramDeleteOptions{
		Cascade:         p.Cascade,
		AllowIfChildren: p.AllowDeleteIfChildren,
	})
	if err != nil {
		return err
	}
	if len(res.Removed) > 0 {
		env.Log().InfoContext(ctx, "program deleted with dependents",
			"approval_id", t.ApprovalID,
			"program", t.Ref.String(),
			"removed", fmt.Sprint(res.Removed),
		)
	}
	return nil
}

func (h *handlers) editProgram(ctx context.Context, env dispatch.Env, t dispatch.Target, p EditPayload) error {
	res, err := catalog.EditProgram(ctx, env.Conn, env.Caps, t.Ref, p.Updates)
	if err != nil {
		return err
	}
	logIgnored(ctx, env, t, res)
	return nil
}

func (h *handlers) deleteBranch(ctx context.Context, env dispatch.Env, t dispatch.Target, _ NoPayload) error {
	return catalog.DeleteBranch(ctx, env.Conn, env.Caps, t.Ref)
}

func (h *handlers) editBranch(ctx context.Context, env dispatch.Env, t dispatch.Target, p EditPayload) error {
	res, err := catalog.EditBranch(ctx, env.Conn, env.Caps, t.Ref, p.Updates)
	if err != nil {
		return err
	}
	logIgnored(ctx, env, t, res)
	return nil
}

func (h *handlers) deleteCurriculumGroup(ctx context.Context, env dispatch.Env, t dispatch.Target, _ NoPayload) error {
	return catalog.DeleteCurriculumGroup(ctx, env.Conn, env.Caps, t.Ref)
}

func (h *handlers) deleteSubject(ctx context.Context, env dispatch.Env, t dispatch.Target, _ NoPayload) error {
	return catalog.DeleteSubject(ctx, env.Conn, env.Caps, t.Ref)
}

func (h *handlers) changeBinding(ctx context.Context, env dispatch.Env, t dispatch.Target, p BindingChangePayload) error {
	degree := t.Ref.Code()
	if degree == "" {
		return dErrors.New(dErrors.CodeValidation, "degree code is required")
	}
	mode, err := catalog.ParseBindingMode(p.BindingMode)
	if err != nil {
		return err
	}

	label, err := catalog.ParseLabelMode(p.LabelMode)
	if err != nil {
		return err
	}
	if p.LabelMode == "" {
		if current, ok, err := catalog.FindBinding(ctx, env.Conn, env.Caps, degree); err != nil {
			return err
		} else if ok {
			label = current.Label
		}
	}

	if err := catalog.UpsertBinding(ctx, env.Conn, env.Caps, catalog.Binding{DegreeCode: degree, Mode: mode, Label: label}); err != nil {
		return err
	}
	if !p.AutoRebuild {
		return nil
	}
	n, err := catalog.RebuildSemesters(ctx, env.Conn, env.Caps, degree, mode, label)
	if err != nil {
		return err
	}
	env.Log().InfoContext(ctx, "semesters rebuilt after binding change",
		"approval_id", t.ApprovalID,
		"degree_code", degree,
		"binding_mode", string(mode),
		"semesters", n,
	)
	return nil
}

func (h *handlers) editStructure(ctx context.Context, env dispatch.Env, t dispatch.Target, p StructurePayload) error {
	key, err := models.ParseStructureKey(t.Ref.Code())
	if err != nil {
		return err
	}
	if err := catalog.UpsertStructure(ctx, env.Conn, env.Caps, key, catalog.Structure{Years: p.Years, TermsPerYear: p.TermsPerYear}); err != nil {
		return err
	}

	degree, err := catalog.OwningDegree(ctx, env.Conn, env.Caps, key)
	if err != nil {
		return err
	}
	binding, ok, err := catalog.FindBinding(ctx, env.Conn, env.Caps, degree)
	if err != nil || !ok {
		return err
	}
	n, err := catalog.RebuildSemesters(ctx, env.Conn, env.Caps, degree, binding.Mode, binding.Label)
	if err != nil {
		return err
	}
	env.Log().InfoContext(ctx, "semesters rebuilt after structure edit",
		"approval_id", t.ApprovalID,
		"structure", key.String(),
		"degree_code", degree,
		"semesters", n,
	)
	return nil
}

func logIgnored(ctx context.Context, env dispatch.Env, t dispatch.Target, res catalog.UpdateResult) {
	if len(res.Ignored) == 0 {
		return
	}
	env.Log().WarnContext(ctx, "ignored update keys",
		"approval_id", t.ApprovalID,
		"action_key", t.Key.String(),
		"ignored", res.Ignored,
	)
}
