package catalog

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"acadmin/internal/approval/models"
	"acadmin/internal/schema"
	txcontext "acadmin/pkg/platform/tx"
)

// programDependents is the probe order for dependent counts.
var programDependents = []string{
	TableBranches,
	TableSemesters,
	TableCurriculumGroups,
	TableSubjects,
	TableOfferings,
	TableEnrollments,
}

// programPredicate renders a predicate selecting rows of table that belong to
// p, preferring program_id over program_code.
func programPredicate(f *filter, caps *schema.Capabilities, table string, p Program) (string, bool) {
	if p.HasID && caps.HasColumn(table, "program_id") {
		return "program_id = " + f.bind(p.ID), true
	}
	if p.Code != "" && caps.HasColumn(table, "program_code") {
		return "LOWER(program_code) = LOWER(" + f.bind(p.Code) + ")", true
	}
	return "", false
}

// programRows builds the filter for rows of table that belong to p.
// Semesters also match through their branch.
func programRows(caps *schema.Capabilities, table string, p Program) filter {
	var f filter
	if c, ok := programPredicate(&f, caps, table, p); ok {
		f.or(c)
	}
	if table == TableSemesters && caps.HasColumn(TableSemesters, "branch_id") && caps.HasNumericID(TableBranches) {
		if c, ok := programPredicate(&f, caps, TableBranches, p); ok {
			f.or(fmt.Sprintf("branch_id IN (SELECT id FROM %s WHERE %s)", ident(TableBranches), c))
		}
	}
	return f
}

// DependentCounts counts rows depending on p in each dependent table that
// exists and can be linked to programs. Zero counts are omitted.
func DependentCounts(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, p Program) ([]DependentCount, error) {
	var counts []DependentCount
	for _, table := range programDependents {
		if !caps.HasTable(table) {
			continue
		}
		f := programRows(caps, table, p)
		if f.empty() {
			continue
		}
		n, err := count(ctx, q, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", ident(table), f.where()), f.args...)
		if err != nil {
			return nil, fmt.Errorf("count %s of %s: %w", table, p, err)
		}
		if n > 0 {
			counts = append(counts, DependentCount{Table: table, Count: n})
		}
	}
	return counts, nil
}

// ProgramDeleteOptions mirrors the program.delete payload.
type ProgramDeleteOptions struct {
	Cascade         bool
	AllowIfChildren bool
}

// DeleteProgram deletes a program. With dependents present it fails with a
// *DependentRecordsError unless AllowIfChildren is set. When Cascade is set,
// or dependents exist and are allowed, the program's semesters, branches and
// curriculum groups go first.
func DeleteProgram(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, ref models.ObjectRef, opts ProgramDeleteOptions) (CascadeResult, error) {
	ctx, span := tracer.Start(ctx, "catalog.DeleteProgram")
	defer span.End()
	span.SetAttributes(
		attribute.String("object_id", ref.String()),
		attribute.Bool("cascade", opts.Cascade),
		attribute.Bool("allow_delete_if_children", opts.AllowIfChildren),
	)

	res, err := deleteProgram(ctx, q, caps, ref, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func deleteProgram(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, ref models.ObjectRef, opts ProgramDeleteOptions) (CascadeResult, error) {
	var res CascadeResult
	p, err := ResolveProgram(ctx, q, caps, ref)
	if err != nil {
		return res, err
	}

	counts, err := DependentCounts(ctx, q, caps, p)
	if err != nil {
		return res, err
	}
	if len(counts) > 0 && !opts.AllowIfChildren {
		return res, &DependentRecordsError{Object: p.String(), Counts: counts}
	}

	if opts.Cascade || len(counts) > 0 {
		if err := cascadeProgramChildren(ctx, q, caps, p, &res); err != nil {
			return res, err
		}
	}

	var f filter
	if p.HasID {
		f.or("id = " + f.bind(p.ID))
	} else {
		f.or("LOWER(program_code) = LOWER(" + f.bind(p.Code) + ")")
	}
	n, err := exec(ctx, q, fmt.Sprintf("DELETE FROM %s WHERE %s", ident(TablePrograms), f.where()), f.args...)
	if err != nil {
		return res, fmt.Errorf("delete %s: %w", p, err)
	}
	if n == 0 {
		return res, notFound("program", ref.Code())
	}
	return res, nil
}

func cascadeProgramChildren(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, p Program, res *CascadeResult) error {
	if caps.HasTable(TableSemesters) {
		if f := programRows(caps, TableSemesters, p); !f.empty() {
			n, err := exec(ctx, q, fmt.Sprintf("DELETE FROM %s WHERE %s", ident(TableSemesters), f.where()), f.args...)
			if err != nil {
				return fmt.Errorf("delete semesters of %s: %w", p, err)
			}
			res.add(TableSemesters, n)
		}
	}

	if caps.HasTable(TableBranches) {
		if f := programRows(caps, TableBranches, p); !f.empty() {
			if caps.HasColumn(TableBranchStructure, "branch_id") && caps.HasNumericID(TableBranches) {
				_, err := exec(ctx, q, fmt.Sprintf("DELETE FROM %s WHERE branch_id IN (SELECT id FROM %s WHERE %s)",
					ident(TableBranchStructure), ident(TableBranches), f.where()), f.args...)
				if err != nil {
					return fmt.Errorf("delete branch structures of %s: %w", p, err)
				}
			}
			n, err := exec(ctx, q, fmt.Sprintf("DELETE FROM %s WHERE %s", ident(TableBranches), f.where()), f.args...)
			if err != nil {
				return fmt.Errorf("delete branches of %s: %w", p, err)
			}
			res.add(TableBranches, n)
		}
	}

	if caps.HasTable(TableCurriculumGroups) {
		if f := programRows(caps, TableCurriculumGroups, p); !f.empty() {
			if caps.HasColumn(TableCurriculumGroupLinks, "group_id") && caps.HasNumericID(TableCurriculumGroups) {
				_, err := exec(ctx, q, fmt.Sprintf("DELETE FROM %s WHERE group_id IN (SELECT id FROM %s WHERE %s)",
					ident(TableCurriculumGroupLinks), ident(TableCurriculumGroups), f.where()), f.args...)
				if err != nil {
					return fmt.Errorf("delete curriculum group links of %s: %w", p, err)
				}
			}
			n, err := exec(ctx, q, fmt.Sprintf("DELETE FROM %s WHERE %s", ident(TableCurriculumGroups), f.where()), f.args...)
			if err != nil {
				return fmt.Errorf("delete curriculum groups of %s: %w", p, err)
			}
			res.add(TableCurriculumGroups, n)
		}
	}

	if p.HasID && caps.HasColumn(TableProgramStructure, "program_id") {
		if _, err := exec(ctx, q, fmt.Sprintf("DELETE FROM %s WHERE program_id = $1", ident(TableProgramStructure)), p.ID); err != nil {
			return fmt.Errorf("delete structure of %s: %w", p, err)
		}
	}
	return nil
}
