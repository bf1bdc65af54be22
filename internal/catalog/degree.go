package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"acadmin/internal/schema"
	txcontext "acadmin/pkg/platform/tx"
)

// CascadeResult reports how many rows a cascade removed per table.
type CascadeResult struct {
	Removed []DependentCount
}

func (r *CascadeResult) add(table string, n int64) {
	if n > 0 {
		r.Removed = append(r.Removed, DependentCount{Table: table, Count: n})
	}
}

// DeleteDegree deletes only the degree row. Foreign keys, if any, are left
// to storage to enforce.
func DeleteDegree(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, degreeCode string) error {
	if err := requireTable(caps, TableDegrees); err != nil {
		return err
	}
	col := degreeCodeColumn(caps)
	n, err := exec(ctx, q, fmt.Sprintf("DELETE FROM %s WHERE %s", ident(TableDegrees), codeEquals(col, 1)), degreeCode)
	if err != nil {
		return fmt.Errorf("delete degree %s: %w", degreeCode, err)
	}
	if n == 0 {
		return notFound("degree", degreeCode)
	}
	return nil
}

// DeleteDegreeCascade removes semesters, branches, programs, then the degree,
// children before parents. Branches are matched by their own degree_code
// column and, when present, by program_id of the degree's programs.
// Semesters also match through those branches and programs.
func DeleteDegreeCascade(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, degreeCode string) (CascadeResult, error) {
	ctx, span := tracer.Start(ctx, "catalog.DeleteDegreeCascade")
	defer span.End()
	span.SetAttributes(attribute.String("degree_code", degreeCode))

	res, err := deleteDegreeCascade(ctx, q, caps, degreeCode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func deleteDegreeCascade(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, degreeCode string) (CascadeResult, error) {
	var res CascadeResult
	if err := requireTable(caps, TableDegrees); err != nil {
		return res, err
	}

	var programIDs []int64
	if caps.HasNumericID(TablePrograms) && caps.HasColumn(TablePrograms, "degree_code") {
		ids, err := queryIDs(ctx, q, fmt.Sprintf("SELECT id FROM %s WHERE %s", ident(TablePrograms), codeEquals("degree_code", 1)), degreeCode)
		if err != nil {
			return res, fmt.Errorf("list programs of %s: %w", degreeCode, err)
		}
		programIDs = ids
	}

	if f := degreeSemesters(caps, degreeCode, programIDs); !f.empty() {
		n, err := exec(ctx, q, fmt.Sprintf("DELETE FROM %s WHERE %s", ident(TableSemesters), f.where()), f.args...)
		if err != nil {
			return res, fmt.Errorf("delete semesters of %s: %w", degreeCode, err)
		}
		res.add(TableSemesters, n)
	}

	if caps.HasTable(TableBranches) {
		var f filter
		if c := degreeBranchPredicate(&f, caps, degreeCode, programIDs); c != "" {
			f.or(c)
		}
		if !f.empty() {
			if caps.HasColumn(TableBranchStructure, "branch_id") && caps.HasNumericID(TableBranches) {
				_, err := exec(ctx, q, fmt.Sprintf("DELETE FROM %s WHERE branch_id IN (SELECT id FROM %s WHERE %s)",
					ident(TableBranchStructure), ident(TableBranches), f.where()), f.args...)
				if err != nil {
					return res, fmt.Errorf("delete branch structures of %s: %w", degreeCode, err)
				}
			}
			n, err := exec(ctx, q, fmt.Sprintf("DELETE FROM %s WHERE %s", ident(TableBranches), f.where()), f.args...)
			if err != nil {
				return res, fmt.Errorf("delete branches of %s: %w", degreeCode, err)
			}
			res.add(TableBranches, n)
		}
	}

	if len(programIDs) > 0 && caps.HasColumn(TableProgramStructure, "program_id") {
		if _, err := exec(ctx, q, fmt.Sprintf("DELETE FROM %s WHERE program_id = ANY($1)", ident(TableProgramStructure)), pq.Array(programIDs)); err != nil {
			return res, fmt.Errorf("delete program structures of %s: %w", degreeCode, err)
		}
	}

	if caps.HasColumn(TablePrograms, "degree_code") {
		n, err := exec(ctx, q, fmt.Sprintf("DELETE FROM %s WHERE %s", ident(TablePrograms), codeEquals("degree_code", 1)), degreeCode)
		if err != nil {
			return res, fmt.Errorf("delete programs of %s: %w", degreeCode, err)
		}
		res.add(TablePrograms, n)
	}

	for _, table := range []string{TableSemesterBinding, TableDegreeStructure} {
		if !caps.HasColumn(table, "degree_code") {
			continue
		}
		if _, err := exec(ctx, q, fmt.Sprintf("DELETE FROM %s WHERE %s", ident(table), codeEquals("degree_code", 1)), degreeCode); err != nil {
			return res, fmt.Errorf("delete %s of %s: %w", table, degreeCode, err)
		}
	}

	if err := DeleteDegree(ctx, q, caps, degreeCode); err != nil {
		return res, err
	}
	return res, nil
}

// degreeBranchPredicate renders the predicate selecting the degree's
// branches, by their own degree_code or by program, binding into f.
// It returns "" when branches cannot be linked to the degree.
func degreeBranchPredicate(f *filter, caps *schema.Capabilities, degreeCode string, programIDs []int64) string {
	var parts []string
	if caps.HasColumn(TableBranches, "degree_code") {
		parts = append(parts, fmt.Sprintf("LOWER(degree_code) = LOWER(%s)", f.bind(degreeCode)))
	}
	if caps.HasColumn(TableBranches, "program_id") && len(programIDs) > 0 {
		parts = append(parts, fmt.Sprintf("program_id = ANY(%s)", f.bind(pq.Array(programIDs))))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// degreeSemesters builds the filter for the degree's semesters: by
// degree_code, through the degree's branches and through its programs.
func degreeSemesters(caps *schema.Capabilities, degreeCode string, programIDs []int64) filter {
	var f filter
	if caps.HasColumn(TableSemesters, "degree_code") {
		f.or(fmt.Sprintf("LOWER(degree_code) = LOWER(%s)", f.bind(degreeCode)))
	}
	if caps.HasColumn(TableSemesters, "branch_id") && caps.HasNumericID(TableBranches) {
		if c := degreeBranchPredicate(&f, caps, degreeCode, programIDs); c != "" {
			f.or(fmt.Sprintf("branch_id IN (SELECT id FROM %s WHERE %s)", ident(TableBranches), c))
		}
	}
	if caps.HasColumn(TableSemesters, "program_id") && len(programIDs) > 0 {
		f.or(fmt.Sprintf("program_id = ANY(%s)", f.bind(pq.Array(programIDs))))
	}
	return f
}
