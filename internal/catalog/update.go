package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/lib/pq"

	"acadmin/internal/approval/models"
	"acadmin/internal/schema"
	dErrors "acadmin/pkg/domain-errors"
	txcontext "acadmin/pkg/platform/tx"
)

// alwaysProtected columns are never written from an updates payload.
var alwaysProtected = []string{"id", "created_at", "updated_at"}

// UpdateResult reports which update keys were written and which were
// ignored because the column is absent or protected.
type UpdateResult struct {
	Applied []string
	Ignored []string
}

// rowSelector renders the WHERE clause that picks the row to update.
type rowSelector func(f *filter) string

func updateRow(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, table string, sel rowSelector, label string, updates map[string]any, protected ...string) (UpdateResult, error) {
	var res UpdateResult
	if err := requireTable(caps, table); err != nil {
		return res, err
	}

	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var (
		f    filter
		sets []string
	)
	for _, key := range keys {
		col := strings.ToLower(strings.TrimSpace(key))
		if col == "" || slices.Contains(alwaysProtected, col) || slices.Contains(protected, col) || !caps.HasColumn(table, col) {
			res.Ignored = append(res.Ignored, key)
			continue
		}
		val, err := columnValue(updates[key], caps.ColumnType(table, col))
		if err != nil {
			return res, dErrors.Wrap(err, dErrors.CodeValidation, "update value for "+key+" is not storable")
		}
		sets = append(sets, fmt.Sprintf("%s = %s", ident(col), f.bind(val)))
		res.Applied = append(res.Applied, col)
	}
	if len(sets) == 0 {
		return res, nil
	}
	if caps.HasColumn(table, "updated_at") {
		sets = append(sets, ident("updated_at")+" = NOW()")
	}

	where := sel(&f)
	n, err := exec(ctx, q, fmt.Sprintf("UPDATE %s SET %s WHERE %s", ident(table), strings.Join(sets, ", "), where), f.args...)
	if err != nil {
		return res, fmt.Errorf("update %s: %w", label, err)
	}
	if n == 0 {
		return res, notFound(table, label)
	}
	return res, nil
}

// columnValue converts a decoded JSON value to a driver value. Integral
// numbers become int64. Lists bound to a Postgres array column become a text
// array; other objects and lists are stored as JSON text.
func columnValue(v any, dataType string) (any, error) {
	switch t := v.(type) {
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int64(t), nil
		}
		return t, nil
	case []any:
		if dataType == "array" {
			return textArray(t)
		}
		return jsonText(t)
	case map[string]any:
		return jsonText(t)
	default:
		return t, nil
	}
}

func jsonText(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func textArray(items []any) (any, error) {
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("array element %d is %T, want string", i, item)
		}
		out = append(out, s)
	}
	return pq.Array(out), nil
}

func byRef(caps *schema.Capabilities, table, codeColumn string, ref models.ObjectRef) (rowSelector, error) {
	if id, ok := ref.ByID(); ok && caps.HasNumericID(table) {
		return func(f *filter) string { return "id = " + f.bind(id) }, nil
	}
	if !caps.HasColumn(table, codeColumn) {
		return nil, schemaMismatch(table, codeColumn)
	}
	code := ref.Code()
	return func(f *filter) string { return "LOWER(" + ident(codeColumn) + ") = LOWER(" + f.bind(code) + ")" }, nil
}

func byID(id int64) rowSelector {
	return func(f *filter) string { return "id = " + f.bind(id) }
}

// EditDegree applies updates to a degree row. The natural key is immutable.
func EditDegree(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, degreeCode string, updates map[string]any) (UpdateResult, error) {
	col := degreeCodeColumn(caps)
	sel := func(f *filter) string { return "LOWER(" + ident(col) + ") = LOWER(" + f.bind(degreeCode) + ")" }
	return updateRow(ctx, q, caps, TableDegrees, sel, degreeCode, updates, "code", "degree_code")
}

// EditProgram applies updates to a program row.
func EditProgram(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, ref models.ObjectRef, updates map[string]any) (UpdateResult, error) {
	sel, err := byRef(caps, TablePrograms, "program_code", ref)
	if err != nil {
		return UpdateResult{}, err
	}
	return updateRow(ctx, q, caps, TablePrograms, sel, ref.Code(), updates, "degree_code")
}

// EditBranch applies updates to a branch row.
func EditBranch(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, ref models.ObjectRef, updates map[string]any) (UpdateResult, error) {
	sel, err := byRef(caps, TableBranches, "branch_code", ref)
	if err != nil {
		return UpdateResult{}, err
	}
	return updateRow(ctx, q, caps, TableBranches, sel, ref.Code(), updates, "degree_code", "program_id")
}

// EditAffiliation applies updates to a faculty affiliation that is already
// referenced elsewhere. The owning faculty cannot change.
func EditAffiliation(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, id int64, updates map[string]any) (UpdateResult, error) {
	return updateRow(ctx, q, caps, TableFacultyAffiliations, byID(id), fmt.Sprint(id), updates, "faculty_id")
}

// SetAcademicYearStatus updates academic_years.status directly.
func SetAcademicYearStatus(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, id int64, status string) error {
	if err := requireColumn(caps, TableAcademicYears, "status"); err != nil {
		return err
	}
	_, err := updateRow(ctx, q, caps, TableAcademicYears, byID(id), fmt.Sprint(id), map[string]any{"status": status})
	return err
}

// DeleteAcademicYear deletes an academic_years row.
func DeleteAcademicYear(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, id int64) error {
	return deleteByRef(ctx, q, caps, TableAcademicYears, "id", models.ParseObjectRef(fmt.Sprint(id)))
}

// UpdateOutcomeItem writes the given outcome fields to outcome_items.
func UpdateOutcomeItem(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, id int64, fields map[string]any) (UpdateResult, error) {
	return updateRow(ctx, q, caps, TableOutcomeItems, byID(id), fmt.Sprint(id), fields)
}
