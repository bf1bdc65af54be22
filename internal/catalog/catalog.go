// Package catalog mutates the academic structure tables (degrees, programs,
// branches, semesters and their dependents) on behalf of approved requests.
//
// Every function takes the caller's Querier so it joins the caller's
// transaction, and a *schema.Capabilities so it can skip tables and columns a
// deployment does not have. Dynamic identifiers are always quoted.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"

	"acadmin/internal/schema"
	dErrors "acadmin/pkg/domain-errors"
	txcontext "acadmin/pkg/platform/tx"
)

var tracer = otel.Tracer("acadmin/catalog")

// Table names touched by this package.
const (
	TableDegrees              = "degrees"
	TablePrograms             = "programs"
	TableBranches             = "branches"
	TableSemesters            = "semesters"
	TableSemesterBinding      = "semester_binding"
	TableDegreeStructure      = "degree_semester_struct"
	TableProgramStructure     = "program_semester_struct"
	TableBranchStructure      = "branch_semester_struct"
	TableCurriculumGroups     = "curriculum_groups"
	TableCurriculumGroupLinks = "curriculum_group_links"
	TableSubjects             = "subjects"
	TableOfferings            = "offerings"
	TableEnrollments          = "enrollments"
	TableFacultyProfiles      = "faculty_profiles"
	TableFacultyAffiliations  = "faculty_affiliations"
	TableAcademicYears        = "academic_years"
	TableOutcomeItems         = "outcome_items"
)

// facultyDependents are deleted before a faculty profile, each only when the
// table exists with a faculty_id column.
var facultyDependents = []string{
	TableFacultyAffiliations,
	"faculty_custom_field_values",
	"faculty_role_mappings",
	"faculty_initial_credentials",
	"faculty_teaching_assignments",
	"faculty_workload",
	"faculty_documents",
	"faculty_tag_map",
}

// KnownTables lists every table whose shape is probed at startup.
func KnownTables() []string {
	tables := []string{
		TableDegrees, TablePrograms, TableBranches, TableSemesters,
		TableSemesterBinding, TableDegreeStructure, TableProgramStructure, TableBranchStructure,
		TableCurriculumGroups, TableCurriculumGroupLinks, TableSubjects, TableOfferings, TableEnrollments,
		TableFacultyProfiles, TableAcademicYears, TableOutcomeItems,
	}
	return append(tables, facultyDependents...)
}

func ident(name string) string {
	return pq.QuoteIdentifier(name)
}

// codeEquals renders a case-insensitive comparison of column against placeholder.
func codeEquals(column string, placeholder int) string {
	return fmt.Sprintf("LOWER(%s) = LOWER($%d)", ident(column), placeholder)
}

func schemaMismatch(table, column string) error {
	if column == "" {
		return dErrors.New(dErrors.CodeSchemaMismatch, "table "+table+" is not present in this deployment")
	}
	return dErrors.New(dErrors.CodeSchemaMismatch, "column "+table+"."+column+" is not present in this deployment")
}

func requireTable(caps *schema.Capabilities, table string) error {
	if !caps.HasTable(table) {
		return schemaMismatch(table, "")
	}
	return nil
}

func requireColumn(caps *schema.Capabilities, table, column string) error {
	if !caps.HasColumn(table, column) {
		return schemaMismatch(table, column)
	}
	return nil
}

func exec(ctx context.Context, q txcontext.Querier, query string, args ...any) (int64, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func count(ctx context.Context, q txcontext.Querier, query string, args ...any) (int64, error) {
	var n int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func queryIDs(ctx context.Context, q txcontext.Querier, query string, args ...any) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// degreeCodeColumn returns the natural key column of degrees.
func degreeCodeColumn(caps *schema.Capabilities) string {
	if caps.HasColumn(TableDegrees, "degree_code") {
		return "degree_code"
	}
	return "code"
}

func notFound(kind, ref string) error {
	return dErrors.New(dErrors.CodeNotFound, kind+" "+strings.TrimSpace(ref)+" not found")
}
