package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"acadmin/internal/approval/models"
	"acadmin/internal/schema"
	dErrors "acadmin/pkg/domain-errors"
	txcontext "acadmin/pkg/platform/tx"
)

// BindingMode is the granularity at which a degree's semester structure is defined.
type BindingMode string

const (
	BindingDegree  BindingMode = "degree"
	BindingProgram BindingMode = "program"
	BindingBranch  BindingMode = "branch"
)

func ParseBindingMode(raw string) (BindingMode, error) {
	m := BindingMode(strings.ToLower(strings.TrimSpace(raw)))
	switch m {
	case BindingDegree, BindingProgram, BindingBranch:
		return m, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "binding_mode must be degree, program or branch")
}

// LabelMode selects how generated semesters are labelled.
type LabelMode string

const (
	LabelYearTerm  LabelMode = "year_term"
	LabelSemesterN LabelMode = "semester_n"
)

// ParseLabelMode defaults an empty value to year_term.
func ParseLabelMode(raw string) (LabelMode, error) {
	m := LabelMode(strings.ToLower(strings.TrimSpace(raw)))
	switch m {
	case "":
		return LabelYearTerm, nil
	case LabelYearTerm, LabelSemesterN:
		return m, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "label_mode must be year_term or semester_n")
}

// Binding is a degree's semester_binding row.
type Binding struct {
	DegreeCode string
	Mode       BindingMode
	Label      LabelMode
}

// SemesterSlot is one generated semester.
type SemesterSlot struct {
	Year   int
	Term   int
	Number int
	Label  string
}

// PlanSemesters generates years x termsPerYear slots numbered 1..N in
// year-major order.
func PlanSemesters(years, termsPerYear int, label LabelMode) []SemesterSlot {
	if years <= 0 || termsPerYear <= 0 {
		return nil
	}
	slots := make([]SemesterSlot, 0, years*termsPerYear)
	n := 0
	for y := 1; y <= years; y++ {
		for t := 1; t <= termsPerYear; t++ {
			n++
			slots = append(slots, SemesterSlot{Year: y, Term: t, Number: n, Label: semesterLabel(label, y, t, n)})
		}
	}
	return slots
}

func semesterLabel(mode LabelMode, year, term, n int) string {
	if mode == LabelSemesterN {
		return fmt.Sprintf("Semester %d", n)
	}
	return fmt.Sprintf("Year %d • Term %d", year, term)
}

// structureOwner is one unit (degree, program or branch) with its structure.
type structureOwner struct {
	programID    sql.NullInt64
	branchID     sql.NullInt64
	years, terms int
}

// RebuildSemesters deletes every semester of the degree and regenerates them
// from the structure rows at the binding's granularity. Units without a
// structure row are skipped. It returns the number of rows inserted.
func RebuildSemesters(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, degreeCode string, binding BindingMode, label LabelMode) (int, error) {
	ctx, span := tracer.Start(ctx, "catalog.RebuildSemesters")
	defer span.End()
	span.SetAttributes(
		attribute.String("degree_code", degreeCode),
		attribute.String("binding_mode", string(binding)),
		attribute.String("label_mode", string(label)),
	)

	n, err := rebuildSemesters(ctx, q, caps, degreeCode, binding, label)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	span.SetAttributes(attribute.Int("semesters_inserted", n))
	return n, nil
}

func rebuildSemesters(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, degreeCode string, binding BindingMode, label LabelMode) (int, error) {
	if err := requireColumn(caps, TableSemesters, "degree_code"); err != nil {
		return 0, err
	}
	if _, err := exec(ctx, q, fmt.Sprintf("DELETE FROM %s WHERE %s", ident(TableSemesters), codeEquals("degree_code", 1)), degreeCode); err != nil {
		return 0, fmt.Errorf("clear semesters of %s: %w", degreeCode, err)
	}

	owners, err := structureOwners(ctx, q, caps, degreeCode, binding)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, owner := range owners {
		for _, slot := range PlanSemesters(owner.years, owner.terms, label) {
			if err := insertSemester(ctx, q, caps, degreeCode, owner, slot); err != nil {
				return inserted, err
			}
			inserted++
		}
	}
	return inserted, nil
}

func structureOwners(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, degreeCode string, binding BindingMode) ([]structureOwner, error) {
	var query string
	switch binding {
	case BindingDegree:
		if !caps.HasColumns(TableDegreeStructure, "degree_code", "years", "terms_per_year") {
			return nil, schemaMismatch(TableDegreeStructure, "")
		}
		query = fmt.Sprintf(`SELECT NULL::bigint, NULL::bigint, years, terms_per_year FROM %s WHERE %s`,
			ident(TableDegreeStructure), codeEquals("degree_code", 1))
	case BindingProgram:
		if !caps.HasColumns(TableProgramStructure, "program_id", "years", "terms_per_year") {
			return nil, schemaMismatch(TableProgramStructure, "")
		}
		if !caps.HasNumericID(TablePrograms) || !caps.HasColumn(TablePrograms, "degree_code") {
			return nil, schemaMismatch(TablePrograms, "degree_code")
		}
		query = fmt.Sprintf(`SELECT p.id, NULL::bigint, s.years, s.terms_per_year
			FROM %s p JOIN %s s ON s.program_id = p.id
			WHERE LOWER(p.degree_code) = LOWER($1)
			ORDER BY p.id`, ident(TablePrograms), ident(TableProgramStructure))
	case BindingBranch:
		if !caps.HasColumns(TableBranchStructure, "branch_id", "years", "terms_per_year") {
			return nil, schemaMismatch(TableBranchStructure, "")
		}
		programCol := "NULL::bigint"
		if caps.HasColumn(TableBranches, "program_id") {
			programCol = "b.program_id"
		}
		joinable := caps.HasColumn(TableBranches, "program_id") && caps.HasColumn(TablePrograms, "degree_code")
		switch {
		case caps.HasColumn(TableBranches, "degree_code") && joinable:
			query = fmt.Sprintf(`SELECT b.program_id, b.id, s.years, s.terms_per_year
				FROM %s b JOIN %s s ON s.branch_id = b.id
				LEFT JOIN %s p ON p.id = b.program_id
				WHERE LOWER(COALESCE(b.degree_code, p.degree_code)) = LOWER($1)
				ORDER BY b.id`, ident(TableBranches), ident(TableBranchStructure), ident(TablePrograms))
		case caps.HasColumn(TableBranches, "degree_code"):
			query = fmt.Sprintf(`SELECT %s, b.id, s.years, s.terms_per_year
				FROM %s b JOIN %s s ON s.branch_id = b.id
				WHERE LOWER(b.degree_code) = LOWER($1)
				ORDER BY b.id`, programCol, ident(TableBranches), ident(TableBranchStructure))
		case joinable:
			query = fmt.Sprintf(`SELECT b.program_id, b.id, s.years, s.terms_per_year
				FROM %s b JOIN %s s ON s.branch_id = b.id
				JOIN %s p ON p.id = b.program_id
				WHERE LOWER(p.degree_code) = LOWER($1)
				ORDER BY b.id`, ident(TableBranches), ident(TableBranchStructure), ident(TablePrograms))
		default:
			return nil, schemaMismatch(TableBranches, "degree_code")
		}
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "unknown binding mode "+string(binding))
	}

	rows, err := q.QueryContext(ctx, query, degreeCode)
	if err != nil {
		return nil, fmt.Errorf("read %s structures of %s: %w", binding, degreeCode, err)
	}
	defer rows.Close()
	var owners []structureOwner
	for rows.Next() {
		var o structureOwner
		if err := rows.Scan(&o.programID, &o.branchID, &o.years, &o.terms); err != nil {
			return nil, fmt.Errorf("scan structure: %w", err)
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}

func insertSemester(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, degreeCode string, owner structureOwner, slot SemesterSlot) error {
	var (
		f    filter
		cols []string
		vals []string
	)
	add := func(col string, v any) {
		if caps.HasColumn(TableSemesters, col) {
			cols = append(cols, ident(col))
			vals = append(vals, f.bind(v))
		}
	}
	add("degree_code", degreeCode)
	add("program_id", owner.programID)
	add("branch_id", owner.branchID)
	add("year_index", slot.Year)
	add("term_index", slot.Term)
	add("semester_number", slot.Number)
	add("label", slot.Label)

	_, err := q.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ident(TableSemesters), strings.Join(cols, ", "), strings.Join(vals, ", ")), f.args...)
	if err != nil {
		return fmt.Errorf("insert semester %d of %s: %w", slot.Number, degreeCode, err)
	}
	return nil
}

// FindBinding returns the degree's binding; ok is false when none exists.
func FindBinding(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, degreeCode string) (Binding, bool, error) {
	if !caps.HasColumns(TableSemesterBinding, "degree_code", "binding_mode") {
		return Binding{}, false, nil
	}
	labelExpr := "''"
	if caps.HasColumn(TableSemesterBinding, "label_mode") {
		labelExpr = "COALESCE(label_mode, '')"
	}
	var b Binding
	var mode, label string
	err := q.QueryRowContext(ctx, fmt.Sprintf("SELECT degree_code, binding_mode, %s FROM %s WHERE %s",
		labelExpr, ident(TableSemesterBinding), codeEquals("degree_code", 1)), degreeCode).Scan(&b.DegreeCode, &mode, &label)
	if errors.Is(err, sql.ErrNoRows) {
		return Binding{}, false, nil
	}
	if err != nil {
		return Binding{}, false, fmt.Errorf("read binding of %s: %w", degreeCode, err)
	}
	if b.Mode, err = ParseBindingMode(mode); err != nil {
		return Binding{}, false, err
	}
	if b.Label, err = ParseLabelMode(label); err != nil {
		return Binding{}, false, err
	}
	return b, true, nil
}

// UpsertBinding writes the degree's binding and label mode.
func UpsertBinding(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, b Binding) error {
	if !caps.HasColumns(TableSemesterBinding, "degree_code", "binding_mode") {
		return schemaMismatch(TableSemesterBinding, "")
	}
	if caps.HasColumn(TableSemesterBinding, "label_mode") {
		_, err := q.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (degree_code, binding_mode, label_mode)
			VALUES ($1, $2, $3)
			ON CONFLICT (degree_code) DO UPDATE SET binding_mode = EXCLUDED.binding_mode, label_mode = EXCLUDED.label_mode`,
			ident(TableSemesterBinding)), b.DegreeCode, string(b.Mode), string(b.Label))
		if err != nil {
			return fmt.Errorf("upsert binding of %s: %w", b.DegreeCode, err)
		}
		return nil
	}
	_, err := q.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (degree_code, binding_mode)
		VALUES ($1, $2)
		ON CONFLICT (degree_code) DO UPDATE SET binding_mode = EXCLUDED.binding_mode`,
		ident(TableSemesterBinding)), b.DegreeCode, string(b.Mode))
	if err != nil {
		return fmt.Errorf("upsert binding of %s: %w", b.DegreeCode, err)
	}
	return nil
}

// Structure is the (years, terms_per_year) shape of one unit.
type Structure struct {
	Years        int
	TermsPerYear int
}

func (s Structure) Validate() error {
	if s.Years < 1 || s.TermsPerYear < 1 {
		return dErrors.New(dErrors.CodeValidation, "years and terms_per_year must be at least 1")
	}
	return nil
}

// UpsertStructure writes the structure row for key in its kind-specific table.
func UpsertStructure(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, key models.StructureKey, s Structure) error {
	if err := s.Validate(); err != nil {
		return err
	}
	var (
		table, keyCol string
		keyVal        any
	)
	switch key.Kind {
	case models.StructureDegree:
		table, keyCol, keyVal = TableDegreeStructure, "degree_code", key.Key
	case models.StructureProgram:
		table, keyCol, keyVal = TableProgramStructure, "program_id", key.ID()
	case models.StructureBranch:
		table, keyCol, keyVal = TableBranchStructure, "branch_id", key.ID()
	default:
		return dErrors.New(dErrors.CodeValidation, "unknown structure kind "+string(key.Kind))
	}
	if !caps.HasColumns(table, keyCol, "years", "terms_per_year") {
		return schemaMismatch(table, "")
	}
	_, err := q.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %[1]s (%[2]s, years, terms_per_year)
		VALUES ($1, $2, $3)
		ON CONFLICT (%[2]s) DO UPDATE SET years = EXCLUDED.years, terms_per_year = EXCLUDED.terms_per_year`,
		ident(table), ident(keyCol)), keyVal, s.Years, s.TermsPerYear)
	if err != nil {
		return fmt.Errorf("upsert structure %s: %w", key, err)
	}
	return nil
}

// OwningDegree resolves the degree code a structure key belongs to.
func OwningDegree(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, key models.StructureKey) (string, error) {
	var query string
	switch key.Kind {
	case models.StructureDegree:
		return key.Key, nil
	case models.StructureProgram:
		if err := requireColumn(caps, TablePrograms, "degree_code"); err != nil {
			return "", err
		}
		query = fmt.Sprintf("SELECT degree_code FROM %s WHERE id = $1", ident(TablePrograms))
	case models.StructureBranch:
		joinable := caps.HasColumn(TableBranches, "program_id") && caps.HasColumn(TablePrograms, "degree_code")
		switch {
		case caps.HasColumn(TableBranches, "degree_code") && joinable:
			query = fmt.Sprintf(`SELECT COALESCE(b.degree_code, p.degree_code)
				FROM %s b LEFT JOIN %s p ON p.id = b.program_id WHERE b.id = $1`,
				ident(TableBranches), ident(TablePrograms))
		case caps.HasColumn(TableBranches, "degree_code"):
			query = fmt.Sprintf("SELECT degree_code FROM %s WHERE id = $1", ident(TableBranches))
		case joinable:
			query = fmt.Sprintf("SELECT p.degree_code FROM %s b JOIN %s p ON p.id = b.program_id WHERE b.id = $1",
				ident(TableBranches), ident(TablePrograms))
		default:
			return "", schemaMismatch(TableBranches, "degree_code")
		}
	default:
		return "", dErrors.New(dErrors.CodeValidation, "unknown structure kind "+string(key.Kind))
	}

	var code sql.NullString
	err := q.QueryRowContext(ctx, query, key.ID()).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !code.Valid) {
		return "", notFound(string(key.Kind), key.Key)
	}
	if err != nil {
		return "", fmt.Errorf("resolve degree of %s: %w", key, err)
	}
	return code.String, nil
}
