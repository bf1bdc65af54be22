package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"acadmin/internal/approval/models"
	"acadmin/internal/schema"
	txcontext "acadmin/pkg/platform/tx"
)

// Program is a resolved programs row. HasID is false when the deployment's
// programs table has no numeric id.
type Program struct {
	ID         int64
	HasID      bool
	Code       string
	DegreeCode string
}

func (p Program) String() string {
	if p.Code != "" {
		return "program " + p.Code
	}
	return fmt.Sprintf("program %d", p.ID)
}

// ResolveProgram finds a program by numeric id when ref is numeric and the
// table has a numeric id, otherwise by program_code.
func ResolveProgram(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, ref models.ObjectRef) (Program, error) {
	if err := requireTable(caps, TablePrograms); err != nil {
		return Program{}, err
	}
	hasID := caps.HasNumericID(TablePrograms)
	hasCode := caps.HasColumn(TablePrograms, "program_code")
	hasDegree := caps.HasColumn(TablePrograms, "degree_code")

	idExpr, codeExpr, degreeExpr := "0", "''", "''"
	if hasID {
		idExpr = "id"
	}
	if hasCode {
		codeExpr = "COALESCE(program_code, '')"
	}
	if hasDegree {
		degreeExpr = "COALESCE(degree_code, '')"
	}

	var where string
	var arg any
	if id, ok := ref.ByID(); ok && hasID {
		where, arg = "id = $1", id
	} else {
		if !hasCode {
			return Program{}, schemaMismatch(TablePrograms, "program_code")
		}
		where, arg = codeEquals("program_code", 1), ref.Code()
	}

	p := Program{HasID: hasID}
	err := q.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s, %s, %s FROM %s WHERE %s LIMIT 1", idExpr, codeExpr, degreeExpr, ident(TablePrograms), where),
		arg,
	).Scan(&p.ID, &p.Code, &p.DegreeCode)
	if errors.Is(err, sql.ErrNoRows) {
		return Program{}, notFound("program", ref.Code())
	}
	if err != nil {
		return Program{}, fmt.Errorf("resolve program %s: %w", ref, err)
	}
	return p, nil
}

// resolveID maps ref to the numeric id of a row in table, by id when ref is
// numeric, otherwise by a case-insensitive match on codeColumn.
func resolveID(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, table, codeColumn string, ref models.ObjectRef) (int64, error) {
	if !caps.HasNumericID(table) {
		return 0, schemaMismatch(table, "id")
	}
	var (
		query string
		arg   any
	)
	if id, ok := ref.ByID(); ok {
		query, arg = fmt.Sprintf("SELECT id FROM %s WHERE id = $1", ident(table)), id
	} else {
		if !caps.HasColumn(table, codeColumn) {
			return 0, schemaMismatch(table, codeColumn)
		}
		query, arg = fmt.Sprintf("SELECT id FROM %s WHERE %s LIMIT 1", ident(table), codeEquals(codeColumn, 1)), ref.Code()
	}
	var id int64
	err := q.QueryRowContext(ctx, query, arg).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, notFound(table, ref.Code())
	}
	if err != nil {
		return 0, fmt.Errorf("resolve %s %s: %w", table, ref, err)
	}
	return id, nil
}

// deleteByRef deletes one row of table by id when possible, otherwise by
// codeColumn. A miss is reported as not found.
func deleteByRef(ctx context.Context, q txcontext.Querier, caps *schema.Capabilities, table, codeColumn string, ref models.ObjectRef) error {
	if err := requireTable(caps, table); err != nil {
		return err
	}
	var (
		query string
		arg   any
	)
	if id, ok := ref.ByID(); ok && caps.HasNumericID(table) {
		query, arg = fmt.Sprintf("DELETE FROM %s WHERE id = $1", ident(table)), id
	} else {
		if !caps.HasColumn(table, codeColumn) {
			return schemaMismatch(table, codeColumn)
		}
		query, arg = fmt.Sprintf("DELETE FROM %s WHERE %s", ident(table), codeEquals(codeColumn, 1)), ref.Code()
	}
	n, err := exec(ctx, q, query, arg)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", table, ref, err)
	}
	if n == 0 {
		return notFound(table, ref.Code())
	}
	return nil
}
