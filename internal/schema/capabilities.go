// Package schema describes which domain tables and columns exist in this
// deployment. Deployments evolve their schema independently of the approval
// handlers, so handlers branch on a Capabilities value computed once at
// startup instead of querying metadata on every call.
package schema

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	txcontext "acadmin/pkg/platform/tx"
)

// probeConcurrency bounds parallel information_schema lookups.
const probeConcurrency = 4

// Column is one column of a probed table.
type Column struct {
	Name     string
	DataType string
}

// Capabilities is an immutable snapshot of table -> column -> data type.
type Capabilities struct {
	tables map[string]map[string]string
}

// New builds a Capabilities value from an explicit table description.
// Table and column names are normalised to lower case.
func New(tables map[string][]Column) *Capabilities {
	c := &Capabilities{tables: make(map[string]map[string]string, len(tables))}
	for table, cols := range tables {
		set := make(map[string]string, len(cols))
		for _, col := range cols {
			set[strings.ToLower(col.Name)] = strings.ToLower(col.DataType)
		}
		c.tables[strings.ToLower(table)] = set
	}
	return c
}

// HasTable reports whether the table exists.
func (c *Capabilities) HasTable(table string) bool {
	if c == nil {
		return false
	}
	_, ok := c.tables[strings.ToLower(table)]
	return ok
}

// HasColumn reports whether table exists and has column.
func (c *Capabilities) HasColumn(table, column string) bool {
	if c == nil {
		return false
	}
	cols, ok := c.tables[strings.ToLower(table)]
	if !ok {
		return false
	}
	_, ok = cols[strings.ToLower(column)]
	return ok
}

// ColumnType returns the lower-cased information_schema data type of the
// column, or "" when the column is absent. Postgres arrays report "array".
func (c *Capabilities) ColumnType(table, column string) string {
	if c == nil {
		return ""
	}
	return c.tables[strings.ToLower(table)][strings.ToLower(column)]
}

// HasColumns reports whether table has every listed column.
func (c *Capabilities) HasColumns(table string, columns ...string) bool {
	for _, col := range columns {
		if !c.HasColumn(table, col) {
			return false
		}
	}
	return c.HasTable(table)
}

// HasNumericID reports whether table has an integer "id" column.
func (c *Capabilities) HasNumericID(table string) bool {
	if c == nil {
		return false
	}
	cols, ok := c.tables[strings.ToLower(table)]
	if !ok {
		return false
	}
	switch cols["id"] {
	case "integer", "bigint", "smallint", "int", "int4", "int8":
		return true
	}
	return false
}

// Columns returns the sorted column names of table.
func (c *Capabilities) Columns(table string) []string {
	if c == nil {
		return nil
	}
	cols := c.tables[strings.ToLower(table)]
	out := make([]string, 0, len(cols))
	for name := range cols {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Tables returns the sorted names of tables present.
func (c *Capabilities) Tables() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.tables))
	for name := range c.tables {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Probe inspects information_schema for each named table in the current
// schema. Tables that do not exist are simply absent from the result.
func Probe(ctx context.Context, q txcontext.Querier, tables []string) (*Capabilities, error) {
	var mu sync.Mutex
	found := make(map[string][]Column, len(tables))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(probeConcurrency)
	for _, table := range tables {
		g.Go(func() error {
			cols, err := probeTable(ctx, q, table)
			if err != nil {
				return err
			}
			if len(cols) == 0 {
				return nil
			}
			mu.Lock()
			found[table] = cols
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return New(found), nil
}

func probeTable(ctx context.Context, q txcontext.Querier, table string) ([]Column, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
	`, strings.ToLower(table))
	if err != nil {
		return nil, fmt.Errorf("probe table %s: %w", table, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.DataType); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns of %s: %w", table, err)
	}
	return cols, nil
}
