package catalog

import (
	"strconv"
	"strings"
)

// filter accumulates OR-ed predicates and their positional arguments.
type filter struct {
	clauses []string
	args    []any
}

// bind appends arg and returns its placeholder.
func (f *filter) bind(arg any) string {
	f.args = append(f.args, arg)
	return "$" + strconv.Itoa(len(f.args))
}

func (f *filter) or(clause string) {
	f.clauses = append(f.clauses, clause)
}

func (f *filter) empty() bool {
	return len(f.clauses) == 0
}

func (f *filter) where() string {
	return "(" + strings.Join(f.clauses, " OR ") + ")"
}
