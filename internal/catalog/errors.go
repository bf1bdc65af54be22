package catalog

import (
	"fmt"
	"strings"

	dErrors "acadmin/pkg/domain-errors"
)

// DependentCount is the number of rows in Table that depend on an object.
type DependentCount struct {
	Table string `json:"table"`
	Count int64  `json:"count"`
}

// DependentRecordsError blocks a non-cascading delete. Counts holds only
// tables with at least one dependent row, in probe order.
type DependentRecordsError struct {
	Object string
	Counts []DependentCount
}

func (e *DependentRecordsError) Error() string {
	parts := make([]string, 0, len(e.Counts))
	for _, c := range e.Counts {
		parts = append(parts, fmt.Sprintf("%s: %d", c.Table, c.Count))
	}
	return fmt.Sprintf("%s has dependent records (%s); enable allow_delete_if_children to delete anyway",
		e.Object, strings.Join(parts, ", "))
}

func (e *DependentRecordsError) ErrorCode() dErrors.Code {
	return dErrors.CodeDependentRecords
}

// CountMap returns the counts keyed by table.
func (e *DependentRecordsError) CountMap() map[string]int64 {
	out := make(map[string]int64, len(e.Counts))
	for _, c := range e.Counts {
		out[c.Table] = c.Count
	}
	return out
}

// Total is the sum of all dependent rows.
func (e *DependentRecordsError) Total() int64 {
	var n int64
	for _, c := range e.Counts {
		n += c.Count
	}
	return n
}
