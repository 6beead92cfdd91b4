package analysis

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/edaloom-cli/internal/table"
)

// MissingCount is the null count of one column.
type MissingCount struct {
	Column string `json:"column" yaml:"column"`
	Count  int    `json:"count" yaml:"count"`
}

// MissingReport lists per-column null counts observed before imputation, in table order.
type MissingReport []MissingCount

// CaptureMissing counts the nulls of every column of t. It must run before Impute.
func CaptureMissing(t *table.Table) MissingReport {
	out := make(MissingReport, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = MissingCount{Column: c.Name, Count: c.NullCount()}
	}
	return out
}

// Count returns the recorded count for column, or -1 when it is unknown.
func (m MissingReport) Count(column string) int {
	for _, mc := range m {
		if mc.Column == column {
			return mc.Count
		}
	}
	return -1
}

// Total sums the counts.
func (m MissingReport) Total() int {
	n := 0
	for _, mc := range m {
		n += mc.Count
	}
	return n
}

// Text renders one "name: count" line per column.
func (m MissingReport) Text() string {
	var b strings.Builder
	for _, mc := range m {
		b.WriteString(fmt.Sprintf("%s: %d\n", safeName(mc.Column), mc.Count))
	}
	return b.String()
}
