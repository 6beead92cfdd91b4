package analysis

import (
	"strconv"

	"github.com/KaramelBytes/edaloom-cli/internal/table"
)

// Impute returns a copy of t with every null replaced: numeric columns take
// the median of their non-null values, categorical columns their mode. The
// input table is left untouched. A column holding nulls but no value to
// derive a fill from yields an *ImputationError.
func Impute(t *table.Table) (*table.Table, error) {
	out := t.Clone()
	for _, c := range out.Columns {
		nulls := c.NullCount()
		if nulls == 0 {
			continue
		}
		if nulls == len(c.Cells) {
			return nil, &ImputationError{Column: c.Name, Kind: c.Kind.String()}
		}
		var fill table.Cell
		switch c.Kind {
		case table.KindNumeric:
			med := Median(c.Numbers())
			fill = table.Cell{Num: med, Str: strconv.FormatFloat(med, 'g', -1, 64)}
		default:
			mode, _ := Mode(c.Strings())
			fill = table.Cell{Str: mode}
		}
		for i := range c.Cells {
			if c.Cells[i].Null {
				c.Cells[i] = fill
			}
		}
	}
	return out, nil
}
