// Package table holds the in-memory tabular model used by an analysis run
// and the CSV loader that produces it.
package table

// Kind is the declared type of a column.
type Kind int

const (
	KindNumeric Kind = iota
	KindCategorical
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// Cell is one nullable value. Str keeps the raw text for every non-null cell;
// Num is only meaningful in numeric columns.
type Cell struct {
	Num  float64
	Str  string
	Null bool
}

// Column is a named, typed sequence of cells.
type Column struct {
	Name  string
	Kind  Kind
	Cells []Cell
}

// NullCount returns the number of null cells.
func (c *Column) NullCount() int {
	n := 0
	for _, cell := range c.Cells {
		if cell.Null {
			n++
		}
	}
	return n
}

// Numbers returns the non-null numeric values in row order.
func (c *Column) Numbers() []float64 {
	out := make([]float64, 0, len(c.Cells))
	for _, cell := range c.Cells {
		if !cell.Null {
			out = append(out, cell.Num)
		}
	}
	return out
}

// Strings returns the non-null raw values in row order.
func (c *Column) Strings() []string {
	out := make([]string, 0, len(c.Cells))
	for _, cell := range c.Cells {
		if !cell.Null {
			out = append(out, cell.Str)
		}
	}
	return out
}

func (c *Column) clone() *Column {
	cells := make([]Cell, len(c.Cells))
	copy(cells, c.Cells)
	return &Column{Name: c.Name, Kind: c.Kind, Cells: cells}
}

// Table is an ordered set of columns sharing one row count.
type Table struct {
	Name     string
	Columns  []*Column
	Warnings []string
}

// Rows returns the shared row count.
func (t *Table) Rows() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Cells)
}

// Column looks a column up by exact name.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// NullCounts returns the per-column null counts in table order.
func (t *Table) NullCounts() []int {
	out := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.NullCount()
	}
	return out
}

// NumericColumns returns the numeric columns in table order.
func (t *Table) NumericColumns() []*Column {
	var out []*Column
	for _, c := range t.Columns {
		if c.Kind == KindNumeric {
			out = append(out, c)
		}
	}
	return out
}

// Clone returns a deep copy; cells of the copy can be changed without
// affecting the receiver.
func (t *Table) Clone() *Table {
	out := &Table{Name: t.Name, Columns: make([]*Column, len(t.Columns))}
	for i, c := range t.Columns {
		out.Columns[i] = c.clone()
	}
	if len(t.Warnings) > 0 {
		out.Warnings = append([]string(nil), t.Warnings...)
	}
	return out
}
