package analysis

import (
	"math"
	"sort"

	"github.com/KaramelBytes/edaloom-cli/internal/table"
)

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

// Correlations builds the matrix over every numeric column of a null-free
// table. The diagonal is 1; pairs involving a constant column are 0. It
// returns nil when t has no numeric column.
func Correlations(t *table.Table) *CorrMatrix {
	cols := t.NumericColumns()
	if len(cols) == 0 {
		return nil
	}
	n := len(cols)
	names := make([]string, n)
	series := make([][]float64, n)
	for i, c := range cols {
		names[i] = c.Name
		series[i] = c.Numbers()
	}
	mat := make([][]float64, n)
	for i := range mat {
		mat[i] = make([]float64, n)
		mat[i][i] = 1
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			r := pearson(series[a], series[b])
			mat[a][b] = r
			mat[b][a] = r
		}
	}
	return &CorrMatrix{Columns: names, Values: mat}
}

// TopPairs lists off-diagonal pairs ordered by |r|, at most limit of them.
func (m *CorrMatrix) TopPairs(limit int) []PairCorr {
	if m == nil {
		return nil
	}
	var pairs []PairCorr
	n := len(m.Columns)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j]})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}
