// Package analysis implements the statistical core of a run: missing-value
// capture, imputation and descriptive summaries.
package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/edaloom-cli/internal/table"
	"gonum.org/v1/gonum/stat"
)

// OutlierThreshold is the robust |z| above which a numeric value counts as an outlier.
const OutlierThreshold = 3.5

// ColumnSummary captures descriptive statistics of one imputed column.
type ColumnSummary struct {
	Name  string
	Kind  table.Kind
	Count int
	// Numeric stats; Std is the sample standard deviation (n-1).
	Mean, Std          float64
	Min, P25, P50, P75 float64
	Max                float64
	OutliersCount      int
	OutliersMaxAbsZ    float64
	// Categorical stats
	Unique int
	Top    string
	Freq   int
}

// Summary is the descriptive view of a dataset after imputation.
type Summary struct {
	Name     string
	Rows     int
	Columns  []ColumnSummary
	Missing  MissingReport
	Corr     *CorrMatrix
	Warnings []string
}

// Summarize describes every column of an imputed table. missing must come
// from CaptureMissing on the table before imputation.
func Summarize(t *table.Table, missing MissingReport) *Summary {
	s := &Summary{
		Name:    t.Name,
		Rows:    t.Rows(),
		Columns: make([]ColumnSummary, 0, len(t.Columns)),
		Missing: missing,
	}
	if len(t.Warnings) > 0 {
		s.Warnings = append([]string(nil), t.Warnings...)
	}
	for _, c := range t.Columns {
		s.Columns = append(s.Columns, summarizeColumn(c))
	}
	if len(t.NumericColumns()) >= 2 {
		s.Corr = Correlations(t)
	}
	return s
}

func summarizeColumn(c *table.Column) ColumnSummary {
	cs := ColumnSummary{Name: c.Name, Kind: c.Kind}
	if c.Kind != table.KindNumeric {
		vals := c.Strings()
		cs.Count = len(vals)
		seen := make(map[string]struct{}, len(vals))
		for _, v := range vals {
			seen[v] = struct{}{}
		}
		cs.Unique = len(seen)
		cs.Top, cs.Freq = Mode(vals)
		return cs
	}
	vals := c.Numbers()
	cs.Count = len(vals)
	if cs.Count == 0 {
		nan := math.NaN()
		cs.Mean, cs.Std, cs.Min, cs.P25, cs.P50, cs.P75, cs.Max = nan, nan, nan, nan, nan, nan, nan
		return cs
	}
	cs.Mean, cs.Std = stat.MeanStdDev(vals, nil)
	if cs.Count < 2 {
		cs.Std = math.NaN()
	}
	sorted := sortedCopy(vals)
	cs.Min = sorted[0]
	cs.Max = sorted[len(sorted)-1]
	cs.P25 = quantile(sorted, 0.25)
	cs.P50 = quantile(sorted, 0.5)
	cs.P75 = quantile(sorted, 0.75)
	cs.OutliersCount, cs.OutliersMaxAbsZ = robustOutliers(vals, OutlierThreshold)
	return cs
}

// Text renders a stable block per column, prefixed by the dataset shape and
// followed by the strongest correlations and any loader notes.
func (s *Summary) Text() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if s.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", s.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", s.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n", len(s.Columns)))

	b.WriteString("\n[COLUMNS]\n")
	for _, c := range s.Columns {
		b.WriteString(fmt.Sprintf("- %s (%s)\n", safeName(c.Name), c.Kind))
		b.WriteString(fmt.Sprintf("  count: %d\n", c.Count))
		if c.Kind == table.KindNumeric {
			for _, kv := range []struct {
				k string
				v float64
			}{
				{"mean", c.Mean}, {"std", c.Std}, {"min", c.Min},
				{"25%", c.P25}, {"50%", c.P50}, {"75%", c.P75}, {"max", c.Max},
			} {
				b.WriteString(fmt.Sprintf("  %s: %s\n", kv.k, formatNum(kv.v)))
			}
			if c.OutliersCount > 0 {
				b.WriteString(fmt.Sprintf("  outliers: %d above |z|>%.1f (max |z|≈%.2f)\n", c.OutliersCount, OutlierThreshold, c.OutliersMaxAbsZ))
			}
			continue
		}
		b.WriteString(fmt.Sprintf("  unique: %d\n", c.Unique))
		b.WriteString(fmt.Sprintf("  top: %s\n", safeVal(c.Top)))
		b.WriteString(fmt.Sprintf("  freq: %d\n", c.Freq))
	}

	if pairs := s.Corr.TopPairs(10); len(pairs) > 0 {
		b.WriteString("\n[CORRELATIONS]\n")
		for _, p := range pairs {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}
	if len(s.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range s.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func formatNum(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(s, "\n", " ") }
