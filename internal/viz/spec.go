// Package viz selects the charts of a run and renders them to PNG files.
package viz

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/KaramelBytes/edaloom-cli/internal/analysis"
	"github.com/KaramelBytes/edaloom-cli/internal/table"
)

// ChartKind names a chart type.
type ChartKind string

const (
	KindHistogram   ChartKind = "histogram"
	KindCorrHeatmap ChartKind = "correlation-heatmap"
)

// DefaultBins is the histogram bin count used when none is configured.
const DefaultBins = 30

// HeatmapFile is the fixed artifact name of the correlation heatmap.
const HeatmapFile = "correlation_heatmap.png"

// Spec describes one chart and where it is written.
type Spec struct {
	Kind    ChartKind `json:"kind" yaml:"kind"`
	Title   string    `json:"title" yaml:"title"`
	Columns []string  `json:"columns" yaml:"columns"`
	Path    string    `json:"path" yaml:"path"`
	// Histogram settings
	Bins    int  `json:"bins,omitempty" yaml:"bins,omitempty"`
	Density bool `json:"density,omitempty" yaml:"density,omitempty"`

	// Data consumed by the renderer.
	Values []float64            `json:"-" yaml:"-"`
	Corr   *analysis.CorrMatrix `json:"-" yaml:"-"`
}

// PlanOptions tunes chart selection.
type PlanOptions struct {
	// Bins for histograms; 0 means DefaultBins.
	Bins int
}

// Plan returns one histogram per numeric column of the imputed table t and,
// when at least one numeric column exists, a single correlation heatmap
// covering all of them. Paths are placed under dir. A table without numeric
// columns yields no specs.
func Plan(t *table.Table, dir string, opt PlanOptions) []Spec {
	bins := opt.Bins
	if bins <= 0 {
		bins = DefaultBins
	}
	cols := t.NumericColumns()
	if len(cols) == 0 {
		return nil
	}
	used := map[string]int{HeatmapFile: 1}
	specs := make([]Spec, 0, len(cols)+1)
	for _, c := range cols {
		specs = append(specs, Spec{
			Kind:    KindHistogram,
			Title:   "Distribution of " + c.Name,
			Columns: []string{c.Name},
			Path:    filepath.Join(dir, uniqueFile(used, sanitize(c.Name)+"_distribution", ".png")),
			Bins:    bins,
			Density: true,
			Values:  c.Numbers(),
		})
	}
	corr := analysis.Correlations(t)
	specs = append(specs, Spec{
		Kind:    KindCorrHeatmap,
		Title:   "Correlation Heatmap",
		Columns: append([]string(nil), corr.Columns...),
		Path:    filepath.Join(dir, HeatmapFile),
		Corr:    corr,
	})
	return specs
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitize maps a column name to a file-safe stem.
func sanitize(name string) string {
	s := strings.Trim(unsafeChars.ReplaceAllString(strings.TrimSpace(name), "_"), "._")
	if s == "" {
		return "column"
	}
	return s
}

// uniqueFile appends a numeric suffix when stem+ext was already handed out.
func uniqueFile(used map[string]int, stem, ext string) string {
	name := stem + ext
	for i := 2; used[name] > 0; i++ {
		name = fmt.Sprintf("%s_%d%s", stem, i, ext)
	}
	used[name]++
	return name
}
