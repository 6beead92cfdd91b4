package viz

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
)

// Renderer turns a chart spec into a persisted image at spec.Path.
type Renderer interface {
	Render(ctx context.Context, s Spec) error
}

// PlotRenderer renders PNG charts with gonum/plot.
type PlotRenderer struct {
	// Image sizes; zero values fall back to 6x4 in for histograms and 8x5 in for heatmaps.
	HistWidth, HistHeight       vg.Length
	HeatmapWidth, HeatmapHeight vg.Length
}

var errEmptySeries = errors.New("series has no values")

// Render dispatches on the chart kind.
func (r PlotRenderer) Render(ctx context.Context, s Spec) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("create chart dir: %w", err)
	}
	switch s.Kind {
	case KindHistogram:
		return r.histogram(s)
	case KindCorrHeatmap:
		return r.heatmap(s)
	default:
		return fmt.Errorf("unknown chart kind %q", s.Kind)
	}
}

func (r PlotRenderer) histogram(s Spec) error {
	if len(s.Values) == 0 {
		return errEmptySeries
	}
	for _, v := range s.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("series contains non-finite value %v", v)
		}
	}
	bins := s.Bins
	if bins <= 0 {
		bins = DefaultBins
	}
	p := plot.New()
	p.Title.Text = s.Title
	if len(s.Columns) > 0 {
		p.X.Label.Text = s.Columns[0]
	}
	p.Y.Label.Text = "Count"

	h, err := plotter.NewHist(plotter.Values(s.Values), bins)
	if err != nil {
		return fmt.Errorf("histogram: %w", err)
	}
	p.Add(h)

	if s.Density {
		// The bars are kept even when no density curve can be drawn.
		if f := densityCurve(s, h.Width); f != nil {
			p.Add(f)
		}
	}

	w, ht := r.HistWidth, r.HistHeight
	if w == 0 || ht == 0 {
		w, ht = 6*vg.Inch, 4*vg.Inch
	}
	return p.Save(w, ht, s.Path)
}

// densityCurve returns the KDE overlay scaled to the histogram's count axis,
// or nil when the series has no density estimate.
func densityCurve(s Spec, binWidth float64) *plotter.Function {
	kde, err := gaussianKDE(s.Values)
	if err != nil {
		slog.Debug("drawing histogram without density curve", "title", s.Title, "reason", err)
		return nil
	}
	scale := float64(len(s.Values)) * binWidth
	f := plotter.NewFunction(func(x float64) float64 { return kde(x) * scale })
	f.Samples = 200
	f.Width = vg.Points(1.5)
	f.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	return f
}

// gaussianKDE returns a Gaussian kernel density estimate using Scott's bandwidth.
func gaussianKDE(vals []float64) (func(float64) float64, error) {
	if len(vals) < 2 {
		return nil, errors.New("density estimate needs at least two values")
	}
	_, std := stat.MeanStdDev(vals, nil)
	if std == 0 || math.IsNaN(std) {
		return nil, errors.New("zero-variance series has no density estimate")
	}
	n := float64(len(vals))
	bw := std * math.Pow(n, -1.0/5)
	norm := 1 / (n * bw * math.Sqrt(2*math.Pi))
	return func(x float64) float64 {
		var sum float64
		for _, v := range vals {
			u := (x - v) / bw
			sum += math.Exp(-0.5 * u * u)
		}
		return sum * norm
	}, nil
}

// corrGrid adapts a correlation matrix to plotter.GridXYZ. Row 0 is drawn at the top.
type corrGrid struct {
	vals [][]float64
}

func (g corrGrid) Dims() (c, r int)   { return len(g.vals), len(g.vals) }
func (g corrGrid) Z(c, r int) float64 { return g.vals[len(g.vals)-1-r][c] }
func (g corrGrid) X(c int) float64    { return float64(c) }
func (g corrGrid) Y(r int) float64    { return float64(r) }

func (r PlotRenderer) heatmap(s Spec) error {
	if s.Corr == nil || len(s.Corr.Columns) == 0 {
		return errEmptySeries
	}
	n := len(s.Corr.Columns)

	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)
	hm := plotter.NewHeatMap(corrGrid{vals: s.Corr.Values}, cmap.Palette(255))
	hm.Min, hm.Max = -1, 1

	p := plot.New()
	p.Title.Text = s.Title
	p.Add(hm)

	xys := make(plotter.XYs, 0, n*n)
	labels := make([]string, 0, n*n)
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			xys = append(xys, plotter.XY{X: float64(col), Y: float64(n - 1 - row)})
			labels = append(labels, fmt.Sprintf("%.2f", s.Corr.Values[row][col]))
		}
	}
	lbl, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return fmt.Errorf("heatmap labels: %w", err)
	}
	for i := range lbl.TextStyle {
		lbl.TextStyle[i].XAlign = text.XCenter
		lbl.TextStyle[i].YAlign = text.YCenter
	}
	p.Add(lbl)

	xt := make([]plot.Tick, n)
	yt := make([]plot.Tick, n)
	for i, name := range s.Corr.Columns {
		xt[i] = plot.Tick{Value: float64(i), Label: name}
		yt[i] = plot.Tick{Value: float64(n - 1 - i), Label: name}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xt)
	p.Y.Tick.Marker = plot.ConstantTicks(yt)
	p.X.Min, p.X.Max = -0.5, float64(n)-0.5
	p.Y.Min, p.Y.Max = -0.5, float64(n)-0.5

	w, ht := r.HeatmapWidth, r.HeatmapHeight
	if w == 0 || ht == 0 {
		w, ht = 8*vg.Inch, 5*vg.Inch
	}
	return p.Save(w, ht, s.Path)
}
