package viz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/KaramelBytes/edaloom-cli/internal/table"
)

// Planner plans and renders the charts of one run.
type Planner struct {
	Renderer Renderer
	Options  PlanOptions
}

// NewPlanner returns a Planner backed by the gonum/plot renderer.
func NewPlanner(opt PlanOptions) *Planner {
	return &Planner{Renderer: PlotRenderer{}, Options: opt}
}

// Render plans the charts for t, writes them under dir and returns the specs
// that were rendered, in plan order. A chart that fails is skipped and its
// *VisualizationError is returned alongside; only a context cancellation or
// an unusable dir stops the loop early.
func (p *Planner) Render(ctx context.Context, t *table.Table, dir string) ([]Spec, []error) {
	specs := Plan(t, dir, p.Options)
	if len(specs) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, []error{fmt.Errorf("create artifacts dir: %w", err)}
	}
	renderer := p.Renderer
	if renderer == nil {
		renderer = PlotRenderer{}
	}
	var (
		done []Spec
		errs []error
	)
	for _, s := range specs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := renderOne(ctx, renderer, s); err != nil {
			verr := &VisualizationError{Kind: s.Kind, Title: s.Title, Err: err}
			slog.Warn("skipping chart", "kind", s.Kind, "title", s.Title, "error", err)
			errs = append(errs, verr)
			continue
		}
		slog.Debug("chart rendered", "kind", s.Kind, "path", s.Path)
		done = append(done, s)
	}
	return done, errs
}

// renderOne isolates a renderer panic to the chart that caused it.
func renderOne(ctx context.Context, r Renderer, s Spec) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("renderer panic: %v", rec)
		}
	}()
	return r.Render(ctx, s)
}

// Paths lists the artifact paths of specs.
func Paths(specs []Spec) []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.Path
	}
	return out
}

// IsVisualizationError reports whether err carries a *VisualizationError.
func IsVisualizationError(err error) bool {
	var verr *VisualizationError
	return errors.As(err, &verr)
}
