// Package pipeline runs one exploratory analysis from an uploaded table to a
// report: load, impute, summarize and chart, ask for insights, assemble.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/edaloom-cli/internal/analysis"
	"github.com/KaramelBytes/edaloom-cli/internal/insight"
	"github.com/KaramelBytes/edaloom-cli/internal/report"
	"github.com/KaramelBytes/edaloom-cli/internal/table"
	"github.com/KaramelBytes/edaloom-cli/internal/viz"
)

// Options wires the stages of a Pipeline.
type Options struct {
	Load table.Options
	// ArtifactsDir holds one sub-directory per run.
	ArtifactsDir string
	Planner      *viz.Planner
	// Requester may be nil, in which case the insight section records that
	// no runtime is configured and the policy decides the outcome.
	Requester *insight.Requester
	// NewRunID defaults to a random UUID.
	NewRunID func() string
}

// Pipeline is safe for concurrent use; every run writes to its own directory.
type Pipeline struct {
	opt Options
}

// New fills in defaults for unset options.
func New(opt Options) *Pipeline {
	if opt.Planner == nil {
		opt.Planner = viz.NewPlanner(viz.PlanOptions{})
	}
	if opt.NewRunID == nil {
		opt.NewRunID = func() string { return uuid.NewString() }
	}
	if opt.ArtifactsDir == "" {
		opt.ArtifactsDir = "runs"
	}
	return &Pipeline{opt: opt}
}

// RunDir is where the artifacts of runID are written.
func (p *Pipeline) RunDir(runID string) string {
	return filepath.Join(p.opt.ArtifactsDir, runID)
}

// Run analyzes the file at path. It never returns an error: failures are
// reported through the returned Report.
func (p *Pipeline) Run(ctx context.Context, path string) report.Report {
	return p.run(ctx, filepath.Base(path), func() (*table.Table, error) {
		return table.LoadFile(path, p.opt.Load)
	})
}

// RunReader analyzes an upload read from r. name is the client-supplied file
// name and decides whether the upload is accepted.
func (p *Pipeline) RunReader(ctx context.Context, r io.Reader, name string) report.Report {
	return p.run(ctx, name, func() (*table.Table, error) {
		if err := table.CheckFormat(name); err != nil {
			return nil, err
		}
		return table.Load(r, name, p.opt.Load)
	})
}

func (p *Pipeline) run(ctx context.Context, name string, load func() (*table.Table, error)) (rep report.Report) {
	runID := p.opt.NewRunID()
	log := slog.With("run_id", runID, "dataset", name)
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("analysis panicked", "panic", rec, "stack", string(debug.Stack()))
			rep = report.Failure(runID, fmt.Errorf("internal error: %v", rec))
		}
		log.Info("analysis finished", "ok", rep.OK, "elapsed", time.Since(start))
	}()

	stage := time.Now()
	raw, err := load()
	if err != nil {
		log.Warn("load failed", "error", err)
		return report.Failure(runID, err)
	}
	log.Debug("table loaded", "rows", raw.Rows(), "columns", len(raw.Columns), "elapsed", time.Since(stage))

	missing := analysis.CaptureMissing(raw)
	stage = time.Now()
	imputed, err := analysis.Impute(raw)
	if err != nil {
		log.Warn("imputation failed", "error", err)
		return report.Failure(runID, err)
	}
	log.Debug("table imputed", "filled", missing.Total(), "elapsed", time.Since(stage))

	var (
		summary *analysis.Summary
		charts  []viz.Spec
		vizErrs []error
	)
	runDir := p.RunDir(runID)
	// Loader notes already travel in the summary's [NOTES] block.
	var warnings []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(guard("summarize", func() error {
		t := time.Now()
		summary = analysis.Summarize(imputed, missing)
		log.Debug("summary computed", "elapsed", time.Since(t))
		return nil
	}))
	g.Go(guard("visualize", func() error {
		t := time.Now()
		charts, vizErrs = p.opt.Planner.Render(gctx, imputed, runDir)
		log.Debug("charts rendered", "count", len(charts), "skipped", len(vizErrs), "elapsed", time.Since(t))
		return nil
	}))
	if err := g.Wait(); err != nil {
		log.Error("analysis stage failed", "error", err)
		return report.Failure(runID, err)
	}
	if err := ctx.Err(); err != nil {
		return report.Failure(runID, fmt.Errorf("analysis cancelled: %w", err))
	}
	for _, e := range vizErrs {
		warnings = append(warnings, e.Error())
	}

	summaryText := summary.Text()
	insightText, err := p.requestInsight(ctx, summaryText)
	if err != nil {
		if p.policy().Required {
			log.Warn("insight required but failed", "error", err)
			return report.Failure(runID, err)
		}
		log.Warn("insight unavailable, using fallback", "error", err)
		insightText = p.policy().Degrade(err)
	}

	return report.Assemble(report.Parts{
		RunID:    runID,
		Dataset:  name,
		Summary:  summaryText,
		Missing:  missing.Text(),
		Insight:  insightText,
		Images:   viz.Paths(charts),
		Warnings: warnings,
	})
}

func (p *Pipeline) requestInsight(ctx context.Context, summary string) (string, error) {
	if p.opt.Requester == nil {
		r := insight.Requester{Policy: p.policy()}
		return r.Request(ctx, summary)
	}
	return p.opt.Requester.Request(ctx, summary)
}

func (p *Pipeline) policy() insight.Policy {
	if p.opt.Requester == nil {
		return insight.DefaultPolicy()
	}
	return p.opt.Requester.Policy
}

// guard keeps a panic in a stage goroutine from taking down the process.
func guard(stage string, f func() error) func() error {
	return func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("internal error in %s: %v", stage, rec)
			}
		}()
		return f()
	}
}
