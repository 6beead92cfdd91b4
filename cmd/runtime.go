package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/KaramelBytes/edaloom-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/edaloom-cli/internal/config"
	"github.com/KaramelBytes/edaloom-cli/internal/insight"
	"github.com/KaramelBytes/edaloom-cli/internal/pipeline"
	"github.com/KaramelBytes/edaloom-cli/internal/table"
	"github.com/KaramelBytes/edaloom-cli/internal/viz"
)

// runOptions are the per-command overrides applied on top of the config.
type runOptions struct {
	Provider       string
	Model          string
	ArtifactsDir   string
	Bins           int
	Load           table.Options
	RequireInsight bool
	TimeoutSec     int
}

// normalizeProvider maps user spellings onto registered provider names.
func normalizeProvider(name string) string {
	switch p := strings.ToLower(strings.TrimSpace(name)); p {
	case "", "local", "ollama":
		return ai.ProviderOllama
	case "openrouter", "or":
		return ai.ProviderOpenRouter
	case "openai", "openai-compatible", "vllm", "lmstudio":
		return ai.ProviderOpenAI
	default:
		return p
	}
}

// buildRuntime resolves the provider, model and credentials for one command.
func buildRuntime(c *cfgpkg.Global, opts runOptions) (ai.Runtime, string, string, error) {
	provider := c.Provider
	if opts.Provider != "" {
		provider = opts.Provider
	}
	provider = normalizeProvider(provider)

	rc := c.Runtime()
	rc.BaseURL = ""
	if provider == ai.ProviderOpenAI {
		rc.BaseURL = c.OpenAIBaseURL
	}
	if rc.APIKey == "" {
		switch provider {
		case ai.ProviderOpenRouter:
			rc.APIKey = os.Getenv("OPENROUTER_API_KEY")
		case ai.ProviderOpenAI:
			rc.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	rt, err := ai.NewRuntime(provider, rc)
	if err != nil {
		return nil, "", "", err
	}

	model := opts.Model
	if model == "" && opts.Provider == "" {
		model = c.Model
	}
	if model == "" {
		model = ai.DefaultModel(provider)
	}
	if model == "" {
		return nil, "", "", fmt.Errorf("no model configured for provider %s (use --model)", provider)
	}
	return rt, provider, model, nil
}

// newPipeline wires the analysis stages from config plus command overrides.
func newPipeline(c *cfgpkg.Global, opts runOptions) (*pipeline.Pipeline, error) {
	rt, provider, model, err := buildRuntime(c, opts)
	if err != nil {
		return nil, err
	}
	policy := c.Policy()
	if opts.RequireInsight {
		policy.Required = true
	}
	if opts.TimeoutSec > 0 {
		policy.Timeout = secs(opts.TimeoutSec)
	}

	bins := c.HistogramBins
	if opts.Bins > 0 {
		bins = opts.Bins
	}
	dir := c.ArtifactsDir
	if opts.ArtifactsDir != "" {
		dir = opts.ArtifactsDir
	}
	load := opts.Load
	if load.MaxRows == 0 {
		load.MaxRows = c.MaxRows
	}
	return pipeline.New(pipeline.Options{
		Load:         load,
		ArtifactsDir: dir,
		Planner:      viz.NewPlanner(viz.PlanOptions{Bins: bins}),
		Requester:    &insight.Requester{Runtime: rt, Provider: provider, Model: model, Policy: policy},
	}), nil
}

// parseLoadOptions turns the separator flags into loader options.
func parseLoadOptions(delimiter, decimal, thousands string, maxRows int) (table.Options, error) {
	opt := table.DefaultOptions()
	if maxRows > 0 {
		opt.MaxRows = maxRows
	}
	switch delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", delimiter)
	}
	switch strings.ToLower(strings.TrimSpace(decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", decimal)
	}
	switch strings.ToLower(strings.TrimSpace(thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", thousands)
	}
	return opt, nil
}

func secs(n int) time.Duration { return time.Duration(n) * time.Second }
