package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/KaramelBytes/edaloom-cli/internal/report"
	"github.com/KaramelBytes/edaloom-cli/internal/utils"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	anaOutputPath     string
	anaFormat         string
	anaProvider       string
	anaModel          string
	anaBins           int
	anaArtifactsDir   string
	anaDelimiter      string
	anaDecimal        string
	anaThousands      string
	anaMaxRows        int
	anaRequireInsight bool
	anaTimeoutSec     int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.csv>",
	Short: "Analyze a CSV: impute, summarize, chart and ask for insights",
	Example: `  edaloom analyze sales.csv
  edaloom analyze sales.csv --provider openrouter --model openai/gpt-4o-mini
  edaloom analyze sales.csv --format json -o report.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := checkFormat(anaFormat)
		if err != nil {
			return err
		}
		loadOpt, err := parseLoadOptions(anaDelimiter, anaDecimal, anaThousands, anaMaxRows)
		if err != nil {
			return err
		}
		p, err := newPipeline(currentConfig(), runOptions{
			Provider:       anaProvider,
			Model:          anaModel,
			ArtifactsDir:   anaArtifactsDir,
			Bins:           anaBins,
			Load:           loadOpt,
			RequireInsight: anaRequireInsight,
			TimeoutSec:     anaTimeoutSec,
		})
		if err != nil {
			return err
		}

		rep := p.Run(cmd.Context(), args[0])
		b, err := renderReport(rep, format)
		if err != nil {
			return err
		}
		if anaOutputPath != "" {
			if err := utils.WriteReportFile(anaOutputPath, b); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote report to %s\n", anaOutputPath)
		} else if err := writeAll(cmd.OutOrStdout(), b); err != nil {
			return err
		}
		if !rep.OK {
			return fmt.Errorf("analysis of %s failed", args[0])
		}
		return nil
	},
}

func checkFormat(f string) (string, error) {
	switch f = strings.ToLower(strings.TrimSpace(f)); f {
	case "", "text", "txt":
		return "text", nil
	case "json", "yaml":
		return f, nil
	}
	return "", fmt.Errorf("unsupported --format: %s (use text|json|yaml)", f)
}

// renderReport serializes rep in the requested output format.
func renderReport(rep report.Report, format string) ([]byte, error) {
	switch format {
	case "json":
		return utils.ReportJSON(rep)
	case "yaml":
		b, err := yaml.Marshal(rep)
		if err != nil {
			return nil, fmt.Errorf("marshal yaml: %w", err)
		}
		return b, nil
	default:
		text := rep.Text()
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		return []byte(text), nil
	}
}

func writeAll(w io.Writer, b []byte) error {
	if w == nil {
		w = os.Stdout
	}
	_, err := w.Write(b)
	return err
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	addLoadFlags(analyzeCmd, &anaDelimiter, &anaDecimal, &anaThousands, &anaMaxRows)
	addRunFlags(analyzeCmd, &anaProvider, &anaModel, &anaBins, &anaArtifactsDir, &anaRequireInsight, &anaTimeoutSec)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the report")
	analyzeCmd.Flags().StringVar(&anaFormat, "format", "text", "report format: text|json|yaml")
}

func addLoadFlags(c *cobra.Command, delimiter, decimal, thousands *string, maxRows *int) {
	c.Flags().StringVar(delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	c.Flags().StringVar(decimal, "decimal", "", "decimal separator for numbers: '.'|'comma'")
	c.Flags().StringVar(thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space'")
	c.Flags().IntVar(maxRows, "max-rows", 0, "maximum rows to process (0 = config value, unlimited by default)")
}

func addRunFlags(c *cobra.Command, provider, model *string, bins *int, artifactsDir *string, requireInsight *bool, timeoutSec *int) {
	c.Flags().StringVar(provider, "provider", "", "text-generation provider: ollama|openrouter|openai (default from config)")
	c.Flags().StringVar(model, "model", "", "model name (default from config or provider)")
	c.Flags().IntVar(bins, "bins", 0, "histogram bin count (default from config, 30)")
	c.Flags().StringVar(artifactsDir, "artifacts-dir", "", "directory for per-run chart folders (default ~/.edaloom/runs)")
	c.Flags().BoolVar(requireInsight, "require-insight", false, "fail the run when AI insights cannot be obtained")
	c.Flags().IntVar(timeoutSec, "timeout-sec", 0, "timeout in seconds for the insight request (default from config, 180)")
}
