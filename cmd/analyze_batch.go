package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/KaramelBytes/edaloom-cli/internal/report"
	"github.com/KaramelBytes/edaloom-cli/internal/utils"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	abOutputDir      string
	abFormat         string
	abJobs           int
	abQuiet          bool
	abProvider       string
	abModel          string
	abBins           int
	abArtifactsDir   string
	abRequireInsight bool
	abTimeoutSec     int
	abDelimiter      string
	abDecimal        string
	abThousands      string
	abMaxRows        int
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze several CSV files, each as its own run",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		format, err := checkFormat(abFormat)
		if err != nil {
			return err
		}
		loadOpt, err := parseLoadOptions(abDelimiter, abDecimal, abThousands, abMaxRows)
		if err != nil {
			return err
		}
		p, err := newPipeline(currentConfig(), runOptions{
			Provider:       abProvider,
			Model:          abModel,
			ArtifactsDir:   abArtifactsDir,
			Bins:           abBins,
			Load:           loadOpt,
			RequireInsight: abRequireInsight,
			TimeoutSec:     abTimeoutSec,
		})
		if err != nil {
			return err
		}
		if abOutputDir != "" {
			if err := os.MkdirAll(abOutputDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
		}

		out := cmd.OutOrStdout()
		var (
			mu     sync.Mutex
			failed int
			done   int
		)
		reports := make([]report.Report, len(files))
		names := reportFileNames(files, format)
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(max(abJobs, 1))
		for i, path := range files {
			i, path := i, path
			g.Go(func() error {
				rep := p.Run(ctx, path)
				reports[i] = rep
				mu.Lock()
				done++
				if !rep.OK {
					failed++
				}
				if !abQuiet {
					mark := "✓"
					if !rep.OK {
						mark = "✗"
					}
					fmt.Fprintf(out, "[%d/%d] %s %s\n", done, len(files), mark, filepath.Base(path))
				}
				mu.Unlock()
				if abOutputDir == "" {
					return nil
				}
				b, err := renderReport(rep, format)
				if err != nil {
					return err
				}
				return utils.WriteReportFile(filepath.Join(abOutputDir, names[i]), b)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		if abOutputDir == "" && !abQuiet {
			for i, rep := range reports {
				fmt.Fprintf(out, "\n=== %s ===\n", files[i])
				b, _ := renderReport(rep, format)
				_ = writeAll(out, b)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d analyses failed", failed, len(files))
		}
		return nil
	},
}

// expandInputs resolves globs and literal paths, dropping duplicates.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

// reportFileNames names one report per input as parent__stem.report.<ext>.
// Inputs that still collide, such as a/x/data.csv and b/x/data.csv, get a
// numeric suffix in input order.
func reportFileNames(files []string, format string) []string {
	ext := ".report.txt"
	switch format {
	case "json":
		ext = ".report.json"
	case "yaml":
		ext = ".report.yaml"
	}
	used := make(map[string]int, len(files))
	names := make([]string, len(files))
	for i, path := range files {
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		parent := filepath.Base(filepath.Dir(path))
		if parent != "." && parent != string(filepath.Separator) {
			stem = parent + "__" + stem
		}
		name := stem + ext
		for n := 2; used[name] > 0; n++ {
			name = fmt.Sprintf("%s_%d%s", stem, n, ext)
		}
		used[name]++
		names[i] = name
	}
	return names
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abOutputDir, "output-dir", "", "directory to write one report per input (stdout if empty)")
	analyzeBatchCmd.Flags().StringVar(&abFormat, "format", "text", "report format: text|json|yaml")
	analyzeBatchCmd.Flags().IntVar(&abJobs, "jobs", 2, "number of files analyzed concurrently")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
	addLoadFlags(analyzeBatchCmd, &abDelimiter, &abDecimal, &abThousands, &abMaxRows)
	addRunFlags(analyzeBatchCmd, &abProvider, &abModel, &abBins, &abArtifactsDir, &abRequireInsight, &abTimeoutSec)
}
