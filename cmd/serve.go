package cmd

import (
	"fmt"
	"time"

	"github.com/KaramelBytes/edaloom-cli/internal/server"
	"github.com/spf13/cobra"
)

var (
	srvAddr           string
	srvProvider       string
	srvModel          string
	srvBins           int
	srvArtifactsDir   string
	srvRequireInsight bool
	srvTimeoutSec     int
	srvDelimiter      string
	srvDecimal        string
	srvThousands      string
	srvMaxRows        int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload API: POST a CSV, get the report and chart URLs",
	Example: `  edaloom serve
  edaloom serve --addr 0.0.0.0:7860 --provider openai --model gpt-4o-mini
  curl -F file=@sales.csv http://127.0.0.1:7860/api/v1/analyze`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		loadOpt, err := parseLoadOptions(srvDelimiter, srvDecimal, srvThousands, srvMaxRows)
		if err != nil {
			return err
		}
		opts := runOptions{
			Provider:       srvProvider,
			Model:          srvModel,
			ArtifactsDir:   srvArtifactsDir,
			Bins:           srvBins,
			Load:           loadOpt,
			RequireInsight: srvRequireInsight,
			TimeoutSec:     srvTimeoutSec,
		}
		p, err := newPipeline(c, opts)
		if err != nil {
			return err
		}
		addr := c.ServerAddr
		if srvAddr != "" {
			addr = srvAddr
		}
		dir := c.ArtifactsDir
		if srvArtifactsDir != "" {
			dir = srvArtifactsDir
		}
		insightTimeout := c.Policy().Timeout
		if srvTimeoutSec > 0 {
			insightTimeout = secs(srvTimeoutSec)
		}
		s := server.New(p, server.Options{
			Addr:           addr,
			ArtifactsDir:   dir,
			MaxUploadBytes: int64(c.MaxUploadMB) << 20,
			RequestTimeout: insightTimeout + time.Minute,
		})
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Serving on http://%s (artifacts in %s)\n", addr, dir)
		return s.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", "", "listen address (default from config, 127.0.0.1:7860)")
	addLoadFlags(serveCmd, &srvDelimiter, &srvDecimal, &srvThousands, &srvMaxRows)
	addRunFlags(serveCmd, &srvProvider, &srvModel, &srvBins, &srvArtifactsDir, &srvRequireInsight, &srvTimeoutSec)
}
