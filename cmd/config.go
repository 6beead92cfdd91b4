package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/edaloom-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/edaloom-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set EDALoom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "provider: %s\n", cfg.Provider)
		fmt.Fprintf(out, "model: %s\n", cfg.Model)
		fmt.Fprintf(out, "api_key: %s\n", mask(cfg.APIKey))
		fmt.Fprintf(out, "ollama_host: %s\n", cfg.OllamaHost)
		if cfg.OpenAIBaseURL != "" {
			fmt.Fprintf(out, "openai_base_url: %s\n", cfg.OpenAIBaseURL)
		}
		fmt.Fprintf(out, "http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		fmt.Fprintf(out, "retry_max_attempts: %d\n", cfg.RetryMaxAttempts)
		fmt.Fprintf(out, "insight_timeout_sec: %d\n", cfg.InsightTimeoutSec)
		fmt.Fprintf(out, "insight_retries: %d\n", cfg.InsightRetries)
		fmt.Fprintf(out, "insight_required: %t\n", cfg.InsightRequired)
		fmt.Fprintf(out, "artifacts_dir: %s\n", cfg.ArtifactsDir)
		fmt.Fprintf(out, "histogram_bins: %d\n", cfg.HistogramBins)
		fmt.Fprintf(out, "max_rows: %d\n", cfg.MaxRows)
		fmt.Fprintf(out, "server_addr: %s\n", cfg.ServerAddr)
		fmt.Fprintf(out, "max_upload_mb: %d\n", cfg.MaxUploadMB)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := setConfigValue(cfg, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "provider":
		p := normalizeProvider(val)
		if _, err := ai.NewRuntime(p, ai.RuntimeConfig{}); err != nil {
			return fmt.Errorf("invalid provider: %s (use %s)", val, strings.Join(ai.Providers(), "|"))
		}
		c.Provider = p
	case "model":
		c.Model = val
	case "api_key":
		c.APIKey = val
	case "ollama_host":
		c.OllamaHost = val
	case "openai_base_url":
		c.OpenAIBaseURL = val
	case "insight_fallback":
		c.InsightFallback = val
	case "artifacts_dir":
		c.ArtifactsDir = val
	case "server_addr":
		c.ServerAddr = val
	case "insight_required":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for insight_required: %v", val)
		}
		c.InsightRequired = b
	default:
		ints := map[string]*int{
			"http_timeout_sec":    &c.HTTPTimeoutSec,
			"retry_max_attempts":  &c.RetryMaxAttempts,
			"retry_base_delay_ms": &c.RetryBaseDelayMs,
			"retry_max_delay_ms":  &c.RetryMaxDelayMs,
			"insight_timeout_sec": &c.InsightTimeoutSec,
			"insight_retries":     &c.InsightRetries,
			"histogram_bins":      &c.HistogramBins,
			"max_rows":            &c.MaxRows,
			"max_upload_mb":       &c.MaxUploadMB,
		}
		dst, ok := ints[key]
		if !ok {
			return fmt.Errorf("unknown key: %s", key)
		}
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		*dst = i
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
