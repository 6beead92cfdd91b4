package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/edaloom-cli/internal/ai"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List providers and the models with known context windows",
	Example: `  edaloom models
  edaloom models --provider ollama`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		provider, _ := cmd.Flags().GetString("provider")
		if provider != "" {
			provider = normalizeProvider(provider)
			if _, err := ai.NewRuntime(provider, ai.RuntimeConfig{}); err != nil {
				return err
			}
		}
		fmt.Fprintln(out, "Providers (default model):")
		for _, p := range ai.Providers() {
			if provider != "" && p != provider {
				continue
			}
			fmt.Fprintf(out, "  %-12s %s\n", p, ai.DefaultModel(p))
		}
		fmt.Fprintln(out, "\nKnown models (context tokens):")
		for _, mi := range ai.Models() {
			if provider == ai.ProviderOllama && strings.Contains(mi.Name, "/") {
				continue
			}
			fmt.Fprintf(out, "  %-34s %d\n", mi.Name, mi.ContextTokens)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().String("provider", "", "only show this provider")
}
