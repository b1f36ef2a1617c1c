package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"screencast-insights-go/internal/provider"
	"screencast-insights-go/internal/solution"
	"screencast-insights-go/internal/types"
)

func init() {
	cmd := &cobra.Command{
		Use:   "solve <metadata.json>",
		Short: "Generate a solution for processed metadata",
		Long:  "Sends the contextual prompt built from metadata to the configured provider. Use --prompt-only to print the prompt without calling it.",
		Args:  cobra.ExactArgs(1),
		RunE:  runSolve,
	}
	cmd.Flags().Bool("prompt-only", false, "Print the prompt and exit")
	cmd.Flags().Bool("markdown", false, "Print the solution text instead of JSON")

	RootCmd.AddCommand(cmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	b, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read metadata: %w", err)
	}
	var md types.ProcessedMetadata
	if err := json.Unmarshal(b, &md); err != nil {
		return fmt.Errorf("parse metadata: %w", err)
	}

	if promptOnly, _ := cmd.Flags().GetBool("prompt-only"); promptOnly {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), solution.BuildContextualPrompt(md))
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	prov := optionalProvider(cfg)
	if prov == nil {
		return fmt.Errorf("%s: %w", cfg.Provider, provider.ErrNotConfigured)
	}
	sol, err := solution.NewGenerator(prov).Generate(cmd.Context(), md)
	if err != nil {
		return err
	}
	if asText, _ := cmd.Flags().GetBool("markdown"); asText {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), sol.Solution)
		return err
	}
	return writeJSON(cmd.OutOrStdout(), sol)
}
