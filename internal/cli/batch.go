package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"screencast-insights-go/internal/dataset"
)

func init() {
	cmd := &cobra.Command{
		Use:   "batch <manifest.xlsx>",
		Short: "Process every recording listed in a manifest and write a report",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
	cmd.Flags().StringP("out", "o", "report.xlsx", "Report workbook path")
	cmd.Flags().IntP("limit", "l", 0, "Process only the first N rows (0 = all)")

	RootCmd.AddCommand(cmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("out")
	limit, _ := cmd.Flags().GetInt("limit")

	recs, err := dataset.Load(args[0])
	if err != nil {
		return err
	}
	_, _, pipe, err := setup()
	if err != nil {
		return err
	}
	rep := dataset.Run(cmd.Context(), recs, pipe, limit)
	if err := dataset.WriteReport(out, rep); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d recordings, %d failed)\n", out, rep.Insight.Total, rep.Insight.Failed)
	return writeJSON(cmd.OutOrStdout(), struct {
		Insight any `json:"insight"`
		Card    any `json:"action_card"`
	}{rep.Insight, rep.Card})
}
