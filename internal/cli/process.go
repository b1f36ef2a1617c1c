package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	process := &cobra.Command{
		Use:   "process <video>",
		Short: "Process a recording into metadata JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runProcess,
	}
	process.Flags().Bool("progress", false, "Print progress to stderr")

	export := &cobra.Command{
		Use:   "export <video>",
		Short: "Package frames and transcript for an external coding agent",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	export.Flags().Bool("progress", false, "Print progress to stderr")

	RootCmd.AddCommand(process, export)
}

func readRecording(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	return raw, nil
}

func onProgress(cmd *cobra.Command) func(float64) {
	if show, _ := cmd.Flags().GetBool("progress"); show {
		return progressPrinter(cmd.ErrOrStderr())
	}
	return nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	raw, err := readRecording(args[0])
	if err != nil {
		return err
	}
	_, _, pipe, err := setup()
	if err != nil {
		return err
	}
	md, err := pipe.Process(cmd.Context(), raw, onProgress(cmd))
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), md)
}

func runExport(cmd *cobra.Command, args []string) error {
	raw, err := readRecording(args[0])
	if err != nil {
		return err
	}
	_, _, pipe, err := setup()
	if err != nil {
		return err
	}
	out, err := pipe.ExportForExternalAgent(cmd.Context(), raw, onProgress(cmd))
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), out)
}
