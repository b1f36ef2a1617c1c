package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "test-provider",
		Short: "Check that the configured AI provider accepts its credentials",
		Args:  cobra.NoArgs,
		RunE:  runTestProvider,
	})
}

func runTestProvider(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	prov, err := newProvider(cfg)
	if err != nil {
		return err
	}
	if err := prov.TestConnection(cmd.Context()); err != nil {
		return fmt.Errorf("%s: %w", prov.Name(), err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", prov.Name())
	return err
}
