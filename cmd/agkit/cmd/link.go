package cmd

import (
	"github.com/spf13/cobra"
)

// runLinker also starts the workspace linker script after synchronising.
var runLinker bool

// linkCmd copies the global kit into the current workspace.
var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Synchronise the global kit into the current workspace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		checkForUpdates(ctx)

		p, err := newProvisioner()
		if err != nil {
			return err
		}

		summary, err := p.Link(ctx, runLinker)
		if err != nil {
			return err
		}

		reporter.Summary("Workspace synchronised", summary.Rows())

		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	linkCmd.Flags().BoolVar(&runLinker, "run-linker", false, "run scripts/workspace_linker after synchronising")
}
