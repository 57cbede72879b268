package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oshokin/agkit/internal/domain/kit"
)

// initCmd provisions the global kit or, with --local, the workspace.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Download, merge and configure the kit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runInit(cmd.Context(), selectedMode())
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	initCmd.Flags().BoolVarP(&localInstall, "local", "l", false, "install into the current workspace")
}

func runInit(ctx context.Context, mode kit.Mode) error {
	checkForUpdates(ctx)

	p, err := newProvisioner()
	if err != nil {
		return err
	}

	summary, err := p.Init(ctx, mode)
	if err != nil {
		return err
	}

	reporter.Summary("Installation complete", summary.Rows())

	return nil
}
