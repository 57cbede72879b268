package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/oshokin/agkit/internal/repository/receipt"
	"github.com/oshokin/agkit/internal/service/provision"
)

// statusCmd prints the receipt of an installation.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what is installed and when",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := newProvisioner()
		if err != nil {
			return err
		}

		mode := selectedMode()

		rec, installDir, err := p.Status(cmd.Context(), mode)
		if errors.Is(err, receipt.ErrNotFound) {
			reporter.Warn("Nothing installed at %s yet. Run 'agkit init' first.", installDir)

			return nil
		}

		if err != nil {
			return err
		}

		reporter.Summary("Installed kit", provision.ReceiptRows(rec, installDir))

		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	statusCmd.Flags().BoolVarP(&localInstall, "local", "l", false, "show the workspace installation")
}
