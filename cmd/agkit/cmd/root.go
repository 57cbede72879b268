package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/oshokin/agkit/internal/config"
	"github.com/oshokin/agkit/internal/domain/kit"
	"github.com/oshokin/agkit/internal/fetcher"
	"github.com/oshokin/agkit/internal/logger"
	"github.com/oshokin/agkit/internal/service/provision"
	"github.com/oshokin/agkit/internal/service/selfupdate"
	"github.com/oshokin/agkit/internal/ui"
	"github.com/oshokin/agkit/internal/version"
)

// errUnknownLogLevel is returned for a --log-level value zap does not know.
var errUnknownLogLevel = errors.New("unknown log level")

// versionCommand is the name of the subcommand added by the version package.
const versionCommand = "version"

var (
	// configPath to the configuration YAML file, empty for the default location.
	configPath string

	// logLevel overrides the level from the configuration file.
	logLevel string

	// noUpdateCheck disables the start-up version check.
	noUpdateCheck bool

	// localInstall selects the workspace installation.
	localInstall bool

	// settings is loaded once before any subcommand runs.
	settings *config.Config

	// reporter renders user-facing output.
	reporter = ui.NewConsole(os.Stdout)

	// rootCmd represents the base command; without a subcommand it runs init.
	rootCmd = &cobra.Command{
		Use:   "agkit",
		Short: "Provision the agent kit into a global or workspace installation",
		Long: "agkit downloads the configured kit archives, merges them into the installation " +
			"directory, applies the governance rules and runs the kit finalizers.",
		Args:              cobra.NoArgs,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Usage()

			return runInit(cmd.Context(), selectedMode())
		},
	}
)

// Execute runs the agkit CLI and exits with non-zero status on error.
func Execute() {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	ctx = logger.ToContext(ctx, logger.Logger().Named("agkit"))

	err := rootCmd.ExecuteContext(ctx)

	stop()
	logger.Sync()

	if err != nil {
		reporter.Fail("%v", err)
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "path to configuration file (default "+config.DefaultPath()+")")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.BoolVar(&noUpdateCheck, "no-update-check", false, "skip the start-up version check")

	rootCmd.Flags().BoolVarP(&localInstall, "local", "l", false, "install into the current workspace")

	rootCmd.AddCommand(initCmd, linkCmd, statusCmd)
	version.AttachCobraVersionCommand(rootCmd)
}

// setup loads the configuration and applies the log level.
// The version command works without a readable configuration.
func setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == versionCommand {
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	settings = cfg

	level := logLevel
	if level == "" {
		level = cfg.LogLevel
	}

	if level == "" {
		return nil
	}

	lvl, ok := logger.ParseLogLevel(level)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, level)
	}

	logger.SetLevel(lvl)

	return nil
}

func selectedMode() kit.Mode {
	if localInstall {
		return kit.ModeLocal
	}

	return kit.ModeGlobal
}

// newProvisioner wires the provisioner to the terminal.
func newProvisioner() (*provision.Provisioner, error) {
	opts := []provision.Option{
		provision.WithReporter(reporter),
		provision.WithOutput(os.Stdout),
	}

	if term.IsTerminal(int(os.Stderr.Fd())) {
		opts = append(opts, provision.WithProgress(fetcher.NewProgressBars(os.Stderr)))
	}

	return provision.New(settings, opts...)
}

// checkForUpdates runs the version check; only an interactive stdin gets asked.
func checkForUpdates(ctx context.Context) {
	if noUpdateCheck {
		return
	}

	opts := []selfupdate.Option{
		selfupdate.WithReporter(reporter),
		selfupdate.WithOutput(os.Stdout),
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		opts = append(opts, selfupdate.WithPrompter(selfupdate.NewHuhPrompter()))
	}

	outcome := selfupdate.New(settings.UpdateCheck, version.Short(), opts...).Run(ctx)
	logger.DebugKV(ctx, "Update check finished", "outcome", outcome.String())
}
