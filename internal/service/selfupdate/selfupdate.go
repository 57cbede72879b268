package selfupdate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oshokin/agkit/internal/config"
	"github.com/oshokin/agkit/internal/logger"
	"github.com/oshokin/agkit/internal/shell"
	"github.com/oshokin/agkit/internal/ui"
	"github.com/oshokin/agkit/internal/version"
)

// maxMetadataBytes bounds the version document.
const maxMetadataBytes = 1 << 20

var (
	errBadHTTPStatus = errors.New("unexpected http status")
	errNoVersion     = errors.New("version metadata has no version field")
)

// Outcome tells what the check ended up doing.
type Outcome int

const (
	// OutcomeSkipped means the check was disabled or failed silently.
	OutcomeSkipped Outcome = iota
	// OutcomeUpToDate means no newer version is published.
	OutcomeUpToDate
	// OutcomeNotified means a newer version exists and nobody could be asked.
	OutcomeNotified
	// OutcomeDeclined means the user chose not to upgrade.
	OutcomeDeclined
	// OutcomeUpgraded means the upgrade command succeeded.
	OutcomeUpgraded
	// OutcomeUpgradeFailed means the upgrade command failed.
	OutcomeUpgradeFailed
)

var outcomeNames = [...]string{
	OutcomeSkipped:       "skipped",
	OutcomeUpToDate:      "up to date",
	OutcomeNotified:      "notified",
	OutcomeDeclined:      "declined",
	OutcomeUpgraded:      "upgraded",
	OutcomeUpgradeFailed: "upgrade failed",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "unknown"
	}

	return outcomeNames[o]
}

// Metadata is the published version document.
type Metadata struct {
	Version string `json:"version"`
}

// Checker compares the running version with the published one.
type Checker struct {
	settings config.UpdateCheck
	current  string
	client   *http.Client
	runner   shell.Runner
	prompter Prompter
	reporter ui.Reporter
	output   io.Writer
}

// Option configures a Checker.
type Option func(*Checker)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(ch *Checker) {
		ch.client = c
	}
}

// WithRunner sets the runner used for the upgrade command.
func WithRunner(r shell.Runner) Option {
	return func(ch *Checker) {
		ch.runner = r
	}
}

// WithPrompter enables the interactive upgrade question.
func WithPrompter(p Prompter) Option {
	return func(ch *Checker) {
		ch.prompter = p
	}
}

// WithReporter sets where user-facing messages go.
func WithReporter(r ui.Reporter) Option {
	return func(ch *Checker) {
		ch.reporter = r
	}
}

// WithOutput sets where the upgrade command output goes.
func WithOutput(w io.Writer) Option {
	return func(ch *Checker) {
		ch.output = w
	}
}

// New creates a Checker for the running version current.
func New(settings config.UpdateCheck, current string, opts ...Option) *Checker {
	ch := &Checker{
		settings: settings,
		current:  current,
		client:   http.DefaultClient,
		runner:   shell.NewExecRunner(),
		reporter: ui.Discard(),
		output:   io.Discard,
	}

	for _, opt := range opts {
		opt(ch)
	}

	return ch
}

// Latest fetches the published version.
func (c *Checker) Latest(ctx context.Context) (string, error) {
	timeout := c.settings.Timeout
	if timeout <= 0 {
		timeout = config.DefaultUpdateCheckTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.settings.URL, http.NoBody)
	if err != nil {
		return "", err
	}

	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s", errBadHTTPStatus, resp.Status)
	}

	var meta Metadata
	if err = json.NewDecoder(io.LimitReader(resp.Body, maxMetadataBytes)).Decode(&meta); err != nil {
		return "", fmt.Errorf("decode version metadata: %w", err)
	}

	if meta.Version == "" {
		return "", errNoVersion
	}

	return meta.Version, nil
}

// Run performs the check and, when confirmed, the upgrade.
// It never returns an error: every failure is logged and the caller continues.
func (c *Checker) Run(ctx context.Context) Outcome {
	ctx = logger.WithName(ctx, "selfupdate")

	if !c.settings.Enabled {
		return OutcomeSkipped
	}

	latest, err := c.Latest(ctx)
	if err != nil {
		logger.DebugKV(ctx, "Version check skipped", "error", err)

		return OutcomeSkipped
	}

	newer, err := version.IsNewer(c.current, latest)
	if err != nil {
		logger.DebugKV(ctx, "Version comparison skipped", "current", c.current, "latest", latest, "error", err)

		return OutcomeSkipped
	}

	if !newer {
		logger.DebugKV(ctx, "agkit is up to date", "current", c.current, "latest", latest)

		return OutcomeUpToDate
	}

	upgrade := shell.New(c.settings.UpgradeCommand...)
	c.reporter.Warn("A new version of agkit is available: %s (current %s)", latest, c.current)

	if c.prompter == nil {
		c.reporter.Step("Upgrade with: %s", upgrade)

		return OutcomeNotified
	}

	confirmed, err := c.prompter.Confirm(ctx,
		"Update agkit to "+latest+"?",
		"Runs: "+upgrade.String(),
	)
	if err != nil {
		logger.DebugKV(ctx, "Upgrade prompt failed", "error", err)

		return OutcomeDeclined
	}

	if !confirmed {
		c.reporter.Step("Continuing with %s", c.current)

		return OutcomeDeclined
	}

	return c.upgrade(ctx, upgrade)
}

func (c *Checker) upgrade(ctx context.Context, cmd shell.Command) Outcome {
	cmd.Stdout = c.output
	cmd.Stderr = c.output

	started := time.Now()

	if err := c.runner.Run(ctx, cmd); err != nil {
		logger.WarnKV(ctx, "Upgrade command failed", "command", cmd.String(), "error", err)
		c.reporter.Warn("Update failed, continuing with %s. Run manually: %s", c.current, cmd)

		return OutcomeUpgradeFailed
	}

	logger.InfoKV(ctx, "Upgrade command finished", "elapsed", time.Since(started))
	c.reporter.Success("agkit updated; the new version is used from the next run")

	return OutcomeUpgraded
}
