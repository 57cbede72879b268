package provision

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/agkit/internal/config"
	"github.com/oshokin/agkit/internal/domain/kit"
	"github.com/oshokin/agkit/internal/extractor"
	"github.com/oshokin/agkit/internal/fetcher"
	"github.com/oshokin/agkit/internal/governance"
	"github.com/oshokin/agkit/internal/merger"
	"github.com/oshokin/agkit/internal/platform"
	"github.com/oshokin/agkit/internal/repository/receipt"
	"github.com/oshokin/agkit/internal/shell"
	"github.com/oshokin/agkit/internal/ui"
	"github.com/oshokin/agkit/internal/version"
)

// Downloader fetches one archive.
type Downloader interface {
	Fetch(ctx context.Context, url, destPath string) error
}

// Unpacker turns an archive into an extracted tree.
type Unpacker interface {
	Extract(ctx context.Context, archivePath, destDir string) (*extractor.ExtractedTree, error)
}

// TreeMerger mirrors one directory into another.
type TreeMerger interface {
	Merge(ctx context.Context, srcDir, destDir string) (*merger.Result, error)
}

// Provisioner runs init, link and status against one configuration.
type Provisioner struct {
	cfg       *config.Config
	fetcher   Downloader
	extractor Unpacker
	merger    TreeMerger
	runner    shell.Runner
	reporter  ui.Reporter
	overlay   *governance.Bundle
	output    io.Writer
	progress  fetcher.ProgressFactory
	tempRoot  string
	homeDir   string
	workDir   string
	goos      string
	now       func() time.Time
	processes func() ([]ps.Process, error)
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithFetcher replaces the archive downloader.
func WithFetcher(f Downloader) Option {
	return func(p *Provisioner) {
		p.fetcher = f
	}
}

// WithExtractor replaces the archive extractor.
func WithExtractor(e Unpacker) Option {
	return func(p *Provisioner) {
		p.extractor = e
	}
}

// WithMerger replaces the directory merger.
func WithMerger(m TreeMerger) Option {
	return func(p *Provisioner) {
		p.merger = m
	}
}

// WithRunner sets the runner for external collaborators.
func WithRunner(r shell.Runner) Option {
	return func(p *Provisioner) {
		p.runner = r
	}
}

// WithReporter sets where user-facing messages go.
func WithReporter(r ui.Reporter) Option {
	return func(p *Provisioner) {
		p.reporter = r
	}
}

// WithOverlay replaces the governance bundle.
func WithOverlay(b *governance.Bundle) Option {
	return func(p *Provisioner) {
		p.overlay = b
	}
}

// WithOutput sets where collaborator output goes.
func WithOutput(w io.Writer) Option {
	return func(p *Provisioner) {
		p.output = w
	}
}

// WithProgress sets the download progress factory of the default fetcher.
func WithProgress(f fetcher.ProgressFactory) Option {
	return func(p *Provisioner) {
		p.progress = f
	}
}

// WithTempRoot sets the directory that holds run workspaces.
func WithTempRoot(dir string) Option {
	return func(p *Provisioner) {
		p.tempRoot = dir
	}
}

// WithHomeDir sets the base of the global installation.
func WithHomeDir(dir string) Option {
	return func(p *Provisioner) {
		p.homeDir = dir
	}
}

// WithWorkDir sets the base of the local installation.
func WithWorkDir(dir string) Option {
	return func(p *Provisioner) {
		p.workDir = dir
	}
}

// WithGOOS overrides the operating system used for platform decisions.
func WithGOOS(goos string) Option {
	return func(p *Provisioner) {
		p.goos = goos
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Provisioner) {
		p.now = now
	}
}

// WithProcessLister overrides how running processes are listed.
func WithProcessLister(list func() ([]ps.Process, error)) Option {
	return func(p *Provisioner) {
		p.processes = list
	}
}

// New creates a Provisioner. Collaborators that were not injected are built from cfg.
func New(cfg *config.Config, opts ...Option) (*Provisioner, error) {
	if cfg == nil {
		return nil, errConfigIsNotSet
	}

	p := &Provisioner{
		cfg:       cfg,
		output:    io.Discard,
		tempRoot:  os.TempDir(),
		goos:      platform.Current(),
		now:       time.Now,
		processes: ps.Processes,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.runner == nil {
		p.runner = shell.NewExecRunner()
	}

	if p.reporter == nil {
		p.reporter = ui.Discard()
	}

	if p.fetcher == nil {
		p.fetcher = fetcher.New(
			fetcher.WithRetryPolicy(fetcher.RetryPolicy{
				MaxAttempts: cfg.Fetch.MaxAttempts,
				Delay:       cfg.Fetch.RetryDelay,
			}),
			fetcher.WithStallTimeout(cfg.Fetch.StallTimeout),
			fetcher.WithMaxRedirects(cfg.Fetch.MaxRedirects),
			fetcher.WithUserAgent(version.UserAgent()),
			fetcher.WithProgress(p.progress),
		)
	}

	if p.extractor == nil {
		p.extractor = extractor.New(extractor.DefaultStrategies(p.goos, p.runner)...)
	}

	if p.merger == nil {
		p.merger = merger.New()
	}

	if p.overlay == nil {
		p.overlay = governance.Embedded()
		if cfg.GovernanceDir != "" {
			p.overlay = governance.FromDir(cfg.GovernanceDir)
		}
	}

	return p, nil
}

// InstallDir returns the installation directory for mode.
func (p *Provisioner) InstallDir(mode kit.Mode) (string, error) {
	if mode == kit.ModeLocal {
		base := p.workDir
		if base == "" {
			wd, err := os.Getwd()
			if err != nil {
				return "", fmt.Errorf("resolve working directory: %w", err)
			}

			base = wd
		}

		return filepath.Join(base, filepath.FromSlash(p.cfg.LocalDir)), nil
	}

	base := p.homeDir
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}

		base = home
	}

	return filepath.Join(base, filepath.FromSlash(p.cfg.KitDir)), nil
}

// Status returns the receipt of the installation selected by mode.
func (p *Provisioner) Status(ctx context.Context, mode kit.Mode) (*kit.Receipt, string, error) {
	installDir, err := p.InstallDir(mode)
	if err != nil {
		return nil, "", err
	}

	r, err := receipt.NewFileRepository(installDir).Load(ctx)
	if err != nil {
		return nil, installDir, err
	}

	return r, installDir, nil
}

// workingDir returns the directory external collaborators start in.
func (p *Provisioner) workingDir() string {
	if p.workDir != "" {
		return p.workDir
	}

	wd, err := os.Getwd()
	if err != nil {
		return ""
	}

	return wd
}
