package provision

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/oshokin/agkit/internal/domain/kit"
	"github.com/oshokin/agkit/internal/logger"
	"github.com/oshokin/agkit/internal/merger"
)

// run is the state of one provisioning run.
type run struct {
	p          *Provisioner
	command    string
	mode       kit.Mode
	installDir string
	workspace  string
	stage      kit.Stage
	started    time.Time
	merged     merger.Result
	sources    []kit.ReceiptSource
	warnings   int
}

func (p *Provisioner) newRun(command string, mode kit.Mode, installDir string) *run {
	return &run{
		p:          p,
		command:    command,
		mode:       mode,
		installDir: installDir,
		stage:      kit.StageIdle,
		started:    p.now(),
	}
}

// advance moves the run to the next stage.
// A cancelled context stops the run at the next stage boundary.
func (r *run) advance(ctx context.Context, to kit.Stage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !kit.CanTransition(r.stage, to) {
		return fmt.Errorf("%w: %s -> %s", errInvalidTransition, r.stage, to)
	}

	logger.DebugKV(ctx, "Stage changed", "from", r.stage.String(), "to", to.String())
	r.stage = to

	return nil
}

// fail moves the run to the failed stage and wraps err with the stage it happened in.
func (r *run) fail(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	runErr := &RunError{Stage: r.stage, Err: err}
	if !r.stage.IsTerminal() {
		r.stage = kit.StageFailed
	}

	logger.ErrorKV(ctx, "Run failed", "stage", runErr.Stage.String(), "error", err)

	return runErr
}

// release removes the workspace on every exit path.
func (r *run) release(ctx context.Context) {
	removeTree(ctx, r.workspace)
	r.workspace = ""
}

func (r *run) warn(format string, args ...any) {
	r.warnings++
	r.p.reporter.Warn(format, args...)
}

// prepare enters the preparing stage and sets up the run's directories.
func (r *run) prepare(ctx context.Context) error {
	if err := r.advance(ctx, kit.StagePreparing); err != nil {
		return err
	}

	return r.prepareDirectories(ctx)
}

// prepareDirectories sweeps stale workspaces, allocates a fresh one and makes
// sure the installation directory exists.
func (r *run) prepareDirectories(ctx context.Context) error {
	r.p.reporter.Section("Preparing")

	if removed := r.p.sweepStaleWorkspaces(ctx); removed > 0 {
		r.p.reporter.Step("Removed %d stale workspace(s)", removed)
	}

	workspace, err := r.p.allocateWorkspace(ctx)
	if err != nil {
		return err
	}

	r.workspace = workspace

	if err = os.MkdirAll(r.installDir, 0o755); err != nil {
		return &FilesystemError{Op: "create installation directory", Path: r.installDir, Err: err}
	}

	return nil
}

func (r *run) summary() *Summary {
	return &Summary{
		Command:    r.command,
		Mode:       r.mode,
		InstallDir: r.installDir,
		Sources:    r.sources,
		Merged:     r.merged.Files(),
		Failed:     len(r.merged.Failures),
		Warnings:   r.warnings,
		Elapsed:    r.p.now().Sub(r.started),
	}
}
