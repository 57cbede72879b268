package provision

import (
	"context"
	"os"
	"path/filepath"

	"github.com/oshokin/agkit/internal/domain/kit"
	"github.com/oshokin/agkit/internal/logger"
	"github.com/oshokin/agkit/internal/platform"
	"github.com/oshokin/agkit/internal/shell"
)

// runFinalizers starts the configured scripts inside the installation.
// A missing script or a failing one is a warning with the command to retry by hand.
func (r *run) runFinalizers(ctx context.Context) {
	if len(r.p.cfg.Finalizers) == 0 {
		return
	}

	r.p.reporter.Section("Finalizing")

	for _, f := range r.p.cfg.Finalizers {
		script := filepath.Join(r.installDir, filepath.FromSlash(f.Script))
		cmd := platform.PythonScript(r.p.goos, script)

		if _, err := os.Stat(script); err != nil {
			logger.WarnKV(ctx, "Finalizer script not found", "finalizer", f.Name, "script", script)
			r.warn("%s skipped: %s not found", f.Name, f.Script)

			continue
		}

		r.p.reporter.Step("Running %s", f.Name)

		if err := r.runCollaborator(ctx, cmd, r.installDir); err != nil {
			logger.WarnKV(ctx, "Finalizer failed", "finalizer", f.Name, "error", err)
			r.warn("%s failed. Run manually: %s", f.Name, cmd)

			continue
		}

		r.p.reporter.Success("%s finished", f.Name)
	}
}

// runCoreEngine initialises the package-manager side of the kit.
// The first failing command stops the sequence with a warning.
func (r *run) runCoreEngine(ctx context.Context) {
	engine := r.p.cfg.CoreEngine
	if !engine.Enabled {
		return
	}

	commands := engine.Global
	if r.mode == kit.ModeLocal {
		commands = engine.Local
	}

	for _, argv := range commands {
		cmd := shell.New(argv...)
		r.p.reporter.Step("Core engine: %s", cmd)

		if err := r.runCollaborator(ctx, cmd, r.p.workingDir()); err != nil {
			logger.WarnKV(ctx, "Core engine initialisation failed", "command", cmd.String(), "error", err)

			if shell.IsNotFound(err) {
				r.warn("Core engine skipped: %s is not installed", cmd.Name)
			} else {
				r.warn("Core engine notice: %s failed, continuing", cmd)
			}

			return
		}
	}

	r.p.reporter.Success("Core engine online")
}

// runLinker starts the platform linker script of a workspace installation.
// On Windows PowerShell 7 is tried first and Windows PowerShell second.
func (r *run) runLinker(ctx context.Context) {
	script := platform.LinkerScript(r.p.goos, filepath.Join(r.installDir, kit.SubtreeScripts))

	if _, err := os.Stat(script); err != nil {
		r.warn("Linker script %s not found", filepath.Base(script))

		return
	}

	r.p.reporter.Section("Linking workspace")

	commands := platform.LinkerCommands(r.p.goos, script)

	for _, cmd := range commands {
		err := r.runCollaborator(ctx, cmd, r.p.workingDir())
		if err == nil {
			r.p.reporter.Success("Workspace linked")

			return
		}

		if shell.IsNotFound(err) {
			logger.DebugKV(ctx, "Linker interpreter not available", "command", cmd.Name)

			continue
		}

		logger.WarnKV(ctx, "Linker failed", "command", cmd.String(), "error", err)
		r.warn("Linker failed. Run manually: %s", cmd)

		return
	}

	r.warn("No interpreter for the linker found. Run manually: %s", commands[0])
}

func (r *run) runCollaborator(ctx context.Context, cmd shell.Command, dir string) error {
	cmd.Dir = dir
	cmd.Stdout = r.p.output
	cmd.Stderr = r.p.output

	return r.p.runner.Run(ctx, cmd)
}
