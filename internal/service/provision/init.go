package provision

import (
	"context"

	"github.com/oshokin/agkit/internal/domain/kit"
	"github.com/oshokin/agkit/internal/logger"
	"github.com/oshokin/agkit/internal/repository/receipt"
	"github.com/oshokin/agkit/internal/version"
)

// Init provisions the installation selected by mode from the configured sources.
func (p *Provisioner) Init(ctx context.Context, mode kit.Mode) (summary *Summary, err error) {
	ctx = logger.WithName(ctx, "init")

	installDir, err := p.InstallDir(mode)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithKV(ctx, "install_dir", installDir, "mode", string(mode))
	r := p.newRun("init", mode, installDir)

	defer r.release(ctx)

	defer func() {
		err = r.fail(ctx, err)
	}()

	p.reporter.Header("agkit " + version.Short() + " | " + mode.Label())

	if err = r.prepare(ctx); err != nil {
		return nil, err
	}

	r.runCoreEngine(ctx)

	if err = r.provisionSources(ctx); err != nil {
		return nil, err
	}

	if err = r.applyOverlay(ctx); err != nil {
		return nil, err
	}

	if err = r.advance(ctx, kit.StageFinalizing); err != nil {
		return nil, err
	}

	r.runFinalizers(ctx)
	r.writeReceipt(ctx)

	if err = r.advance(ctx, kit.StageDone); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Provisioning completed", "merged", r.merged.Files(), "failed", len(r.merged.Failures))

	return r.summary(), nil
}

// writeReceipt records the run next to the installation; failures are warnings.
func (r *run) writeReceipt(ctx context.Context) {
	rec := &kit.Receipt{
		ToolVersion: version.Short(),
		Mode:        r.mode,
		InstalledAt: r.p.now().UTC(),
		Sources:     r.sources,
		MergedFiles: r.merged.Files(),
		FailedFiles: len(r.merged.Failures),
	}

	if err := receipt.NewFileRepository(r.installDir).Save(ctx, rec); err != nil {
		logger.WarnKV(ctx, "Unable to write receipt", "error", err)
		r.warn("Receipt not written: %v", err)
	}
}
