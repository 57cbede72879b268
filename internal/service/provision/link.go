package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/agkit/internal/domain/kit"
	"github.com/oshokin/agkit/internal/logger"
	"github.com/oshokin/agkit/internal/repository/receipt"
)

// linkedSubtrees are copied from the global kit into a workspace.
// Rules come from the governance overlay instead.
func linkedSubtrees() []string {
	return []string{
		kit.SubtreeAgents,
		kit.SubtreeSkills,
		kit.SubtreeWorkflows,
		kit.SubtreeScripts,
		kit.SubtreeShared,
	}
}

// Link synchronises the global kit into the local workspace installation.
func (p *Provisioner) Link(ctx context.Context, runLinker bool) (summary *Summary, err error) {
	ctx = logger.WithName(ctx, "link")

	globalDir, err := p.InstallDir(kit.ModeGlobal)
	if err != nil {
		return nil, err
	}

	localDir, err := p.InstallDir(kit.ModeLocal)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithKV(ctx, "global_dir", globalDir, "install_dir", localDir)
	r := p.newRun("link", kit.ModeLocal, localDir)

	defer r.release(ctx)

	defer func() {
		err = r.fail(ctx, err)
	}()

	p.reporter.Header("agkit link | " + kit.ModeLocal.Label())

	if err = r.advance(ctx, kit.StagePreparing); err != nil {
		return nil, err
	}

	// Nothing is created in the workspace unless there is a kit to link.
	if info, statErr := os.Stat(globalDir); statErr != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w (%s)", ErrGlobalKitMissing, globalDir)
	}

	if err = r.prepareDirectories(ctx); err != nil {
		return nil, err
	}

	if rec, loadErr := receipt.NewFileRepository(globalDir).Load(ctx); loadErr == nil {
		p.reporter.Step("Global kit installed by agkit %s at %s", rec.ToolVersion, rec.InstalledAt.Format("2006-01-02 15:04"))
		r.sources = rec.Sources
	} else if !errors.Is(loadErr, receipt.ErrNotFound) {
		logger.WarnKV(ctx, "Unable to read global receipt", "error", loadErr)
	}

	if err = r.advance(ctx, kit.StageMerging); err != nil {
		return nil, err
	}

	r.p.reporter.Section("Synchronising from " + globalDir)

	for _, subtree := range linkedSubtrees() {
		src := filepath.Join(globalDir, subtree)
		if info, statErr := os.Stat(src); statErr != nil || !info.IsDir() {
			logger.DebugKV(ctx, "Global subtree absent", "subtree", subtree)

			continue
		}

		res, mergeErr := p.merger.Merge(ctx, src, filepath.Join(localDir, subtree))
		if mergeErr != nil {
			return nil, fmt.Errorf("link %s: %w", subtree, mergeErr)
		}

		r.merged.Add(res)
		p.reporter.Success("%s (%d files)", subtree, res.Files())

		if res.Partial() {
			r.warn("%d file(s) could not be linked into %s", len(res.Failures), subtree)
		}
	}

	if err = r.applyOverlay(ctx); err != nil {
		return nil, err
	}

	if err = r.advance(ctx, kit.StageFinalizing); err != nil {
		return nil, err
	}

	if runLinker {
		r.runLinker(ctx)
	}

	if err = r.advance(ctx, kit.StageDone); err != nil {
		return nil, err
	}

	return r.summary(), nil
}
