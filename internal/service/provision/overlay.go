package provision

import (
	"context"
	"os"
	"path/filepath"

	"github.com/oshokin/agkit/internal/domain/kit"
	"github.com/oshokin/agkit/internal/logger"
)

// applyOverlay merges the governance bundle into the installation last, so
// its files win over every source. Failures only produce warnings.
func (r *run) applyOverlay(ctx context.Context) error {
	if err := r.advance(ctx, kit.StageOverlaying); err != nil {
		return err
	}

	r.p.reporter.Section("Applying governance overlay")

	rulesDir := filepath.Join(r.installDir, kit.SubtreeRules)
	if err := os.MkdirAll(rulesDir, 0o755); err != nil {
		r.warn("Unable to create %s: %v", rulesDir, err)
	}

	subtrees, err := r.p.overlay.Subtrees()
	if err != nil {
		logger.WarnKV(ctx, "Governance bundle unusable", "origin", r.p.overlay.Origin(), "error", err)
		r.warn("Governance overlay skipped: %v", err)

		return nil
	}

	bundleDir := filepath.Join(r.workspace, "governance")
	if err = r.p.overlay.Materialize(bundleDir); err != nil {
		r.warn("Governance overlay skipped: %v", err)

		return nil
	}

	applied := 0

	for _, subtree := range subtrees {
		res, err := r.p.merger.Merge(ctx, filepath.Join(bundleDir, subtree), filepath.Join(r.installDir, subtree))
		if err != nil {
			r.warn("Governance %s not applied: %v", subtree, err)

			continue
		}

		r.merged.Add(res)

		if res.Partial() {
			r.warn("%d governance file(s) could not be applied to %s", len(res.Failures), subtree)

			continue
		}

		applied++
	}

	if applied > 0 {
		r.p.reporter.Success("Governance rules active (%s)", r.p.overlay.Origin())
	}

	return nil
}
