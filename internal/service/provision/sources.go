package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/agkit/internal/domain/kit"
	"github.com/oshokin/agkit/internal/logger"
)

// archiveSuffix names downloaded archives; the format is detected from content.
const archiveSuffix = ".archive"

// provisionSources fetches, extracts and merges every configured source in order.
func (r *run) provisionSources(ctx context.Context) error {
	for i := range r.p.cfg.Sources {
		src := r.p.cfg.Sources[i].Clone()

		err := r.provisionSource(ctx, src)
		if err == nil {
			r.sources = append(r.sources, kit.ReceiptSource{Name: src.Name, URL: src.URL})

			continue
		}

		if !src.Optional || errors.Is(err, errInvalidTransition) || ctx.Err() != nil {
			return fmt.Errorf("source %q: %w", src.Name, err)
		}

		logger.WarnKV(ctx, "Optional source skipped", "source", src.Name, "error", err)
		r.warn("Optional source %s skipped: %v", src.Name, err)
		r.sources = append(r.sources, kit.ReceiptSource{Name: src.Name, URL: src.URL, Skipped: true})
	}

	return nil
}

func (r *run) provisionSource(ctx context.Context, src *kit.RemoteSource) error {
	ctx = logger.WithKV(ctx, "source", src.Name)

	if err := r.advance(ctx, kit.StageFetching); err != nil {
		return err
	}

	r.p.reporter.Section("Source " + src.Name)
	r.p.reporter.Step("Downloading %s", src.URL)

	archive := filepath.Join(r.workspace, "downloads", src.Name+archiveSuffix)
	if err := r.p.fetcher.Fetch(ctx, src.URL, archive); err != nil {
		return err
	}

	if err := r.advance(ctx, kit.StageExtracting); err != nil {
		return err
	}

	extractDir := filepath.Join(r.workspace, "sources", src.Name)

	tree, err := r.p.extractor.Extract(ctx, archive, extractDir)
	if err != nil {
		return err
	}

	r.p.reporter.Step("Extracted %s", filepath.Base(tree.Root))

	if err = r.advance(ctx, kit.StageMerging); err != nil {
		return err
	}

	matched := 0

	for _, m := range src.Mappings {
		from := filepath.Join(tree.Root, filepath.FromSlash(m.CleanFrom()))

		info, statErr := os.Stat(from)
		if statErr != nil || !info.IsDir() {
			logger.WarnKV(ctx, "Mapped directory not found in archive", "from", m.CleanFrom())
			r.warn("%s: %s not found in archive", src.Name, m.CleanFrom())

			continue
		}

		res, err := r.p.merger.Merge(ctx, from, filepath.Join(r.installDir, m.To))
		if err != nil {
			return fmt.Errorf("merge %s into %s: %w", m.CleanFrom(), m.To, err)
		}

		matched++
		r.merged.Add(res)
		r.p.reporter.Success("%s -> %s (%d files)", m.CleanFrom(), m.To, res.Files())

		if res.Partial() {
			r.warn("%d file(s) could not be merged into %s", len(res.Failures), m.To)
		}
	}

	removeTree(ctx, extractDir)

	if matched == 0 {
		return fmt.Errorf("%w: %s", ErrSourceLayout, src.Name)
	}

	return nil
}
