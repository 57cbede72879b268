package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/agkit/internal/logger"
	"github.com/oshokin/agkit/internal/platform"
	"github.com/oshokin/agkit/internal/shell"
)

// MacOSMetadataDir is created by macOS archivers and never counts as a root.
const MacOSMetadataDir = "__MACOSX"

// Strategy is one way of unpacking an archive into a directory.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, archivePath, destDir string) error
}

// ExtractedTree is the result of a successful extraction.
type ExtractedTree struct {
	// Archive is the path of the (now deleted) archive.
	Archive string
	// Root is the single top-level directory of the archive contents.
	Root string
	// Strategy names the strategy that succeeded.
	Strategy string
}

// Extractor tries its strategies in order until one succeeds.
type Extractor struct {
	strategies []Strategy
}

// New creates an Extractor with the given strategies.
func New(strategies ...Strategy) *Extractor {
	return &Extractor{strategies: strategies}
}

// DefaultStrategies returns the strategy list for goos.
// Only Windows gets a fallback after the native strategy.
func DefaultStrategies(goos string, runner shell.Runner) []Strategy {
	strategies := []Strategy{NewNativeStrategy()}

	if platform.IsWindows(goos) {
		strategies = append(strategies, NewPowerShellStrategy(runner))
	}

	return strategies
}

// Strategies returns the configured strategy names in order.
func (e *Extractor) Strategies() []string {
	names := make([]string, 0, len(e.strategies))
	for _, s := range e.strategies {
		names = append(names, s.Name())
	}

	return names
}

// Extract unpacks archivePath into destDir, deletes the archive and returns its root directory.
// destDir is emptied before every strategy attempt.
func (e *Extractor) Extract(ctx context.Context, archivePath, destDir string) (*ExtractedTree, error) {
	if len(e.strategies) == 0 {
		return nil, &ExtractionError{Archive: archivePath, Err: ErrNoStrategies}
	}

	ctx = logger.WithKV(ctx, "archive", filepath.Base(archivePath))

	var (
		errs []error
		used string
	)

	for _, s := range e.strategies {
		if err := resetDir(destDir); err != nil {
			return nil, &ExtractionError{Archive: archivePath, Err: err}
		}

		err := s.Extract(ctx, archivePath, destDir)
		if err == nil {
			used = s.Name()

			break
		}

		logger.WarnKV(ctx, "Extraction strategy failed", "strategy", s.Name(), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))

		if ctx.Err() != nil {
			break
		}
	}

	if used == "" {
		return nil, &ExtractionError{Archive: archivePath, Err: errors.Join(errs...)}
	}

	logger.DebugKV(ctx, "Archive extracted", "strategy", used, "dest", destDir)

	if err := os.Remove(archivePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Unable to delete extracted archive", "error", err)
	}

	root, err := FindRoot(destDir)
	if err != nil {
		return nil, &ExtractionError{Archive: archivePath, Err: err}
	}

	return &ExtractedTree{
		Archive:  archivePath,
		Root:     root,
		Strategy: used,
	}, nil
}

// FindRoot returns the only top-level directory inside dir, ignoring macOS metadata.
func FindRoot(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read extraction directory: %w", err)
	}

	var roots []string

	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == MacOSMetadataDir {
			continue
		}

		roots = append(roots, entry.Name())
	}

	switch len(roots) {
	case 0:
		return "", ErrNoRootDirectory
	case 1:
		return filepath.Join(dir, roots[0]), nil
	default:
		return "", fmt.Errorf("%w: %v", ErrAmbiguousRoot, roots)
	}
}

// resetDir leaves dir existing and empty.
func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear extraction directory: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create extraction directory: %w", err)
	}

	return nil
}
