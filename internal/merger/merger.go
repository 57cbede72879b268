package merger

import (
	"bytes"
	"context"
	"crypto"
	"crypto/sha512"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/agkit/internal/logger"
)

// DefaultMaxDepth limits how deep the source tree is followed.
const DefaultMaxDepth = 64

const (
	backupPattern  = ".agkit-backup-*"
	stagingPattern = ".agkit-staging-*"
)

// Result summarises a merge.
type Result struct {
	// Copied counts files written to the destination.
	Copied int
	// Unchanged counts files whose destination already had identical content.
	Unchanged int
	// Directories counts directories visited below the root.
	Directories int
	// Failures lists every entry that was skipped because of an error.
	Failures []*FileError
}

// Partial reports whether some entries could not be merged.
func (r *Result) Partial() bool {
	return len(r.Failures) > 0
}

// Files returns the number of destination files that now match the source.
func (r *Result) Files() int {
	return r.Copied + r.Unchanged
}

// Add accumulates another result into r.
func (r *Result) Add(other *Result) {
	if other == nil {
		return
	}

	r.Copied += other.Copied
	r.Unchanged += other.Unchanged
	r.Directories += other.Directories
	r.Failures = append(r.Failures, other.Failures...)
}

// Merger copies directory trees.
type Merger struct {
	maxDepth int
}

// Option configures a Merger.
type Option func(*Merger)

// WithMaxDepth changes the nesting limit.
func WithMaxDepth(depth int) Option {
	return func(m *Merger) {
		if depth > 0 {
			m.maxDepth = depth
		}
	}
}

// New creates a Merger.
func New(opts ...Option) *Merger {
	m := &Merger{maxDepth: DefaultMaxDepth}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

type frame struct {
	rel   string
	depth int
}

// Merge mirrors srcDir into destDir. Directories are created as needed and
// same-named files are overwritten; destination entries without a source
// counterpart are left alone. Only a missing source, an uncreatable
// destination root or a cancelled context are returned as errors.
func (m *Merger) Merge(ctx context.Context, srcDir, destDir string) (*Result, error) {
	info, err := os.Stat(srcDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, srcDir)
		}

		return nil, fmt.Errorf("stat merge source: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, srcDir)
	}

	if err = os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create merge destination: %w", err)
	}

	ctx = logger.WithKV(ctx, "dest", destDir)
	result := &Result{}
	stack := []frame{{rel: ".", depth: 0}}

	for len(stack) > 0 {
		if err = ctx.Err(); err != nil {
			return result, err
		}

		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(filepath.Join(srcDir, current.rel))
		if err != nil {
			result.fail(ctx, current.rel, "read directory", err)

			continue
		}

		for _, entry := range entries {
			rel := filepath.Join(current.rel, entry.Name())
			src := filepath.Join(srcDir, rel)
			dst := filepath.Join(destDir, rel)

			mode := entry.Type()
			if mode&fs.ModeSymlink != 0 {
				// Links are followed; the depth cap ends directory cycles.
				target, statErr := os.Stat(src)
				if statErr != nil {
					result.fail(ctx, rel, "resolve link", statErr)

					continue
				}

				mode = target.Mode().Type()
			}

			switch {
			case mode.IsDir():
				if current.depth+1 > m.maxDepth {
					result.fail(ctx, rel, "descend", ErrDepthExceeded)

					continue
				}

				if err = os.MkdirAll(dst, 0o755); err != nil {
					result.fail(ctx, rel, "create directory", err)

					continue
				}

				result.Directories++
				stack = append(stack, frame{rel: rel, depth: current.depth + 1})
			case mode.IsRegular():
				copied, err := copyFile(src, dst)
				if err != nil {
					result.fail(ctx, rel, "copy", err)

					continue
				}

				if copied {
					result.Copied++
				} else {
					result.Unchanged++
				}
			default:
				logger.DebugKV(ctx, "Skipping non-regular entry", "path", rel, "type", mode.String())
			}
		}
	}

	return result, nil
}

func (r *Result) fail(ctx context.Context, rel, op string, err error) {
	logger.WarnKV(ctx, "Unable to merge entry", "path", rel, "op", op, "error", err)
	r.Failures = append(r.Failures, &FileError{Path: rel, Op: op, Err: err})
}

// copyFile replaces dst with the contents of src unless they already match.
// It reports whether dst was written.
func copyFile(src, dst string) (bool, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, err
	}

	data, err := os.ReadFile(filepath.Clean(src))
	if err != nil {
		return false, err
	}

	checksum := sha512.Sum512(data)
	mode := srcInfo.Mode().Perm() | 0o600

	dstInfo, err := os.Stat(dst)

	switch {
	case err == nil && dstInfo.IsDir():
		return false, errDestinationIsDirectory
	case err == nil:
		if same, sameErr := hasChecksum(dst, checksum[:]); sameErr == nil && same {
			return false, nil
		}
	case !errors.Is(err, os.ErrNotExist):
		return false, err
	}

	// go-update stages the new content in ".<name>.new"; a destination
	// file with that name must survive, so it is replaced another way.
	if _, statErr := os.Lstat(stagingPath(dst)); statErr == nil {
		err = replaceFile(data, dst, mode)
	} else {
		err = applyFile(data, checksum[:], dst, mode)
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

// applyFile swaps dst for data with go-update. The previous content is moved
// to a freshly reserved backup name, never to ".<name>.old".
func applyFile(data, checksum []byte, dst string, mode os.FileMode) error {
	created := false

	if _, err := os.Lstat(dst); errors.Is(err, os.ErrNotExist) {
		// go-update renames the existing target aside, so one has to exist.
		placeholder, createErr := os.OpenFile(filepath.Clean(dst), os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
		if createErr != nil {
			return createErr
		}

		_ = placeholder.Close()
		created = true
	}

	backup, err := os.CreateTemp(filepath.Dir(dst), backupPattern)
	if err != nil {
		if created {
			_ = os.Remove(dst)
		}

		return err
	}

	backupPath := backup.Name()
	_ = backup.Close()

	defer func() {
		_ = os.Remove(backupPath)
	}()

	err = goupdate.Apply(bytes.NewReader(data), goupdate.Options{
		TargetPath:  dst,
		TargetMode:  mode,
		Checksum:    checksum,
		Hash:        crypto.SHA512,
		OldSavePath: backupPath,
	})
	if err != nil && created {
		_ = os.Remove(dst)
	}

	return err
}

// replaceFile writes data to a temporary file next to dst and renames it over dst.
func replaceFile(data []byte, dst string, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), stagingPattern)
	if err != nil {
		return err
	}

	tmpPath := tmp.Name()

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err == nil {
		err = os.Chmod(tmpPath, mode)
	}

	if err == nil {
		err = os.Rename(tmpPath, dst)
	}

	if err != nil {
		_ = os.Remove(tmpPath)
	}

	return err
}

func stagingPath(dst string) string {
	return filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".new")
}

func hasChecksum(path string, checksum []byte) (bool, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return false, err
	}

	sum := sha512.Sum512(data)

	return bytes.Equal(sum[:], checksum), nil
}
