package extractor

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"

	"github.com/oshokin/agkit/internal/logger"
)

type format int

const (
	formatUnknown format = iota
	formatZip
	formatTarGzip
)

var (
	zipMagic  = []byte("PK\x03\x04")
	gzipMagic = []byte{0x1f, 0x8b}
)

// NativeStrategy decodes zip and tar.gz archives in process.
type NativeStrategy struct{}

// NewNativeStrategy creates the in-process strategy.
func NewNativeStrategy() *NativeStrategy {
	return &NativeStrategy{}
}

// Name implements Strategy.
func (*NativeStrategy) Name() string {
	return "native"
}

// Extract implements Strategy.
func (*NativeStrategy) Extract(ctx context.Context, archivePath, destDir string) error {
	kind, err := detectFormat(archivePath)
	if err != nil {
		return err
	}

	switch kind {
	case formatZip:
		return extractZip(ctx, archivePath, destDir)
	case formatTarGzip:
		return extractTarGzip(ctx, archivePath, destDir)
	default:
		return ErrUnsupportedFormat
	}
}

// detectFormat looks at the magic bytes instead of the file name.
func detectFormat(path string) (format, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return formatUnknown, fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = f.Close()
	}()

	header := make([]byte, len(zipMagic))

	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return formatUnknown, fmt.Errorf("read archive header: %w", err)
	}

	header = header[:n]

	switch {
	case bytes.HasPrefix(header, zipMagic):
		return formatZip, nil
	case bytes.HasPrefix(header, gzipMagic):
		return formatTarGzip, nil
	default:
		return formatUnknown, nil
	}
}

func extractZip(ctx context.Context, archivePath, destDir string) (err error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	defer func() {
		if closeErr := reader.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for _, file := range reader.File {
		if err = ctx.Err(); err != nil {
			return err
		}

		target, err := safeJoin(destDir, file.Name)
		if err != nil {
			return err
		}

		mode := file.Mode()

		switch {
		case mode&os.ModeSymlink != 0:
			logger.DebugKV(ctx, "Skipping symlink entry", "entry", file.Name)
		case file.FileInfo().IsDir():
			if err = os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", file.Name, err)
			}
		default:
			if err = writeZipEntry(file, target); err != nil {
				return fmt.Errorf("extract %s: %w", file.Name, err)
			}
		}
	}

	return nil
}

func writeZipEntry(file *zip.File, target string) error {
	rc, err := file.Open()
	if err != nil {
		return err
	}

	defer func() {
		_ = rc.Close()
	}()

	return writeFile(target, rc, file.Mode())
}

func extractTarGzip(ctx context.Context, archivePath, destDir string) error {
	f, err := os.Open(filepath.Clean(archivePath))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = f.Close()
	}()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("gzip reader: %w", err)
	}

	defer func() {
		_ = gzr.Close()
	}()

	tr := tar.NewReader(gzr)

	for {
		if err = ctx.Err(); err != nil {
			return err
		}

		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}

		target, err := safeJoin(destDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err = os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", header.Name, err)
			}
		case tar.TypeReg:
			if err = writeFile(target, tr, header.FileInfo().Mode()); err != nil {
				return fmt.Errorf("extract %s: %w", header.Name, err)
			}
		default:
			logger.DebugKV(ctx, "Skipping tar entry", "entry", header.Name, "type", string(header.Typeflag))
		}
	}
}

// safeJoin resolves an archive entry name below destDir.
func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))

	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}

	return target, nil
}

func writeFile(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	out, err := os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm()|0o600)
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, r); err != nil {
		_ = out.Close()

		return err
	}

	return out.Close()
}
