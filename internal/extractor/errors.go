package extractor

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRootDirectory is returned when an archive unpacks to no top-level directory.
	ErrNoRootDirectory = errors.New("archive has no top-level directory")
	// ErrAmbiguousRoot is returned when an archive unpacks to several top-level directories.
	ErrAmbiguousRoot = errors.New("archive has more than one top-level directory")
	// ErrUnsupportedFormat is returned by the native strategy for unknown archive types.
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	// ErrUnsafePath is returned for an entry that would be written outside the destination.
	ErrUnsafePath = errors.New("archive entry escapes destination directory")
	// ErrNoStrategies is returned by an Extractor without strategies.
	ErrNoStrategies = errors.New("no extraction strategies configured")
)

// ExtractionError describes why an archive could not be turned into an ExtractedTree.
type ExtractionError struct {
	Archive string
	// Err joins the errors of every strategy, or carries a root detection sentinel.
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Archive, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
