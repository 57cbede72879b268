package merger

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceNotFound is returned when the source directory does not exist.
	ErrSourceNotFound = errors.New("merge source not found")
	// ErrNotDirectory is returned when the source path is not a directory.
	ErrNotDirectory = errors.New("merge source is not a directory")
	// ErrDepthExceeded is recorded for directories nested deeper than the limit.
	ErrDepthExceeded = errors.New("directory nesting too deep")
	// errDestinationIsDirectory is recorded when a file would replace a directory.
	errDestinationIsDirectory = errors.New("destination is a directory")
)

// FileError describes a single entry that could not be merged.
type FileError struct {
	// Path is relative to the merge source.
	Path string
	Op   string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
