package provision

import (
	"errors"
	"fmt"

	"github.com/oshokin/agkit/internal/domain/kit"
)

var (
	// ErrSourceLayout is returned when an archive contains none of the mapped directories.
	ErrSourceLayout = errors.New("archive contains none of the mapped directories")
	// ErrGlobalKitMissing is returned by Link when nothing was installed globally yet.
	ErrGlobalKitMissing = errors.New("global kit is not installed, run 'agkit init' first")
	// errInvalidTransition signals a bug in the stage sequencing.
	errInvalidTransition = errors.New("invalid stage transition")
	// errConfigIsNotSet is returned when New gets no configuration.
	errConfigIsNotSet = errors.New("configuration is not set")
)

// RunError is returned by a failed run and names the stage it failed in.
type RunError struct {
	Stage kit.Stage
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("provisioning failed while %s: %v", e.Stage, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// FilesystemError describes a workspace or installation directory that could not be prepared.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}
