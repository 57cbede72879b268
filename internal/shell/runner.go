package shell

//go:generate mockgen -source=runner.go -destination=mocks/runner_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// ErrEmptyCommand is returned when a Command has no program name.
var ErrEmptyCommand = errors.New("empty command")

// Command describes one program invocation.
type Command struct {
	// Name is the program to run, looked up in PATH.
	Name string
	// Args are passed to the program unchanged.
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Stdout and Stderr receive the program output; nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// New builds a Command from an argv slice.
func New(argv ...string) Command {
	if len(argv) == 0 {
		return Command{}
	}

	return Command{Name: argv[0], Args: argv[1:]}
}

// String renders the command line for messages and logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes commands and waits for them to finish.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run starts the command and waits for it. A non-zero exit is returned as *exec.ExitError.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	if cmd.Name == "" {
		return ErrEmptyCommand
	}

	//nolint:gosec // Commands come from configuration and fixed collaborator lists.
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdout = cmd.Stdout
	c.Stderr = cmd.Stderr

	if err := c.Run(); err != nil {
		return fmt.Errorf("%s: %w", cmd.Name, err)
	}

	return nil
}

// IsNotFound reports whether err means the program could not be started at all.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}
