package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/oshokin/agkit/internal/platform"
	"github.com/oshokin/agkit/internal/shell"
)

// PowerShellStrategy extracts zip archives with the Expand-Archive cmdlet.
type PowerShellStrategy struct {
	runner shell.Runner
}

// NewPowerShellStrategy creates a strategy running PowerShell through runner.
func NewPowerShellStrategy(runner shell.Runner) *PowerShellStrategy {
	return &PowerShellStrategy{runner: runner}
}

// Name implements Strategy.
func (*PowerShellStrategy) Name() string {
	return "powershell"
}

// Extract implements Strategy.
func (s *PowerShellStrategy) Extract(ctx context.Context, archivePath, destDir string) error {
	var stderr bytes.Buffer

	cmd := platform.ExpandArchiveCommand(archivePath, destDir)
	cmd.Stderr = &stderr

	if err := s.runner.Run(ctx, cmd); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}

		return err
	}

	return nil
}
