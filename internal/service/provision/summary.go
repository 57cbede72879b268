package provision

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oshokin/agkit/internal/domain/kit"
	"github.com/oshokin/agkit/internal/ui"
)

// Summary describes a completed run.
type Summary struct {
	Command    string
	Mode       kit.Mode
	InstallDir string
	Sources    []kit.ReceiptSource
	Merged     int
	Failed     int
	Warnings   int
	Elapsed    time.Duration
}

// Rows renders the summary for a reporter.
func (s *Summary) Rows() []ui.Row {
	return []ui.Row{
		{Key: "Mode", Value: s.Mode.Label()},
		{Key: "Target", Value: s.InstallDir},
		{Key: "Sources", Value: sourceList(s.Sources)},
		{Key: "Files", Value: fmt.Sprintf("%d merged, %d failed", s.Merged, s.Failed)},
		{Key: "Warnings", Value: strconv.Itoa(s.Warnings)},
		{Key: "Elapsed", Value: s.Elapsed.Round(time.Millisecond).String()},
	}
}

// ReceiptRows renders a stored receipt for the status command.
func ReceiptRows(r *kit.Receipt, installDir string) []ui.Row {
	return []ui.Row{
		{Key: "Mode", Value: r.Mode.Label()},
		{Key: "Target", Value: installDir},
		{Key: "Version", Value: r.ToolVersion},
		{Key: "Installed", Value: r.InstalledAt.Local().Format(time.RFC1123)},
		{Key: "Sources", Value: sourceList(r.Sources)},
		{Key: "Files", Value: fmt.Sprintf("%d merged, %d failed", r.MergedFiles, r.FailedFiles)},
	}
}

func sourceList(sources []kit.ReceiptSource) string {
	if len(sources) == 0 {
		return "none"
	}

	names := make([]string, 0, len(sources))

	for _, src := range sources {
		if src.Skipped {
			names = append(names, src.Name+" (skipped)")

			continue
		}

		names = append(names, src.Name)
	}

	return strings.Join(names, ", ")
}
