package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestConsoleWritesMessages checks that every message kind reaches the writer.
func TestConsoleWritesMessages(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	var r Reporter = NewConsole(&buf)

	r.Header("agkit")
	r.Section("Fetching sources")
	r.Step("Downloading %s", "core")
	r.Success("Merged %d files", 12)
	r.Warn("Run %q manually", "python3 generate_index.py")
	r.Fail("Fatal error during setup: %v", "boom")
	r.Summary("SETUP COMPLETE", []Row{{Key: "Mode", Value: "Local Workspace"}})

	out := buf.String()
	for _, want := range []string{
		"agkit", "Fetching sources", "[>] Downloading core", "[+] Merged 12 files",
		`[!] Run "python3 generate_index.py" manually`, "[x] Fatal error during setup: boom",
		"SETUP COMPLETE", "Mode:", "Local Workspace",
	} {
		require.Contains(t, out, want)
	}
}

// TestDiscard never panics and writes nothing observable.
func TestDiscard(t *testing.T) {
	t.Parallel()

	Discard().Summary("x", []Row{{Key: "k", Value: "v"}})
}
