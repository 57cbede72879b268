package governance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/agkit/internal/domain/kit"
)

// TestEmbeddedBundle ships the rules document and the check script.
func TestEmbeddedBundle(t *testing.T) {
	t.Parallel()

	b := Embedded()
	require.Equal(t, "embedded", b.Origin())

	subtrees, err := b.Subtrees()
	require.NoError(t, err)
	require.Equal(t, []string{kit.SubtreeScripts, kit.SubtreeRules}, subtrees)

	rules, err := b.Rules()
	require.NoError(t, err)
	require.Contains(t, string(rules), "Governance")

	script, err := b.ReadFile(kit.SubtreeScripts + "/" + CheckScript)
	require.NoError(t, err)
	require.Contains(t, string(script), "GEMINI.md")

	dest := filepath.Join(t.TempDir(), "governance")
	require.NoError(t, b.Materialize(dest))
	require.FileExists(t, filepath.Join(dest, kit.SubtreeRules, RulesFile))
	require.FileExists(t, filepath.Join(dest, kit.SubtreeScripts, CheckScript))
}

// TestDirBundle reads a custom overlay and ignores unknown top-level folders.
func TestDirBundle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "scripts"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "notes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scripts", "check.py"), []byte("print(1)"), 0o600))

	b := FromDir(dir)

	subtrees, err := b.Subtrees()
	require.NoError(t, err)
	require.Equal(t, []string{kit.SubtreeScripts}, subtrees)

	_, err = b.Rules()
	require.Error(t, err)

	_, err = FromDir(t.TempDir()).Subtrees()
	require.ErrorIs(t, err, ErrEmptyBundle)
}
