package provision

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/agkit/internal/config"
)

// TestWorkspaceName checks that the owning pid can be read back.
func TestWorkspaceName(t *testing.T) {
	t.Parallel()

	name := workspaceName(1700000000000000000, 4242, 7)
	require.Equal(t, "agkit-1700000000000000000-4242-7", name)

	pid, ok := workspacePID(name)
	require.True(t, ok)
	require.Equal(t, 4242, pid)

	for _, bad := range []string{"agkit-", "agkit-1-2", "agkit-1-x-3", "other-1-2-3", "agkit-1-0-3"} {
		_, ok = workspacePID(bad)
		require.False(t, ok, bad)
	}
}

// TestSweepStaleWorkspaces removes workspaces of dead processes only.
func TestSweepStaleWorkspaces(t *testing.T) {
	t.Parallel()

	tempRoot := t.TempDir()

	dead := filepath.Join(tempRoot, workspaceName(1, 999999, 1))
	alive := filepath.Join(tempRoot, workspaceName(2, 31337, 1))
	own := filepath.Join(tempRoot, workspaceName(3, os.Getpid(), 1))
	unrelated := filepath.Join(tempRoot, "go-build-123")

	for _, dir := range []string{dead, alive, own, unrelated} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "downloads"), 0o755))
	}

	p, err := New(config.Default(),
		WithTempRoot(tempRoot),
		WithProcessLister(func() ([]ps.Process, error) {
			return []ps.Process{fakeProcess{pid: 31337}}, nil
		}),
	)
	require.NoError(t, err)

	require.Equal(t, 1, p.sweepStaleWorkspaces(context.Background()))
	require.NoDirExists(t, dead)
	require.DirExists(t, alive)
	require.DirExists(t, own)
	require.DirExists(t, unrelated)

	// Without a process list nothing is removed.
	p.processes = func() ([]ps.Process, error) { return nil, errors.New("denied") }
	require.Zero(t, p.sweepStaleWorkspaces(context.Background()))
	require.DirExists(t, alive)
}

// TestAllocateWorkspace creates unique private directories.
func TestAllocateWorkspace(t *testing.T) {
	t.Parallel()

	tempRoot := t.TempDir()
	fixed := time.Unix(0, 42)

	p, err := New(config.Default(), WithTempRoot(tempRoot), WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	first, err := p.allocateWorkspace(context.Background())
	require.NoError(t, err)

	second, err := p.allocateWorkspace(context.Background())
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.DirExists(t, first)
	require.DirExists(t, second)

	removeTree(context.Background(), first)
	require.NoDirExists(t, first)
}
