package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/oshokin/agkit/internal/logger"
)

// workspacePrefix starts the name of every temporary workspace.
const workspacePrefix = "agkit-"

//nolint:gochecknoglobals // Keeps workspace names unique within one process.
var workspaceSeq atomic.Uint64

// workspaceName builds "agkit-<unixnano>-<pid>-<seq>".
func workspaceName(unixNano int64, pid int, seq uint64) string {
	return fmt.Sprintf("%s%d-%d-%d", workspacePrefix, unixNano, pid, seq)
}

// workspacePID extracts the owning process id from a workspace name.
func workspacePID(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, workspacePrefix)
	if !ok {
		return 0, false
	}

	parts := strings.Split(rest, "-")
	if len(parts) != 3 {
		return 0, false
	}

	pid, err := strconv.Atoi(parts[1])
	if err != nil || pid <= 0 {
		return 0, false
	}

	return pid, true
}

// sweepStaleWorkspaces removes workspaces whose owning process is gone.
func (p *Provisioner) sweepStaleWorkspaces(ctx context.Context) int {
	entries, err := os.ReadDir(p.tempRoot)
	if err != nil {
		logger.DebugKV(ctx, "Unable to list temporary directory", "path", p.tempRoot, "error", err)

		return 0
	}

	processes, err := p.processes()
	if err != nil {
		logger.DebugKV(ctx, "Unable to list processes, skipping workspace sweep", "error", err)

		return 0
	}

	alive := make(map[int]struct{}, len(processes))
	for _, process := range processes {
		alive[process.Pid()] = struct{}{}
	}

	self := os.Getpid()
	removed := 0

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pid, ok := workspacePID(entry.Name())
		if !ok || pid == self {
			continue
		}

		if _, running := alive[pid]; running {
			continue
		}

		path := filepath.Join(p.tempRoot, entry.Name())
		if err = os.RemoveAll(path); err != nil {
			logger.WarnKV(ctx, "Unable to remove stale workspace", "path", path, "error", err)

			continue
		}

		logger.InfoKV(ctx, "Removed stale workspace", "path", path, "pid", pid)
		removed++
	}

	return removed
}

// allocateWorkspace creates a fresh, private workspace directory.
func (p *Provisioner) allocateWorkspace(ctx context.Context) (string, error) {
	dir := filepath.Join(p.tempRoot, workspaceName(p.now().UnixNano(), os.Getpid(), workspaceSeq.Add(1)))

	if _, err := os.Lstat(dir); err == nil {
		logger.WarnKV(ctx, "Workspace path already exists, removing it", "path", dir)

		if err = os.RemoveAll(dir); err != nil {
			return "", &FilesystemError{Op: "clear workspace", Path: dir, Err: err}
		}
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", &FilesystemError{Op: "create workspace", Path: dir, Err: err}
	}

	logger.DebugKV(ctx, "Workspace allocated", "path", dir)

	return dir, nil
}

// removeTree deletes a directory tree and only logs failures.
func removeTree(ctx context.Context, dir string) {
	if dir == "" {
		return
	}

	if err := os.RemoveAll(dir); err != nil {
		logger.WarnKV(ctx, "Unable to remove directory", "path", dir, "error", err)

		return
	}

	logger.DebugKV(ctx, "Directory removed", "path", dir)
}
