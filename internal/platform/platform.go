// Package platform holds the few decisions that depend on the operating system:
// which python to run, which linker script to start and whether the
// PowerShell archive fallback exists.
package platform

import (
	"path/filepath"
	"runtime"
	"strings"

	"github.com/oshokin/agkit/internal/shell"
)

const (
	// LinkerScriptPowerShell is the linker script used on Windows.
	LinkerScriptPowerShell = "workspace_linker.ps1"
	// LinkerScriptPython is the linker script used elsewhere.
	LinkerScriptPython = "workspace_linker.py"
)

// Current returns the operating system the binary runs on.
func Current() string {
	return runtime.GOOS
}

// IsWindows reports whether goos belongs to the Windows family.
func IsWindows(goos string) bool {
	return strings.Contains(strings.ToLower(goos), "windows")
}

// Python returns the interpreter name used for finalizer scripts.
func Python(goos string) string {
	if IsWindows(goos) {
		return "python"
	}

	return "python3"
}

// PythonScript builds the command running a python script.
func PythonScript(goos, script string) shell.Command {
	return shell.New(Python(goos), script)
}

// LinkerScript returns the path of the linker script inside a scripts directory.
func LinkerScript(goos, scriptsDir string) string {
	if IsWindows(goos) {
		return filepath.Join(scriptsDir, LinkerScriptPowerShell)
	}

	return filepath.Join(scriptsDir, LinkerScriptPython)
}

// LinkerCommands returns the commands to try, in order, for running the linker script.
// On Windows PowerShell 7 is preferred and Windows PowerShell is the fallback
// when pwsh is not installed.
func LinkerCommands(goos, script string) []shell.Command {
	if IsWindows(goos) {
		return []shell.Command{
			shell.New("pwsh", "-ExecutionPolicy", "Bypass", "-File", script),
			shell.New("powershell", "-ExecutionPolicy", "Bypass", "-File", script),
		}
	}

	return []shell.Command{PythonScript(goos, script)}
}

// ExpandArchiveCommand extracts a zip archive with the PowerShell Expand-Archive cmdlet.
func ExpandArchiveCommand(archivePath, destDir string) shell.Command {
	script := "Expand-Archive -LiteralPath " + quotePowerShell(archivePath) +
		" -DestinationPath " + quotePowerShell(destDir) + " -Force"

	return shell.New("powershell", "-NoProfile", "-NonInteractive", "-Command", script)
}

// quotePowerShell wraps s in single quotes, doubling embedded quotes.
func quotePowerShell(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
