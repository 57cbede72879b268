package kit

// Mode selects where an installation lives.
type Mode string

const (
	// ModeGlobal installs into the user-wide kit directory.
	ModeGlobal Mode = "global"
	// ModeLocal installs into the current workspace.
	ModeLocal Mode = "local"
)

// Label returns the human-readable mode name used in summaries.
func (m Mode) Label() string {
	if m == ModeLocal {
		return "Local Workspace"
	}

	return "Global System"
}
