package governance

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	"github.com/oshokin/agkit/internal/domain/kit"
)

// RulesFile is the governance document placed in the rules subtree.
const RulesFile = "GEMINI.md"

// CheckScript is the bundled script that reports whether the rules are installed.
const CheckScript = "check_governance.py"

//go:embed assets
var assets embed.FS

// ErrEmptyBundle is returned for a bundle without any installation subtree.
var ErrEmptyBundle = errors.New("governance bundle has no rules or scripts")

// Bundle is a read-only tree laid out like an installation.
type Bundle struct {
	fsys   fs.FS
	origin string
}

// Embedded returns the bundle compiled into the binary.
func Embedded() *Bundle {
	sub, err := fs.Sub(assets, "assets")
	if err != nil {
		// The embed directive guarantees the directory exists.
		panic(err)
	}

	return &Bundle{fsys: sub, origin: "embedded"}
}

// FromDir returns a bundle backed by a directory on disk.
func FromDir(dir string) *Bundle {
	return &Bundle{fsys: os.DirFS(dir), origin: dir}
}

// Origin describes where the bundle comes from.
func (b *Bundle) Origin() string {
	return b.origin
}

// Subtrees returns the installation subtrees the bundle provides, in layout order.
func (b *Bundle) Subtrees() ([]string, error) {
	var found []string

	for _, name := range kit.Subtrees() {
		info, err := fs.Stat(b.fsys, name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			return nil, fmt.Errorf("inspect governance bundle: %w", err)
		}

		if info.IsDir() {
			found = append(found, name)
		}
	}

	if len(found) == 0 {
		return nil, fmt.Errorf("%s: %w", b.origin, ErrEmptyBundle)
	}

	return found, nil
}

// Rules returns the governance document, if the bundle has one.
func (b *Bundle) Rules() ([]byte, error) {
	return b.ReadFile(path.Join(kit.SubtreeRules, RulesFile))
}

// ReadFile returns a bundled file by its slash-separated path inside the installation.
func (b *Bundle) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(b.fsys, name)
}

// Materialize writes the bundle into dest, which must not exist yet.
func (b *Bundle) Materialize(dest string) error {
	if err := os.CopyFS(dest, b.fsys); err != nil {
		return fmt.Errorf("materialize governance bundle: %w", err)
	}

	return nil
}
