package receipt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/agkit/internal/config"
	"github.com/oshokin/agkit/internal/domain/kit"
)

// Filename is the receipt name inside an installation directory.
const Filename = ".agkit-receipt.yaml"

// Repository defines persistence operations for an installation receipt.
type Repository interface {
	Load(ctx context.Context) (*kit.Receipt, error)
	Save(ctx context.Context, receipt *kit.Receipt) error
}

// FileRepository persists the receipt to a YAML file on disk.
type FileRepository struct {
	// path is the filesystem location of the receipt file.
	path string
	// mu protects concurrent access to the receipt file.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when the installation has no receipt yet.
	ErrNotFound = errors.New("receipt not found")
	// errNilReceipt is returned when saving nothing.
	errNilReceipt = errors.New("receipt is not set")
)

// NewFileRepository creates a repository for the receipt of installDir.
func NewFileRepository(installDir string) *FileRepository {
	return &FileRepository{
		path: filepath.Join(filepath.Clean(installDir), Filename),
	}
}

// Path returns the receipt file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the receipt from disk.
func (r *FileRepository) Load(_ context.Context) (*kit.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read receipt file: %w", err)
	}

	var receipt kit.Receipt
	if err = yaml.Unmarshal(contents, &receipt); err != nil {
		return nil, fmt.Errorf("decode receipt file: %w", err)
	}

	return &receipt, nil
}

// Save writes the receipt to disk, replacing the previous one.
func (r *FileRepository) Save(_ context.Context, receipt *kit.Receipt) error {
	if receipt == nil {
		return errNilReceipt
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create installation directory: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write receipt file: %w", err)
	}

	return nil
}
