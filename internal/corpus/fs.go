package corpus

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"lasso.dev/pkg/lasso/internal/model"
)

// ErrNoModule is returned when no go.mod encloses a path.
var ErrNoModule = errors.New("go.mod not found")

// SourceFS hides the disk from the pools so they can be tested in memory.
type SourceFS interface {
	// ReadFile loads a file.
	ReadFile(path model.Path) ([]byte, error)

	// HashFile returns the hex SHA-256 of a file.
	HashFile(path model.Path) (string, error)

	// FindModuleRoot walks up from start to the directory holding go.mod.
	FindModuleRoot(start model.Path) (model.Path, error)
}

// LocalFS reads the local file system.
type LocalFS struct{}

// NewLocalFS returns a LocalFS.
func NewLocalFS() *LocalFS {
	return &LocalFS{}
}

// ReadFile implements SourceFS.
func (LocalFS) ReadFile(path model.Path) ([]byte, error) {
	return os.ReadFile(string(path))
}

// HashFile implements SourceFS.
func (LocalFS) HashFile(path model.Path) (string, error) {
	f, err := os.Open(string(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// FindModuleRoot implements SourceFS. start may be a file or a directory.
func (LocalFS) FindModuleRoot(start model.Path) (model.Path, error) {
	dir := string(start)

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return model.Path(dir), nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w in any parent directory of %s", ErrNoModule, start)
		}

		dir = parent
	}
}
