package tokens

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/tokenkeeper/internal/filex"
)

// DefaultFileName is the token blob file inside the data directory.
const DefaultFileName = "session.bin"

// FileBackend keeps the blob in a single 0600 file, replaced atomically
// (write temp, fsync, rename).
type FileBackend struct {
	path string
}

func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{path: filepath.Join(dir, DefaultFileName)}
}

// Path returns the blob file location.
func (b *FileBackend) Path() string { return b.path }

func (b *FileBackend) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

func (b *FileBackend) Save(ctx context.Context, data []byte) error {
	if _, err := filex.EnsureDir(filepath.Dir(b.path)); err != nil {
		return err
	}
	return filex.WriteFileAtomic(b.path, data, 0o600)
}
