package favourites

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"

	"github.com/spf13/afero"
)

// Storage is a minimal persistent key-value store.
type Storage interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

var ErrKeyNotFound = errors.New("key not found")

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// FileStorage keeps each key in its own file under dir.
type FileStorage struct {
	fs  afero.Fs
	dir string
}

func NewFileStorage(fsys afero.Fs, dir string) (*FileStorage, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStorage{fs: fsys, dir: dir}, nil
}

func (s *FileStorage) Get(key string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrKeyNotFound
	}
	return data, err
}

// Set writes through a temp file so a crash never leaves half a value.
func (s *FileStorage) Set(key string, value []byte) error {
	target := s.path(key)
	tmp := target + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, value, 0o644); err != nil {
		return err
	}
	return s.fs.Rename(tmp, target)
}

func (s *FileStorage) path(key string) string {
	return filepath.Join(s.dir, unsafeKeyChars.ReplaceAllString(key, "_")+".json")
}
