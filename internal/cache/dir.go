package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DirStore keeps entries under <root>/<owner>/<repo>/_cache.
type DirStore struct {
	root string
}

var _ Store = (*DirStore)(nil)

// NewDirStore returns a store rooted at the output directory.
func NewDirStore(root string) *DirStore {
	return &DirStore{root: root}
}

// Root returns the output directory the store writes under.
func (s *DirStore) Root() string {
	return s.root
}

// CacheDir returns the cache directory for one repository.
func (s *DirStore) CacheDir(owner, repo string) string {
	return filepath.Join(s.root, owner, repo, "_cache")
}

func (s *DirStore) path(key Key) string {
	return filepath.Join(s.CacheDir(key.Owner, key.Repo), key.Path())
}

func (s *DirStore) Exists(key Key) bool {
	info, err := os.Stat(s.path(key))
	return err == nil && !info.IsDir()
}

func (s *DirStore) Read(key Key) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("reading cache entry %s: %w", key, err)
	}
	return data, nil
}

// Write stores data for key, replacing any previous entry atomically.
func (s *DirStore) Write(key Key, data []byte) error {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	if err := atomicWrite(path, data); err != nil {
		return fmt.Errorf("writing cache entry %s: %w", key, err)
	}
	return nil
}

func atomicWrite(path string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
