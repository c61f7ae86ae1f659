package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/medlog/internal/apperr"
)

// File implements Provider with one JSON file per key in a data directory.
type File struct {
	root string // absolute path to the data directory
}

// NewFile creates a file-backed provider rooted at the given directory.
// The directory must already exist.
func NewFile(root string) (*File, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &File{root: abs}, nil
}

// Root returns the data directory the provider writes into.
func (f *File) Root() string { return f.root }

// FilePath returns the on-disk path backing a key. The watcher uses it to
// map fsnotify events back to collection keys.
func (f *File) FilePath(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("storage: invalid key: %q", key)
	}
	return filepath.Join(f.root, key+".json"), nil
}

// KeyForPath is the inverse of FilePath; ok is false for unrelated files.
func (f *File) KeyForPath(path string) (string, bool) {
	name := filepath.Base(path)
	if !strings.HasPrefix(name, keyPrefix) || !strings.HasSuffix(name, ".json") {
		return "", false
	}
	return strings.TrimSuffix(name, ".json"), true
}

// Get reads the value stored at key.
func (f *File) Get(key string) ([]byte, error) {
	path, err := f.FilePath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("storage: read %s: %w", key, err)
	}
	return data, nil
}

// Put atomically writes value: tmp file → fsync → rename.
func (f *File) Put(key string, value []byte) error {
	path, err := f.FilePath(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, ".medlog-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(value); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Delete removes the file backing key.
func (f *File) Delete(key string) error {
	path, err := f.FilePath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

// Close is a no-op for the file provider.
func (f *File) Close() error { return nil }
