// Package store keeps captured images as flat files in one directory.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cjeanneret/espcam/internal/debug"
)

var (
	// ErrStorage reports a failed filesystem operation. After a failed
	// Save the previous content of the file is unspecified.
	ErrStorage = errors.New("storage error")
	// ErrNotFound reports that the named image does not exist.
	ErrNotFound = errors.New("image not found")
)

// ImageFile describes one stored image.
type ImageFile struct {
	Name string
	Size int64
}

// Store reads and writes images under a single root directory.
// It is not safe for concurrent use; the request server never overlaps calls.
type Store struct {
	root string
}

// New returns a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrStorage, dir, err)
	}
	return &Store{root: dir}, nil
}

// Root returns the directory holding the images.
func (s *Store) Root() string {
	return s.root
}

// Save creates or replaces name with buf. The bytes are written to a
// temporary file in the same directory and renamed over the target.
func (s *Store) Save(name string, buf []byte) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.root, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: save %s: %w", ErrStorage, name, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("%w: write %s: %w", ErrStorage, name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: write %s: %w", ErrStorage, name, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("%w: chmod %s: %w", ErrStorage, name, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("%w: replace %s: %w", ErrStorage, name, err)
	}

	debug.Verbose("Store: saved %s (%d bytes)", name, len(buf))
	return nil
}

// Load returns the content of name.
func (s *Store) Load(name string) ([]byte, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("%w: read %s: %w", ErrStorage, name, err)
	}
	return data, nil
}

// List returns the regular files of the root directory whose name ends
// with ext, sorted by name. Subdirectories are not visited.
func (s *Store) List(ext string) ([]ImageFile, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrStorage, s.root, err)
	}

	var files []ImageFile
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !strings.HasSuffix(name, ext) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info
			continue
		}
		files = append(files, ImageFile{Name: name, Size: info.Size()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (s *Store) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: invalid image name %q", ErrStorage, name)
	}
	return filepath.Join(s.root, name), nil
}
