package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/bytedance/sonic"

	"github.com/devicelab-dev/droid-harness/pkg/core"
)

var _ core.BlobWriter = (*FileStore)(nil)

// FileStore writes artifacts below a root directory.
// Paths are slash-separated and may not escape the root.
type FileStore struct {
	root string
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir}
}

// Root returns the store's root directory.
func (s *FileStore) Root() string {
	return s.root
}

// Path resolves a store-relative path to a filesystem path.
func (s *FileStore) Path(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes %s", rel, s.root)
	}
	return filepath.Join(s.root, clean), nil
}

// EnsureDir creates rel and its parents.
func (s *FileStore) EnsureDir(rel string) error {
	path, err := s.Path(rel)
	if err != nil {
		return err
	}
	return ensureDir(path)
}

// WriteFile atomically replaces rel with data, creating parent directories.
func (s *FileStore) WriteFile(rel string, data []byte) error {
	path, err := s.Path(rel)
	if err != nil {
		return err
	}
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	return atomicWrite(path, data)
}

// WriteJSON encodes v with indentation and writes it to rel.
func (s *FileStore) WriteJSON(rel string, v interface{}) error {
	path, err := s.Path(rel)
	if err != nil {
		return err
	}
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	if err := atomicWriteJSON(path, v); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}

func ensureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// atomicWrite writes to a temp file in the same directory and renames it
// over path, so readers see either the old or the new content.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// atomicWriteJSON encodes v and writes it atomically to path.
func atomicWriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return atomicWrite(path, data)
}
