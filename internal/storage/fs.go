package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the specs directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
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
	return &FS{root: abs}, nil
}

// Root returns the absolute specs directory.
func (f *FS) Root() string {
	return f.root
}

// safePath resolves a relative path against the root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes specs root: %s", rel)
	}
	return abs, nil
}

// Exists reports whether path exists under the root.
func (f *FS) Exists(path string) bool {
	abs, err := f.safePath(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

// ListDirs returns the sorted names of the immediate subdirectories of dir.
// Symlinks to directories are followed.
func (f *FS) ListDirs(dir string) ([]string, error) {
	return f.list(dir, func(abs string, e os.DirEntry) bool {
		if e.IsDir() {
			return true
		}
		if e.Type()&os.ModeSymlink == 0 {
			return false
		}
		info, err := os.Stat(filepath.Join(abs, e.Name()))
		return err == nil && info.IsDir()
	})
}

// ListFiles returns the sorted names of regular files in dir ending in suffix.
func (f *FS) ListFiles(dir, suffix string) ([]string, error) {
	return f.list(dir, func(_ string, e os.DirEntry) bool {
		return e.Type().IsRegular() && strings.HasSuffix(e.Name(), suffix)
	})
}

func (f *FS) list(dir string, keep func(abs string, e os.DirEntry) bool) ([]string, error) {
	abs, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if keep(abs, e) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// Read returns the raw bytes of a file under the root.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename.
// An existing file keeps its permission bits.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".specdesk-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(abs); statErr == nil {
		mode = info.Mode().Perm()
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("storage: chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Move renames a file or directory within the root. The destination must
// not exist.
func (f *FS) Move(oldPath, newPath string) error {
	absOld, err := f.safePath(oldPath)
	if err != nil {
		return err
	}
	absNew, err := f.safePath(newPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(absNew); err == nil {
		return fmt.Errorf("storage: move: destination exists: %s", newPath)
	}
	if err := os.MkdirAll(filepath.Dir(absNew), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir for move: %w", err)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return fmt.Errorf("storage: move: %w", err)
	}
	return nil
}
