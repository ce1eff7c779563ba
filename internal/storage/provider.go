// Package storage defines the specs-root file-system abstraction.
package storage

// Provider is the interface for file operations under a specs root.
// Every path is relative to the root.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// Exists reports whether path exists.
	Exists(path string) bool
	// ListDirs returns the names of the immediate subdirectories of dir, sorted.
	ListDirs(dir string) ([]string, error)
	// ListFiles returns the names of regular files in dir with the given suffix, sorted.
	ListFiles(dir, suffix string) ([]string, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
}
