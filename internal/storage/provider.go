// Package storage defines the repository file-system abstraction.
package storage

// Provider is the interface for repository file operations. All paths are
// relative to the provider root.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Exists reports whether a regular file exists at path.
	Exists(path string) bool
	// Mkdir creates dir and any missing parents.
	Mkdir(dir string) error
	// Dirs returns the names of the immediate subdirectories of dir that contain marker.
	Dirs(dir, marker string) ([]string, error)
}
