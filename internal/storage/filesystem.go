package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileSystem writes exported images into a single directory.
type FileSystem struct {
	baseDir string
}

// NewFileSystem creates the export directory if needed (like mkdir -p).
func NewFileSystem(baseDir string) (*FileSystem, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}
	return &FileSystem{baseDir: baseDir}, nil
}

// Path returns where a file with this name lives. Only the base name is used,
// so a crafted name can't escape the directory.
func (fs *FileSystem) Path(name string) string {
	return filepath.Join(fs.baseDir, filepath.Base(name))
}

// Save writes data under name and returns the full path.
func (fs *FileSystem) Save(name string, data []byte) (string, error) {
	path := fs.Path(name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing export file: %w", err)
	}
	return path, nil
}

// Exists checks whether a file with this name has been exported.
func (fs *FileSystem) Exists(name string) bool {
	_, err := os.Stat(fs.Path(name))
	return err == nil
}
