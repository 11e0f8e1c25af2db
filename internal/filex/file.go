// Package filex inspects local files for upload and prepares download targets.
package filex

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// Info describes a local file about to be uploaded.
type Info struct {
	Path     string
	Size     int64
	MimeType string
}

// Inspect stats path and sniffs its content type. Directories are rejected.
func Inspect(path string) (*Info, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detect type of %s: %w", path, err)
	}

	return &Info{Path: path, Size: fi.Size(), MimeType: mt.String()}, nil
}

// CreateFile creates (or truncates) path, making missing parent directories.
func CreateFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}
