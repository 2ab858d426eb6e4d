package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alnah/go-invoicepdf/internal/fileutil"
)

// File permission constants.
const (
	dirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	filePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// Local writes PDFs into a directory.
type Local struct {
	dir string
}

// NewLocal creates a Local backend rooted at dir, creating it if needed.
// An empty dir means the current working directory.
func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDir, err)
	}
	if err := os.MkdirAll(abs, dirPermissions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDir, err)
	}
	return &Local{dir: abs}, nil
}

// Dir returns the absolute output directory.
func (l *Local) Dir() string {
	return l.dir
}

// Save writes data to dir/filename and returns the file path.
func (l *Local) Save(ctx context.Context, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := fileutil.ValidateFilename(filename); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWrite, err)
	}

	path := filepath.Join(l.dir, filename)
	// #nosec G306 -- PDFs are meant to be readable
	if err := os.WriteFile(path, data, filePermissions); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return path, nil
}
