// Package storage persists finished PDFs to a local directory or an
// S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for storage operations.
var (
	ErrInvalidDir    = errors.New("invalid output directory")
	ErrWrite         = errors.New("failed to write PDF")
	ErrUpload        = errors.New("failed to upload PDF")
	ErrS3Config      = errors.New("invalid S3 configuration")
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// Driver names accepted by New.
const (
	DriverLocal = "local"
	DriverS3    = "s3"
)

// ContentType is the MIME type written with every object.
const ContentType = "application/pdf"

// Saver is implemented by every storage backend.
type Saver interface {
	Save(ctx context.Context, filename string, data []byte) (string, error)
}

// Config selects and configures a backend.
type Config struct {
	Driver string // "local" (default) or "s3"
	Dir    string // local output directory
	S3     S3Config
}

// New builds the backend named by cfg.Driver.
func New(ctx context.Context, cfg Config) (Saver, error) {
	switch cfg.Driver {
	case "", DriverLocal:
		l, err := NewLocal(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return l, nil
	case DriverS3:
		s, err := NewS3(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// Compile-time interface checks.
var (
	_ Saver = (*Local)(nil)
	_ Saver = (*S3)(nil)
)
