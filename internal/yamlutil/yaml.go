// Package yamlutil wraps goccy/go-yaml for config files and invoice
// documents. JSON documents are decoded by the same parser, since JSON is
// valid YAML.
package yamlutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// MaxInputSize limits decoded input (default 1MB).
var MaxInputSize = 1 << 20

var (
	ErrNilData             = errors.New("yamlutil: nil or empty data")
	ErrNilDestination      = errors.New("yamlutil: nil destination pointer")
	ErrInputTooLarge       = errors.New("yamlutil: input exceeds maximum size")
	ErrUnsupportedDocument = errors.New("yamlutil: unsupported document extension")
)

// DocumentExtensions lists the file extensions DecodeFile accepts.
var DocumentExtensions = []string{".yaml", ".yml", ".json"}

func validateInput(data []byte, v any) error {
	if len(data) == 0 {
		return ErrNilData
	}
	if len(data) > MaxInputSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), MaxInputSize)
	}
	if v == nil {
		return ErrNilDestination
	}
	return nil
}

func Unmarshal(data []byte, v any) error {
	if err := validateInput(data, v); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("yamlutil: %w", err)
	}
	return nil
}

func Marshal(v any) ([]byte, error) {
	result, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("yamlutil: %w", err)
	}
	return result, nil
}

// UnmarshalStrict rejects unknown fields in the input.
func UnmarshalStrict(data []byte, v any) error {
	if err := validateInput(data, v); err != nil {
		return err
	}
	if err := yaml.UnmarshalWithOptions(data, v, yaml.Strict()); err != nil {
		return fmt.Errorf("yamlutil: %w", err)
	}
	return nil
}

// IsDocument reports whether path has a YAML or JSON extension.
func IsDocument(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range DocumentExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// DecodeFile reads a .yaml, .yml or .json file strictly into v.
func DecodeFile(path string, v any) error {
	if !IsDocument(path) {
		return fmt.Errorf("%w: %q", ErrUnsupportedDocument, filepath.Ext(path))
	}
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided path
	if err != nil {
		return fmt.Errorf("yamlutil: %w", err)
	}
	return UnmarshalStrict(data, v)
}
