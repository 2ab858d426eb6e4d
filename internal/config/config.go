// Package config loads go-invoicepdf configuration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-invoicepdf/internal/storage"
	"github.com/alnah/go-invoicepdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxPathLength     = 4096
	MaxNameLength     = 64   // style, template set, target id
	MaxURLLength      = 2048 // browser limit
	MaxFilenameLength = 255
	MaxCreatorLength  = 100
	MaxAddrLength     = 256
	MaxDurationLength = 20
)

// MaxScale bounds the capture oversampling factor.
const MaxScale = 4

// searchDirName is the directory under os.UserConfigDir searched for config
// names.
const searchDirName = "go-invoicepdf"

// Config holds all configuration for the CLI and the HTTP service.
type Config struct {
	Page    PageConfig    `yaml:"page"`
	Export  ExportConfig  `yaml:"export"`
	Assets  AssetsConfig  `yaml:"assets"`
	Output  OutputConfig  `yaml:"output"`
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
	Guest   GuestConfig   `yaml:"guest"`
	Log     LogConfig     `yaml:"log"`
}

// PageConfig defines PDF page settings.
type PageConfig struct {
	Size string `yaml:"size"` // "a4", "letter", "legal" (default: "a4")
}

// ExportConfig defines capture settings.
type ExportConfig struct {
	TargetID     string  `yaml:"targetId"`     // element id to capture (default: "invoice-preview")
	Timeout      string  `yaml:"timeout"`      // per export (default: "30s")
	ImageTimeout string  `yaml:"imageTimeout"` // wait for images (default: "10s", "0s" = export timeout)
	Scale        float64 `yaml:"scale"`        // device pixels per CSS pixel (default: 2)
	Verify       bool    `yaml:"verify"`       // re-read PDFs and check page count
	Workers      int     `yaml:"workers"`      // parallel browsers, 0 = auto
}

// AssetsConfig defines style and template loading.
type AssetsConfig struct {
	BasePath    string `yaml:"basePath"`    // empty = embedded assets only
	Style       string `yaml:"style"`       // default: "default"
	TemplateSet string `yaml:"templateSet"` // default: "default"
}

// OutputConfig defines download naming.
type OutputConfig struct {
	Dir      string `yaml:"dir"`      // local storage directory (default: ".")
	Filename string `yaml:"filename"` // default download name for HTML exports
	Creator  string `yaml:"creator"`  // PDF Creator metadata
}

// StorageConfig selects where downloads are written.
type StorageConfig struct {
	Driver string           `yaml:"driver"` // "local" (default) or "s3"
	S3     storage.S3Config `yaml:"s3"`
}

// ServerConfig defines the HTTP service.
type ServerConfig struct {
	Addr         string `yaml:"addr"`         // default: ":8080"
	PublicURL    string `yaml:"publicUrl"`    // base of preview URLs (default: derived from addr)
	PreviewTTL   string `yaml:"previewTTL"`   // default: "15m"
	MaxPreviews  int    `yaml:"maxPreviews"`  // default: 100
	MaxBodyBytes int64  `yaml:"maxBodyBytes"` // request size limit (default: 8MB)
}

// GuestConfig defines the anonymous allowance.
type GuestConfig struct {
	Limit      int    `yaml:"limit"`      // free invoices per window (default: 1, 0 = none)
	Window     string `yaml:"window"`     // default: "24h"
	MaxClients int    `yaml:"maxClients"` // tracked clients before eviction (default: 10000)
}

// LogConfig defines diagnostics output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: info)
	Format string `yaml:"format"` // text, json (default: text)
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Page: PageConfig{Size: "a4"},
		Export: ExportConfig{
			TargetID:     "invoice-preview",
			Timeout:      "30s",
			ImageTimeout: "10s",
			Scale:        2,
		},
		Assets:  AssetsConfig{Style: "default", TemplateSet: "default"},
		Output:  OutputConfig{Dir: ".", Filename: "invoice.pdf", Creator: "go-invoicepdf"},
		Storage: StorageConfig{Driver: storage.DriverLocal},
		Server: ServerConfig{
			Addr:         ":8080",
			PreviewTTL:   "15m",
			MaxPreviews:  100,
			MaxBodyBytes: 8 << 20,
		},
		Guest: GuestConfig{Limit: 1, Window: "24h", MaxClients: 10000},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

// Validate checks field lengths, enumerations and durations.
func (c *Config) Validate() error {
	lengths := []struct {
		field string
		value string
		max   int
	}{
		{"page.size", c.Page.Size, MaxNameLength},
		{"export.targetId", c.Export.TargetID, MaxNameLength},
		{"export.timeout", c.Export.Timeout, MaxDurationLength},
		{"export.imageTimeout", c.Export.ImageTimeout, MaxDurationLength},
		{"assets.basePath", c.Assets.BasePath, MaxPathLength},
		{"assets.style", c.Assets.Style, MaxNameLength},
		{"assets.templateSet", c.Assets.TemplateSet, MaxNameLength},
		{"output.dir", c.Output.Dir, MaxPathLength},
		{"output.filename", c.Output.Filename, MaxFilenameLength},
		{"output.creator", c.Output.Creator, MaxCreatorLength},
		{"storage.s3.endpoint", c.Storage.S3.Endpoint, MaxURLLength},
		{"storage.s3.publicUrl", c.Storage.S3.PublicURL, MaxURLLength},
		{"server.addr", c.Server.Addr, MaxAddrLength},
		{"server.publicUrl", c.Server.PublicURL, MaxURLLength},
		{"server.previewTTL", c.Server.PreviewTTL, MaxDurationLength},
		{"guest.window", c.Guest.Window, MaxDurationLength},
	}
	for _, f := range lengths {
		if err := validateFieldLength(f.field, f.value, f.max); err != nil {
			return err
		}
	}

	switch strings.ToLower(c.Page.Size) {
	case "", "a4", "letter", "legal":
	default:
		return fmt.Errorf("%w: page.size %q (must be a4, letter, or legal)", ErrInvalidValue, c.Page.Size)
	}

	durations := []struct {
		field string
		value string
	}{
		{"export.timeout", c.Export.Timeout},
		{"export.imageTimeout", c.Export.ImageTimeout},
		{"server.previewTTL", c.Server.PreviewTTL},
		{"guest.window", c.Guest.Window},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil || v < 0 {
			return fmt.Errorf("%w: %s %q (use a duration like 30s or 15m)", ErrInvalidValue, d.field, d.value)
		}
	}
	if c.Export.Timeout != "" && parseDuration(c.Export.Timeout) == 0 {
		return fmt.Errorf("%w: export.timeout must be positive", ErrInvalidValue)
	}

	if c.Export.Scale < 0 || c.Export.Scale > MaxScale {
		return fmt.Errorf("%w: export.scale must be between 0 and %d, got %.2f", ErrInvalidValue, MaxScale, c.Export.Scale)
	}
	if c.Export.Workers < 0 {
		return fmt.Errorf("%w: export.workers must not be negative", ErrInvalidValue)
	}

	switch c.Storage.Driver {
	case "", storage.DriverLocal:
	case storage.DriverS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("%w: storage.s3.bucket is required with the s3 driver", ErrInvalidValue)
		}
	default:
		return fmt.Errorf("%w: storage.driver %q (must be local or s3)", ErrInvalidValue, c.Storage.Driver)
	}

	if c.Server.MaxPreviews < 0 || c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("%w: server limits must not be negative", ErrInvalidValue)
	}
	if c.Guest.Limit < 0 || c.Guest.MaxClients < 0 {
		return fmt.Errorf("%w: guest limits must not be negative", ErrInvalidValue)
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log.level %q (must be debug, info, warn, or error)", ErrInvalidValue, c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q (must be text or json)", ErrInvalidValue, c.Log.Format)
	}

	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// parseDuration returns the duration in s, or zero when s is empty or invalid.
// Validate reports invalid values.
func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// TimeoutDuration returns export.timeout.
func (e ExportConfig) TimeoutDuration() time.Duration { return parseDuration(e.Timeout) }

// ImageTimeoutDuration returns export.imageTimeout.
func (e ExportConfig) ImageTimeoutDuration() time.Duration { return parseDuration(e.ImageTimeout) }

// PreviewTTLDuration returns server.previewTTL.
func (s ServerConfig) PreviewTTLDuration() time.Duration { return parseDuration(s.PreviewTTL) }

// WindowDuration returns guest.window.
func (g GuestConfig) WindowDuration() time.Duration { return parseDuration(g.Window) }

// StorageSettings converts the storage and output sections for storage.New.
func (c *Config) StorageSettings() storage.Config {
	return storage.Config{Driver: c.Storage.Driver, Dir: c.Output.Dir, S3: c.Storage.S3}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Values absent from the file keep their defaults.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/go-invoicepdf/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, searchDirName, name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

// UserConfigPath returns where LoadConfig looks for name in the user config
// directory, or "" when that directory is unknown.
func UserConfigPath(name string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, searchDirName, name+".yaml")
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
