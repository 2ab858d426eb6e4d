package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-invoicepdf/internal/config"
)

// envPrefix marks the variables read by the CLI.
const envPrefix = "INVOICEPDF_"

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	// Tier 1 - Essential
	ConfigPath string // INVOICEPDF_CONFIG: config file path
	Timeout    string // INVOICEPDF_TIMEOUT: per-export timeout
	OutputDir  string // INVOICEPDF_OUTPUT_DIR: local storage directory

	// Tier 2 - Capture and assets
	ImageTimeout string // INVOICEPDF_IMAGE_TIMEOUT
	TargetID     string // INVOICEPDF_TARGET
	PageSize     string // INVOICEPDF_PAGE_SIZE: a4, letter, legal
	Style        string // INVOICEPDF_STYLE
	AssetPath    string // INVOICEPDF_ASSET_PATH
	Workers      int    // INVOICEPDF_WORKERS

	// Tier 3 - Storage and service
	Storage   string // INVOICEPDF_STORAGE: local, s3
	S3Bucket  string // INVOICEPDF_S3_BUCKET
	S3Region  string // INVOICEPDF_S3_REGION
	S3Prefix  string // INVOICEPDF_S3_PREFIX
	Addr      string // INVOICEPDF_ADDR
	PublicURL string // INVOICEPDF_PUBLIC_URL
	LogLevel  string // INVOICEPDF_LOG_LEVEL
	LogFormat string // INVOICEPDF_LOG_FORMAT
}

// knownEnvVars lists valid INVOICEPDF_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"INVOICEPDF_CONFIG":        true,
	"INVOICEPDF_TIMEOUT":       true,
	"INVOICEPDF_OUTPUT_DIR":    true,
	"INVOICEPDF_IMAGE_TIMEOUT": true,
	"INVOICEPDF_TARGET":        true,
	"INVOICEPDF_PAGE_SIZE":     true,
	"INVOICEPDF_STYLE":         true,
	"INVOICEPDF_ASSET_PATH":    true,
	"INVOICEPDF_WORKERS":       true,
	"INVOICEPDF_STORAGE":       true,
	"INVOICEPDF_S3_BUCKET":     true,
	"INVOICEPDF_S3_REGION":     true,
	"INVOICEPDF_S3_PREFIX":     true,
	"INVOICEPDF_ADDR":          true,
	"INVOICEPDF_PUBLIC_URL":    true,
	"INVOICEPDF_LOG_LEVEL":     true,
	"INVOICEPDF_LOG_FORMAT":    true,
	"INVOICEPDF_CONTAINER":     true, // read by doctor
}

// loadEnvConfig reads configuration from environment variables.
// Unparseable durations and counts are ignored.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath: os.Getenv("INVOICEPDF_CONFIG"),
		OutputDir:  os.Getenv("INVOICEPDF_OUTPUT_DIR"),

		TargetID:  os.Getenv("INVOICEPDF_TARGET"),
		PageSize:  os.Getenv("INVOICEPDF_PAGE_SIZE"),
		Style:     os.Getenv("INVOICEPDF_STYLE"),
		AssetPath: os.Getenv("INVOICEPDF_ASSET_PATH"),

		Storage:   os.Getenv("INVOICEPDF_STORAGE"),
		S3Bucket:  os.Getenv("INVOICEPDF_S3_BUCKET"),
		S3Region:  os.Getenv("INVOICEPDF_S3_REGION"),
		S3Prefix:  os.Getenv("INVOICEPDF_S3_PREFIX"),
		Addr:      os.Getenv("INVOICEPDF_ADDR"),
		PublicURL: os.Getenv("INVOICEPDF_PUBLIC_URL"),
		LogLevel:  os.Getenv("INVOICEPDF_LOG_LEVEL"),
		LogFormat: os.Getenv("INVOICEPDF_LOG_FORMAT"),
	}

	cfg.Timeout = envDuration("INVOICEPDF_TIMEOUT", false)
	cfg.ImageTimeout = envDuration("INVOICEPDF_IMAGE_TIMEOUT", true)

	if workers := os.Getenv("INVOICEPDF_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	return cfg
}

// envDuration returns the variable when it parses as a positive duration,
// or zero too when allowZero is set.
func envDuration(name string, allowZero bool) string {
	v := os.Getenv(name)
	if v == "" {
		return ""
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return ""
	}
	return v
}

// warnUnknownEnvVars logs warnings for unrecognized INVOICEPDF_* variables.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, envPrefix) {
			name, _, _ := strings.Cut(env, "=")
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig overlays set environment values onto cfg.
// Precedence: CLI flags > env vars > config file > defaults
// (CLI flags are applied later via mergeFlags).
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	set(&cfg.Export.Timeout, env.Timeout)
	set(&cfg.Output.Dir, env.OutputDir)

	set(&cfg.Export.ImageTimeout, env.ImageTimeout)
	set(&cfg.Export.TargetID, env.TargetID)
	set(&cfg.Page.Size, env.PageSize)
	set(&cfg.Assets.Style, env.Style)
	set(&cfg.Assets.BasePath, env.AssetPath)
	if env.Workers > 0 {
		cfg.Export.Workers = env.Workers
	}

	set(&cfg.Storage.Driver, env.Storage)
	set(&cfg.Storage.S3.Bucket, env.S3Bucket)
	set(&cfg.Storage.S3.Region, env.S3Region)
	set(&cfg.Storage.S3.Prefix, env.S3Prefix)
	set(&cfg.Server.Addr, env.Addr)
	set(&cfg.Server.PublicURL, env.PublicURL)
	set(&cfg.Log.Level, env.LogLevel)
	set(&cfg.Log.Format, env.LogFormat)
}
