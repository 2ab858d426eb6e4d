package main

import (
	"encoding/json"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/alnah/go-invoicepdf/internal/config"
	"github.com/alnah/go-invoicepdf/internal/storage"
)

// Notes:
// - Chrome detection depends on the host, so tests only assert on the
//   config and storage sections.

// ---------------------------------------------------------------------------
// TestRunDoctorCmd
// ---------------------------------------------------------------------------

func TestRunDoctorCmd_JSON(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "work.yaml", "output:\n  dir: "+t.TempDir()+"\n")
	env := newTestEnv(t)

	runDoctorCmd([]string{"--json", "--config", path}, env.Environment)

	var got doctorResult
	if err := json.Unmarshal(env.stdout.Bytes(), &got); err != nil {
		t.Fatalf("doctor --json output is not JSON: %v\n%s", err, env.stdout.String())
	}
	if got.Config.Source != path || !got.Config.Valid {
		t.Errorf("Config = %+v, want valid %s", got.Config, path)
	}
	if got.Storage.Driver != storage.DriverLocal || !got.Storage.Writable {
		t.Errorf("Storage = %+v, want writable local", got.Storage)
	}
	if got.Env.OS == "" {
		t.Error("Env.OS should be set")
	}
	if got.Assets.Source != "embedded" || !slices.Contains(got.Assets.Styles, "plain") {
		t.Errorf("Assets = %+v, want embedded with the plain style listed", got.Assets)
	}
}

func TestRunDoctorCmd_MissingConfig(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "nope.yaml")
	env := newTestEnv(t)

	code := runDoctorCmd([]string{"--config=" + missing}, env.Environment)

	if code != ExitGeneral {
		t.Errorf("runDoctorCmd() = %d, want %d", code, ExitGeneral)
	}
	out := env.stdout.String()
	for _, want := range []string{"Configuration", "[ERROR] Source: " + missing, "Status:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q, got:\n%s", want, out)
		}
	}
}

// ---------------------------------------------------------------------------
// TestCheckStorage
// ---------------------------------------------------------------------------

func TestCheckStorage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		setup       func(*config.Config)
		wantTarget  string
		wantError   bool
		wantWarning bool
	}{
		{
			name: "s3 without bucket",
			setup: func(c *config.Config) {
				c.Storage.Driver = storage.DriverS3
			},
			wantTarget: "s3://",
			wantError:  true,
		},
		{
			name: "s3 with static keys",
			setup: func(c *config.Config) {
				c.Storage.Driver = storage.DriverS3
				c.Storage.S3.Bucket = "invoices"
				c.Storage.S3.AccessKeyID = "AKIA"
			},
			wantTarget: "s3://invoices",
		},
		{
			name: "local directory that is a file",
			setup: func(c *config.Config) {
				c.Output.Dir = filepath.Join(c.Output.Dir, "file.txt")
			},
			wantWarning: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeFile(t, dir, "file.txt", "x")

			cfg := config.DefaultConfig()
			cfg.Output.Dir = dir
			tt.setup(cfg)

			r := &doctorResult{}
			checkStorage(r, cfg)

			if tt.wantTarget != "" && r.Storage.Target != tt.wantTarget {
				t.Errorf("Target = %q, want %q", r.Storage.Target, tt.wantTarget)
			}
			if (len(r.Errors) > 0) != tt.wantError {
				t.Errorf("Errors = %v, wantError %v", r.Errors, tt.wantError)
			}
			if tt.wantWarning && len(r.Warnings) == 0 {
				t.Error("expected a warning")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestCheckAssets
// ---------------------------------------------------------------------------

func TestCheckAssets(t *testing.T) {
	t.Parallel()

	custom := t.TempDir()

	tests := []struct {
		name       string
		setup      func(*config.Config)
		wantSource string
		wantError  string
	}{
		{name: "embedded defaults", setup: func(*config.Config) {}, wantSource: "embedded"},
		{name: "custom directory", setup: func(c *config.Config) { c.Assets.BasePath = custom }, wantSource: custom},
		{
			name:       "unknown style lists embedded styles",
			setup:      func(c *config.Config) { c.Assets.Style = "neon" },
			wantSource: "embedded",
			wantError:  "default, plain",
		},
		{
			name:       "unknown template set",
			setup:      func(c *config.Config) { c.Assets.TemplateSet = "tiny" },
			wantSource: "embedded",
			wantError:  "compact, default",
		},
		{
			name:       "missing asset directory",
			setup:      func(c *config.Config) { c.Assets.BasePath = filepath.Join(custom, "nope") },
			wantSource: "embedded",
			wantError:  "Asset path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.DefaultConfig()
			tt.setup(cfg)

			r := &doctorResult{}
			checkAssets(r, cfg)

			if r.Assets.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", r.Assets.Source, tt.wantSource)
			}
			errs := strings.Join(r.Errors, "\n")
			if tt.wantError == "" && errs != "" {
				t.Errorf("unexpected errors: %s", errs)
			}
			if tt.wantError != "" && !strings.Contains(errs, tt.wantError) {
				t.Errorf("errors = %q, want one containing %q", errs, tt.wantError)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestIsContainer
// ---------------------------------------------------------------------------

func TestIsContainer_EnvOverride(t *testing.T) {
	t.Setenv("INVOICEPDF_CONTAINER", "1")

	got, hint := isContainer()
	if !got || hint != "INVOICEPDF_CONTAINER=1" {
		t.Errorf("isContainer() = %v, %q", got, hint)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	t.Parallel()

	if got := firstNonEmpty("", "b", "c"); got != "b" {
		t.Errorf("firstNonEmpty() = %q, want b", got)
	}
	if got := firstNonEmpty("", ""); got != "" {
		t.Errorf("firstNonEmpty() = %q, want empty", got)
	}
}

func TestDirWritable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if !dirWritable(dir) {
		t.Errorf("dirWritable(%s) = false", dir)
	}
	if dirWritable(filepath.Join(dir, "missing")) {
		t.Error("dirWritable(missing) = true")
	}
	entries, _ := filepath.Glob(filepath.Join(dir, "*"))
	if slices.ContainsFunc(entries, func(p string) bool { return strings.Contains(p, "invoicepdf-doctor-") }) {
		t.Errorf("test file left behind: %v", entries)
	}
}
