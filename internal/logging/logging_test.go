package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: " warn ", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "trace", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidLevel) {
					t.Errorf("ParseLevel(%q) error = %v, want ErrInvalidLevel", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("text filters below level", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger, err := New(&buf, "warn", "text")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		logger.Info("export: started")
		logger.Warn("export: image wait timed out", "unresolved", 1)

		out := buf.String()
		if strings.Contains(out, "export: started") {
			t.Error("info entry should be filtered at warn level")
		}
		if !strings.Contains(out, "unresolved=1") {
			t.Errorf("warn entry missing: %q", out)
		}
	})

	t.Run("json is one object per line", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger, err := New(&buf, "debug", "json")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		logger.Debug("export: done", "pages", 2)

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
		}
		if entry["msg"] != "export: done" || entry["pages"] != float64(2) {
			t.Errorf("entry = %v", entry)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()

		if _, err := New(&bytes.Buffer{}, "info", "xml"); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("New() error = %v, want ErrInvalidFormat", err)
		}
	})

	t.Run("unknown level", func(t *testing.T) {
		t.Parallel()

		if _, err := New(&bytes.Buffer{}, "loud", "text"); !errors.Is(err, ErrInvalidLevel) {
			t.Errorf("New() error = %v, want ErrInvalidLevel", err)
		}
	})
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	// Must not panic and must report every level disabled.
	logger := Discard()
	logger.Error("ignored")
	if logger.Enabled(t.Context(), slog.LevelError) {
		t.Error("Discard() logger should be disabled")
	}
}
