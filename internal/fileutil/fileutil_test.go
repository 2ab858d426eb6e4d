package fileutil_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-invoicepdf/internal/fileutil"
)

// ---------------------------------------------------------------------------
// TestValidateExtension - Extension validation
// ---------------------------------------------------------------------------

func TestValidateExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		extension string
		wantErr   error
	}{
		{name: "html", extension: "html"},
		{name: "empty", extension: "", wantErr: fileutil.ErrExtensionEmpty},
		{name: "slash", extension: "../etc/passwd", wantErr: fileutil.ErrExtensionPathTraversal},
		{name: "backslash", extension: "..\\win", wantErr: fileutil.ErrExtensionPathTraversal},
		{name: "null byte", extension: "html\x00exe", wantErr: fileutil.ErrExtensionPathTraversal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := fileutil.ValidateExtension(tt.extension)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateExtension(%q) = %v, want %v", tt.extension, err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestWriteTempFile - Temp file creation and cleanup
// ---------------------------------------------------------------------------

func TestWriteTempFile(t *testing.T) {
	t.Parallel()

	content := `<div id="invoice-preview">Invoice</div>`
	path, cleanup, err := fileutil.WriteTempFile(content, "html")
	if err != nil {
		t.Fatalf("WriteTempFile() error = %v", err)
	}

	if !strings.Contains(filepath.Base(path), "invoicepdf-") {
		t.Errorf("path %q does not contain prefix 'invoicepdf-'", path)
	}
	if !strings.HasSuffix(path, ".html") {
		t.Errorf("path %q does not have extension .html", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read temp file: %v", err)
	}
	if string(data) != content {
		t.Errorf("file content = %q, want %q", data, content)
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("temp file still exists after cleanup at %s", path)
	}
}

func TestWriteTempFile_InvalidExtension(t *testing.T) {
	t.Parallel()

	_, cleanup, err := fileutil.WriteTempFile("x", "a/b")
	if !errors.Is(err, fileutil.ErrExtensionPathTraversal) {
		t.Errorf("error = %v, want ErrExtensionPathTraversal", err)
	}
	if cleanup != nil {
		t.Error("cleanup should be nil on error")
	}
}

// ---------------------------------------------------------------------------
// TestValidateFilename - Output file names
// ---------------------------------------------------------------------------

func TestValidateFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		wantErr  error
	}{
		{name: "default", filename: "invoice.pdf"},
		{name: "spaces and dashes", filename: "Invoice INV-001 - ACME.pdf"},
		{name: "unicode", filename: "facture-été.pdf"},
		{name: "empty", filename: "", wantErr: fileutil.ErrFilenameEmpty},
		{name: "dot", filename: ".", wantErr: fileutil.ErrFilenameUnsafe},
		{name: "dotdot", filename: "..", wantErr: fileutil.ErrFilenameUnsafe},
		{name: "slash", filename: "../invoice.pdf", wantErr: fileutil.ErrFilenameUnsafe},
		{name: "backslash", filename: "a\\b.pdf", wantErr: fileutil.ErrFilenameUnsafe},
		{name: "newline", filename: "a\nb.pdf", wantErr: fileutil.ErrFilenameUnsafe},
		{name: "too long", filename: strings.Repeat("a", 256), wantErr: fileutil.ErrFilenameUnsafe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := fileutil.ValidateFilename(tt.filename)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateFilename(%q) = %v, want %v", tt.filename, err, tt.wantErr)
			}
		})
	}
}

func TestEnsurePDFExtension(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"invoice":     "invoice.pdf",
		"invoice.pdf": "invoice.pdf",
		"INVOICE.PDF": "INVOICE.PDF",
		"report.html": "report.html.pdf",
	}

	for in, want := range tests {
		if got := fileutil.EnsurePDFExtension(in); got != want {
			t.Errorf("EnsurePDFExtension(%q) = %q, want %q", in, got, want)
		}
	}
}

// ---------------------------------------------------------------------------
// TestFileExists
// ---------------------------------------------------------------------------

func TestFileExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "invoice.yaml")
	if err := os.WriteFile(file, []byte("number: 1"), 0o600); err != nil {
		t.Fatal(err)
	}

	if !fileutil.FileExists(file) {
		t.Errorf("FileExists(%q) = false, want true", file)
	}
	if fileutil.FileExists(dir) {
		t.Errorf("FileExists(dir) = true, want false")
	}
	if fileutil.FileExists(filepath.Join(dir, "missing")) {
		t.Errorf("FileExists(missing) = true, want false")
	}
}
