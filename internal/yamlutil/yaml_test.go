package yamlutil_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-invoicepdf/internal/yamlutil"
)

type lineItem struct {
	Description string  `yaml:"description"`
	Quantity    float64 `yaml:"quantity"`
	Price       float64 `yaml:"price"`
}

type document struct {
	Number string     `yaml:"number"`
	Items  []lineItem `yaml:"items"`
}

// ---------------------------------------------------------------------------
// TestUnmarshal
// ---------------------------------------------------------------------------

func TestUnmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    []byte
		dest    any
		wantErr error
	}{
		{
			name: "valid document",
			data: []byte("number: INV-1\nitems:\n  - description: Design\n    quantity: 2\n    price: 50\n"),
			dest: &document{},
		},
		{
			name: "unknown fields are ignored",
			data: []byte("number: INV-1\nextra: true\n"),
			dest: &document{},
		},
		{name: "nil data", data: nil, dest: &document{}, wantErr: yamlutil.ErrNilData},
		{name: "empty data", data: []byte{}, dest: &document{}, wantErr: yamlutil.ErrNilData},
		{name: "nil destination", data: []byte("number: x"), dest: nil, wantErr: yamlutil.ErrNilDestination},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := yamlutil.Unmarshal(tt.data, tt.dest)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Unmarshal() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal() unexpected error: %v", err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestUnmarshalStrict
// ---------------------------------------------------------------------------

func TestUnmarshalStrict(t *testing.T) {
	t.Parallel()

	t.Run("rejects unknown fields", func(t *testing.T) {
		t.Parallel()

		var d document
		err := yamlutil.UnmarshalStrict([]byte("number: INV-1\nnumbr: typo\n"), &d)
		if err == nil {
			t.Fatal("UnmarshalStrict() expected error for unknown field")
		}
		if !strings.HasPrefix(err.Error(), "yamlutil:") {
			t.Errorf("error %q should carry the yamlutil prefix", err)
		}
	})

	t.Run("accepts JSON", func(t *testing.T) {
		t.Parallel()

		var d document
		err := yamlutil.UnmarshalStrict([]byte(`{"number":"INV-2","items":[{"description":"Hosting","quantity":1,"price":9.5}]}`), &d)
		if err != nil {
			t.Fatalf("UnmarshalStrict() unexpected error: %v", err)
		}
		if d.Number != "INV-2" || len(d.Items) != 1 || d.Items[0].Price != 9.5 {
			t.Errorf("decoded = %+v", d)
		}
	})
}

// ---------------------------------------------------------------------------
// TestInputSizeLimit
// ---------------------------------------------------------------------------

func TestInputSizeLimit(t *testing.T) {
	// Not parallel: mutates MaxInputSize.
	orig := yamlutil.MaxInputSize
	yamlutil.MaxInputSize = 16
	defer func() { yamlutil.MaxInputSize = orig }()

	var d document
	err := yamlutil.Unmarshal([]byte("number: "+strings.Repeat("x", 32)), &d)
	if !errors.Is(err, yamlutil.ErrInputTooLarge) {
		t.Errorf("Unmarshal() error = %v, want ErrInputTooLarge", err)
	}
}

// ---------------------------------------------------------------------------
// TestDecodeFile
// ---------------------------------------------------------------------------

func TestDecodeFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, content string) string {
		t.Helper()
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		return p
	}

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr error
	}{
		{name: "yaml", path: write("a.yaml", "number: INV-Y\n"), want: "INV-Y"},
		{name: "yml upper-case", path: write("b.YML", "number: INV-YML\n"), want: "INV-YML"},
		{name: "json", path: write("c.json", `{"number": "INV-J"}`), want: "INV-J"},
		{name: "unsupported extension", path: write("d.toml", "number = 1"), wantErr: yamlutil.ErrUnsupportedDocument},
		{name: "empty file", path: write("e.yaml", ""), wantErr: yamlutil.ErrNilData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var d document
			err := yamlutil.DecodeFile(tt.path, &d)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeFile() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeFile() unexpected error: %v", err)
			}
			if d.Number != tt.want {
				t.Errorf("Number = %q, want %q", d.Number, tt.want)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		var d document
		if err := yamlutil.DecodeFile(filepath.Join(dir, "missing.yaml"), &d); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("DecodeFile() error = %v, want os.ErrNotExist", err)
		}
	})
}
