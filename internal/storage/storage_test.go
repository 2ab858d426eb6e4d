package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// ---------------------------------------------------------------------------
// Local
// ---------------------------------------------------------------------------

func TestLocal_Save(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out", "nested")
	l, err := NewLocal(dir)
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}

	data := []byte("%PDF-1.3 test")
	got, err := l.Save(context.Background(), "invoice.pdf", data)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	want := filepath.Join(l.Dir(), "invoice.pdf")
	if got != want {
		t.Errorf("Save() = %q, want %q", got, want)
	}

	content, err := os.ReadFile(got)
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if string(content) != string(data) {
		t.Errorf("content = %q, want %q", content, data)
	}
}

func TestLocal_SaveRejectsUnsafeName(t *testing.T) {
	t.Parallel()

	l, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}

	for _, name := range []string{"", "../escape.pdf", "a/b.pdf"} {
		if _, err := l.Save(context.Background(), name, []byte("x")); !errors.Is(err, ErrWrite) {
			t.Errorf("Save(%q) error = %v, want ErrWrite", name, err)
		}
	}
}

func TestLocal_SaveCanceled(t *testing.T) {
	t.Parallel()

	l, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := l.Save(ctx, "invoice.pdf", []byte("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestNewLocal_FileInTheWay(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewLocal(file); !errors.Is(err, ErrInvalidDir) {
		t.Errorf("error = %v, want ErrInvalidDir", err)
	}
}

// ---------------------------------------------------------------------------
// S3
// ---------------------------------------------------------------------------

type recordedPut struct {
	method      string
	path        string
	contentType string
	body        []byte
}

func newFakeBucket(t *testing.T) (*httptest.Server, func() []recordedPut) {
	t.Helper()

	var mu sync.Mutex
	var puts []recordedPut

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		puts = append(puts, recordedPut{
			method:      r.Method,
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			body:        body,
		})
		mu.Unlock()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []recordedPut {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedPut(nil), puts...)
	}
}

func TestS3_Save(t *testing.T) {
	t.Parallel()

	srv, recorded := newFakeBucket(t)

	s, err := NewS3(context.Background(), S3Config{
		Bucket:          "invoices",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		Prefix:          "2026",
	})
	if err != nil {
		t.Fatalf("NewS3() error = %v", err)
	}

	loc, err := s.Save(context.Background(), "invoice.pdf", []byte("%PDF-1.3"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if loc != "s3://invoices/2026/invoice.pdf" {
		t.Errorf("location = %q, want s3://invoices/2026/invoice.pdf", loc)
	}

	puts := recorded()
	if len(puts) != 1 {
		t.Fatalf("requests = %d, want 1", len(puts))
	}
	if puts[0].method != http.MethodPut {
		t.Errorf("method = %s, want PUT", puts[0].method)
	}
	if puts[0].path != "/invoices/2026/invoice.pdf" {
		t.Errorf("path = %q, want /invoices/2026/invoice.pdf", puts[0].path)
	}
	if puts[0].contentType != ContentType {
		t.Errorf("content type = %q, want %q", puts[0].contentType, ContentType)
	}
}

func TestS3_SavePublicURL(t *testing.T) {
	t.Parallel()

	srv, _ := newFakeBucket(t)

	s, err := NewS3(context.Background(), S3Config{
		Bucket:          "invoices",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		PublicURL:       "https://cdn.example.com/",
	})
	if err != nil {
		t.Fatalf("NewS3() error = %v", err)
	}

	loc, err := s.Save(context.Background(), "invoice.pdf", []byte("%PDF-1.3"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if loc != "https://cdn.example.com/invoice.pdf" {
		t.Errorf("location = %q, want https://cdn.example.com/invoice.pdf", loc)
	}
}

func TestNewS3_RequiresBucket(t *testing.T) {
	t.Parallel()

	if _, err := NewS3(context.Background(), S3Config{}); !errors.Is(err, ErrS3Config) {
		t.Errorf("error = %v, want ErrS3Config", err)
	}
}

func TestS3_Key(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix string
		want   string
	}{
		{prefix: "", want: "invoice.pdf"},
		{prefix: "invoices", want: "invoices/invoice.pdf"},
		{prefix: "invoices/", want: "invoices/invoice.pdf"},
	}

	for _, tt := range tests {
		s := &S3{prefix: tt.prefix}
		if got := s.Key("invoice.pdf"); got != tt.want {
			t.Errorf("Key() with prefix %q = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// New
// ---------------------------------------------------------------------------

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("local by default", func(t *testing.T) {
		t.Parallel()

		s, err := New(context.Background(), Config{Dir: t.TempDir()})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if _, ok := s.(*Local); !ok {
			t.Errorf("New() = %T, want *Local", s)
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Parallel()

		_, err := New(context.Background(), Config{Driver: "ftp"})
		if !errors.Is(err, ErrUnknownDriver) {
			t.Errorf("error = %v, want ErrUnknownDriver", err)
		}
	})
}
