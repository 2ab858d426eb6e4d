package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	invoicepdf "github.com/alnah/go-invoicepdf"
	"github.com/alnah/go-invoicepdf/internal/server"
)

// Mock implementations for testing.

// mockExporter saves a fixed PDF through the request's saver. failFor maps
// output filenames to the error their export returns.
type mockExporter struct {
	failFor map[string]error

	mu       sync.Mutex
	invoices []*invoicepdf.Invoice
	html     []string
	reqs     []invoicepdf.Request
}

var _ server.Exporter = (*mockExporter)(nil)

func (m *mockExporter) ExportInvoice(ctx context.Context, inv *invoicepdf.Invoice, req invoicepdf.Request) (*invoicepdf.Outcome, error) {
	m.mu.Lock()
	m.invoices = append(m.invoices, inv)
	m.mu.Unlock()
	return m.deliver(ctx, req)
}

func (m *mockExporter) ExportHTML(ctx context.Context, htmlContent string, req invoicepdf.Request) (*invoicepdf.Outcome, error) {
	m.mu.Lock()
	m.html = append(m.html, htmlContent)
	m.mu.Unlock()
	return m.deliver(ctx, req)
}

func (m *mockExporter) deliver(ctx context.Context, req invoicepdf.Request) (*invoicepdf.Outcome, error) {
	m.mu.Lock()
	m.reqs = append(m.reqs, req)
	m.mu.Unlock()

	if err := m.failFor[req.Filename]; err != nil {
		return nil, err
	}
	loc, err := req.Saver.Save(ctx, req.Filename, []byte("%PDF-1.4 mock"))
	if err != nil {
		return nil, err
	}
	return &invoicepdf.Outcome{Mode: invoicepdf.ModeDownload, Filename: req.Filename, Location: loc, Pages: 1}, nil
}

func (m *mockExporter) requests() []invoicepdf.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]invoicepdf.Request(nil), m.reqs...)
}

// mockPool lends one mockExporter.
type mockPool struct {
	exporter   *mockExporter
	size       int
	acquireErr error

	mu       sync.Mutex
	acquired int
	released int
	closed   bool
	blobs    *invoicepdf.BlobStore
	opts     []invoicepdf.Option
}

var _ Pool = (*mockPool)(nil)

func (m *mockPool) Acquire(ctx context.Context) (server.Exporter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.acquireErr != nil {
		return nil, m.acquireErr
	}
	m.acquired++
	return m.exporter, nil
}

func (m *mockPool) Release(server.Exporter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released++
}

func (m *mockPool) Size() int { return m.size }

func (m *mockPool) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// testEnv is an Environment whose pool factory records the pool it built.
type testEnv struct {
	*Environment
	stdout, stderr *bytes.Buffer
	pool           *mockPool
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	te := &testEnv{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		pool:   &mockPool{exporter: &mockExporter{}},
	}
	te.Environment = &Environment{
		Stdout: te.stdout,
		Stderr: te.stderr,
		NewPool: func(size int, blobs *invoicepdf.BlobStore, opts ...invoicepdf.Option) Pool {
			te.pool.size = size
			te.pool.blobs = blobs
			te.pool.opts = opts
			return te.pool
		},
	}
	return te
}

const testInvoiceYAML = `number: INV-1
currency: USD
items:
  - description: Consulting
    quantity: 2
    price: 150
`

// writeFile creates dir/name with content, making parent directories.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return path
}
