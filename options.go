package invoicepdf

import (
	"log/slog"
	"time"
)

// Option configures an Exporter.
type Option func(*Exporter)

// exporterConfig holds the tunables of an Exporter.
type exporterConfig struct {
	timeout      time.Duration
	imageTimeout time.Duration
	page         PageFormat
	scale        float64
	verify       bool
	assetPath    string
	style        string
	templateSet  string
	creator      string
	sandbox      bool
}

// Defaults.
const (
	defaultTimeout      = 30 * time.Second
	defaultImageTimeout = 10 * time.Second
	defaultScale        = 2.0
	defaultCreator      = "go-invoicepdf"

	// DefaultFilename names downloads when a request sets none.
	DefaultFilename = "invoice.pdf"

	// cleanupTimeout bounds clone removal after the export context is done.
	cleanupTimeout = 5 * time.Second
)

// WithTimeout bounds each export, from target lookup to emitted PDF.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("invoicepdf: WithTimeout duration must be positive")
	}
	return func(e *Exporter) {
		e.cfg.timeout = d
	}
}

// WithImageTimeout bounds the wait for images inside the target. Images
// still loading when it expires are treated as failed and the export goes
// on. Zero waits as long as the export timeout allows.
// Panics if d < 0.
func WithImageTimeout(d time.Duration) Option {
	if d < 0 {
		panic("invoicepdf: WithImageTimeout duration must not be negative")
	}
	return func(e *Exporter) {
		e.cfg.imageTimeout = d
	}
}

// WithPageFormat sets the PDF page size (default A4).
func WithPageFormat(p PageFormat) Option {
	return func(e *Exporter) {
		e.cfg.page = p
	}
}

// WithScale sets the capture oversampling factor (default 2).
// Panics if scale <= 0.
func WithScale(scale float64) Option {
	if scale <= 0 {
		panic("invoicepdf: WithScale factor must be positive")
	}
	return func(e *Exporter) {
		e.cfg.scale = scale
	}
}

// WithVerify re-reads every produced PDF and checks its page count.
func WithVerify(verify bool) Option {
	return func(e *Exporter) {
		e.cfg.verify = verify
	}
}

// WithLogger sets the logger for export diagnostics. Nil discards.
func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) {
		e.logger = l
	}
}

// WithNotifier sets who is told when an export fails.
func WithNotifier(n Notifier) Option {
	return func(e *Exporter) {
		e.notifier = n
	}
}

// WithSaver sets where downloads are written (default: current directory).
func WithSaver(s Saver) Option {
	return func(e *Exporter) {
		e.saver = s
	}
}

// WithBlobStore sets the store previews are published to.
func WithBlobStore(b *BlobStore) Option {
	return func(e *Exporter) {
		e.blobs = b
	}
}

// WithAssetPath overrides embedded styles and templates with a directory.
func WithAssetPath(path string) Option {
	return func(e *Exporter) {
		e.cfg.assetPath = path
	}
}

// WithStyle selects the invoice style by name.
func WithStyle(name string) Option {
	return func(e *Exporter) {
		e.cfg.style = name
	}
}

// WithTemplateSet selects the invoice template set by name.
func WithTemplateSet(name string) Option {
	return func(e *Exporter) {
		e.cfg.templateSet = name
	}
}

// WithCreator sets the PDF Creator metadata.
func WithCreator(creator string) Option {
	return func(e *Exporter) {
		e.cfg.creator = creator
	}
}

// WithSandbox treats every document as untrusted. Documents referencing
// local files are rejected with ErrLocalReference, invoice images must be
// data or https URLs, and the browser loads the document in place with
// scripts disabled, failing any request to local files or private-network
// hosts. Request.BaseDir is ignored.
func WithSandbox(enabled bool) Option {
	return func(e *Exporter) {
		e.cfg.sandbox = enabled
	}
}

// withOpener replaces the headless browser, for tests.
func withOpener(o surfaceOpener) Option {
	return func(e *Exporter) {
		e.opener = o
	}
}
