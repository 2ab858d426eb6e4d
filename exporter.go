package invoicepdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alnah/go-invoicepdf/internal/assets"
	"github.com/alnah/go-invoicepdf/internal/fileutil"
	"github.com/alnah/go-invoicepdf/internal/pipeline"
	"github.com/alnah/go-invoicepdf/internal/storage"
)

// FailureMessage is the only thing a Notifier is told about a failed export.
// Details go to the log.
const FailureMessage = "Failed to generate PDF. Check logs for details."

// Mode is how a finished PDF was delivered.
type Mode string

// Delivery modes.
const (
	ModeDownload Mode = "download"
	ModePreview  Mode = "preview"
)

// Export stages, as logged.
const (
	stageValidate  = "validate"
	stageRender    = "render"
	stageOpen      = "open"
	stageLookup    = "lookup"
	stageClone     = "stage"
	stageSanitize  = "sanitize"
	stageImages    = "images"
	stageRasterize = "rasterize"
	stagePaginate  = "paginate"
	stageVerify    = "verify"
	stageEmit      = "emit"
	stageCleanup   = "cleanup"
)

// Request describes one export.
type Request struct {
	// TargetID is the id of the element to capture (default "invoice-preview").
	TargetID string

	// Filename names the download (default "invoice.pdf").
	Filename string

	// Preview switches to preview mode: the PDF is published to the blob
	// store and Preview is called once with its URL. Nothing is saved.
	Preview func(url string)

	// Saver overrides the exporter's saver for this download.
	Saver Saver

	// BaseDir resolves relative image and stylesheet URLs in ExportHTML.
	BaseDir string
}

func (r Request) withDefaults() Request {
	if r.TargetID == "" {
		r.TargetID = DefaultTargetID
	}
	if r.Filename == "" {
		r.Filename = DefaultFilename
	}
	return r
}

// Outcome describes a successful export.
type Outcome struct {
	ExportID string
	Mode     Mode
	Filename string
	Location string // download: where the saver put the file
	URL      string // preview: revocable blob URL
	Pages    int
	Bytes    int
	Duration time.Duration
}

// inflightKey identifies a target on a surface. Surfaces must be
// comparable (pointer implementations are).
type inflightKey struct {
	surface Surface
	target  string
}

// Exporter captures a styled element and turns it into a paginated PDF.
// Create with NewExporter, call Close when done. An Exporter is safe for
// concurrent use; overlapping exports of the same target are rejected with
// ErrExportInFlight.
type Exporter struct {
	cfg      exporterConfig
	logger   *slog.Logger
	notifier Notifier
	saver    Saver
	blobs    *BlobStore
	renderer *invoiceRenderer
	opener   surfaceOpener

	mu       sync.Mutex
	inflight map[inflightKey]struct{}
}

// NewExporter creates an Exporter. The headless browser starts on first use.
func NewExporter(opts ...Option) (*Exporter, error) {
	e := &Exporter{
		cfg: exporterConfig{
			timeout:      defaultTimeout,
			imageTimeout: defaultImageTimeout,
			page:         DefaultPageFormat,
			scale:        defaultScale,
			style:        assets.DefaultStyleName,
			templateSet:  assets.DefaultTemplateSetName,
			creator:      defaultCreator,
		},
		inflight: make(map[inflightKey]struct{}),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.notifier == nil {
		e.notifier = discardNotifier{}
	}
	if err := e.cfg.page.Validate(); err != nil {
		return nil, err
	}
	if e.blobs == nil {
		e.blobs = NewBlobStore(DefaultBlobBaseURL)
	}
	if e.saver == nil {
		local, err := storage.NewLocal(".")
		if err != nil {
			return nil, err
		}
		e.saver = local
	}

	resolver, err := assets.NewAssetResolver(e.cfg.assetPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAssetPath, err)
	}
	e.renderer, err = newInvoiceRenderer(resolver, e.cfg.style, e.cfg.templateSet)
	if err != nil {
		return nil, err
	}
	e.renderer.allowLocal = !e.cfg.sandbox

	// Create the browser opener if not injected (e.g., by tests)
	if e.opener == nil {
		e.opener = newRodOpener(e.cfg.timeout, e.logger, e.cfg.sandbox)
	}

	return e, nil
}

// Blobs returns the store previews are published to.
func (e *Exporter) Blobs() *BlobStore {
	return e.blobs
}

// Export runs the capture pipeline against s: locate the target, stage a
// clone, sanitize its colours, wait for its images, rasterize, paginate,
// and deliver. The clone is removed before Export returns on every path
// once it exists.
//
// Every failure is logged with its stage, reported once to the Notifier
// with FailureMessage, and returned. No output is delivered on failure.
// Recovers from internal panics.
func (e *Exporter) Export(ctx context.Context, s Surface, req Request) (out *Outcome, err error) {
	req = req.withDefaults()
	exportID := uuid.NewString()
	log := e.logger.With("export_id", exportID, "target", req.TargetID)
	start := time.Now()
	stage := stageValidate

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
		if err != nil {
			out = nil
			e.fail(log, stage, err)
		}
	}()

	if s == nil {
		return nil, fmt.Errorf("%w: no surface", ErrTargetNotFound)
	}
	if err := fileutil.ValidateFilename(req.Filename); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilename, err)
	}

	release, err := e.acquire(s, req.TargetID)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.timeout)
	defer cancel()

	log.Debug("export: started", "preview", req.Preview != nil)

	stage = stageLookup
	target, err := s.Lookup(ctx, req.TargetID)
	if err != nil {
		if errors.Is(err, ErrTargetNotFound) {
			return nil, err
		}
		return nil, wrapErr(ErrStage, err)
	}

	stage = stageClone
	clone, err := s.Stage(ctx, target)
	if err != nil {
		return nil, wrapErr(ErrStage, err)
	}
	defer e.unstage(ctx, s, clone, log)

	stage = stageSanitize
	snap, err := s.ComputedStyles(ctx, clone)
	if err != nil {
		return nil, wrapErr(ErrSanitize, err)
	}
	patches := sanitizeStyles(snap)
	if err := s.ApplyStyles(ctx, clone, patches); err != nil {
		return nil, wrapErr(ErrSanitize, err)
	}
	log.Debug("export: sanitized", "stage", stage, "elements", len(snap.Elements))

	stage = stageImages
	ready, err := awaitImages(ctx, s, clone, e.cfg.imageTimeout, log)
	if err != nil {
		return nil, err
	}
	log.Debug("export: images settled", "stage", stage,
		"images", ready.Total, "pending", ready.Pending, "unresolved", ready.Unresolved)

	stage = stageRasterize
	capture, err := e.rasterize(ctx, s, clone)
	if err != nil {
		return nil, err
	}
	log.Debug("export: rasterized", "stage", stage, "width", capture.Width, "height", capture.Height)

	stage = stagePaginate
	doc, err := paginate(capture, e.cfg.page, pdfMeta{
		Title:   strings.TrimSuffix(req.Filename, ".pdf"),
		Creator: e.cfg.creator,
	})
	if err != nil {
		return nil, err
	}

	if e.cfg.verify {
		stage = stageVerify
		if err := verifyPageCount(doc); err != nil {
			return nil, err
		}
	}

	stage = stageEmit
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out = &Outcome{
		ExportID: exportID,
		Filename: req.Filename,
		Pages:    doc.Pages,
		Bytes:    len(doc.PDF),
	}
	if req.Preview != nil {
		out.Mode = ModePreview
		out.URL = e.blobs.Put(req.Filename, doc.PDF)
		req.Preview(out.URL)
	} else {
		saver := req.Saver
		if saver == nil {
			saver = e.saver
		}
		out.Mode = ModeDownload
		out.Location, err = saver.Save(ctx, req.Filename, doc.PDF)
		if err != nil {
			return nil, wrapErr(ErrEmit, err)
		}
	}

	out.Duration = time.Since(start)
	log.Info("export: done", "mode", out.Mode, "pages", out.Pages, "bytes", out.Bytes, "duration", out.Duration)
	return out, nil
}

// ExportHTML loads htmlContent in the headless browser and exports the
// target element from it.
func (e *Exporter) ExportHTML(ctx context.Context, htmlContent string, req Request) (*Outcome, error) {
	req = req.withDefaults()
	log := e.logger.With("target", req.TargetID)

	if strings.TrimSpace(htmlContent) == "" {
		e.fail(log, stageValidate, ErrEmptyHTML)
		return nil, ErrEmptyHTML
	}

	if e.cfg.sandbox {
		if err := CheckLocalReferences(htmlContent); err != nil {
			e.fail(log, stageValidate, err)
			return nil, err
		}
	} else {
		var err error
		htmlContent, err = pipeline.RewriteRelativeURLs(htmlContent, req.BaseDir)
		if err != nil {
			err = fmt.Errorf("%w: resolving relative URLs: %v", ErrStage, err)
			e.fail(log, stageOpen, err)
			return nil, err
		}
	}

	surface, closePage, err := e.opener.Open(ctx, htmlContent)
	if err != nil {
		e.fail(log, stageOpen, err)
		return nil, err
	}
	defer func() {
		if err := closePage(); err != nil {
			log.Debug("export: closing page", "error", err)
		}
	}()

	return e.Export(ctx, surface, req)
}

// ExportInvoice renders inv with the configured style and template set and
// exports it.
func (e *Exporter) ExportInvoice(ctx context.Context, inv *Invoice, req Request) (*Outcome, error) {
	req = req.withDefaults()

	htmlContent, err := e.RenderInvoice(ctx, inv, req.TargetID)
	if err != nil {
		e.fail(e.logger.With("target", req.TargetID), stageRender, err)
		return nil, err
	}
	return e.ExportHTML(ctx, htmlContent, req)
}

// RenderInvoice validates inv and returns the HTML document ExportInvoice
// would capture. An empty targetID uses DefaultTargetID.
func (e *Exporter) RenderInvoice(ctx context.Context, inv *Invoice, targetID string) (string, error) {
	if err := inv.Validate(); err != nil {
		return "", err
	}
	if targetID == "" {
		targetID = DefaultTargetID
	}
	return e.renderer.Render(ctx, inv, targetID)
}

// Close releases the headless browser.
func (e *Exporter) Close() error {
	if e.opener != nil {
		return e.opener.Close()
	}
	return nil
}

// acquire marks target on s as exporting. The returned func clears it.
func (e *Exporter) acquire(s Surface, target string) (func(), error) {
	key := inflightKey{surface: s, target: target}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, busy := e.inflight[key]; busy {
		return nil, fmt.Errorf("%w: #%s", ErrExportInFlight, target)
	}
	e.inflight[key] = struct{}{}

	return func() {
		e.mu.Lock()
		delete(e.inflight, key)
		e.mu.Unlock()
	}, nil
}

// rasterize captures the clone and reads the bitmap size from the PNG header.
func (e *Exporter) rasterize(ctx context.Context, s Surface, clone Node) (*CaptureResult, error) {
	res, err := s.Rasterize(ctx, clone, CaptureOptions{
		Scale:            e.cfg.scale,
		Background:       fallbackBackground,
		AllowCrossOrigin: true,
	})
	if err != nil {
		return nil, wrapErr(ErrRasterize, err)
	}
	if res == nil || len(res.PNG) == 0 {
		return nil, fmt.Errorf("%w: empty capture", ErrRasterize)
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(res.PNG))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding capture: %v", ErrRasterize, err)
	}
	res.Width, res.Height = cfg.Width, cfg.Height
	return res, nil
}

// unstage removes the clone even when ctx is already done.
func (e *Exporter) unstage(ctx context.Context, s Surface, clone Node, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := s.Unstage(ctx, clone); err != nil {
		log.Warn("export: cleanup failed", "stage", stageCleanup, "error", err)
	}
}

// fail logs err with its stage and notifies the requester once.
// A rejected overlapping export is logged only.
func (e *Exporter) fail(log *slog.Logger, stage string, err error) {
	if errors.Is(err, ErrExportInFlight) {
		log.Warn("export: already in progress", "stage", stage)
		return
	}
	log.Error("export: failed", "stage", stage, "error", err)
	e.notifier.Notify(FailureMessage)
}

// wrapErr tags err with sentinel unless it already carries it.
func wrapErr(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
