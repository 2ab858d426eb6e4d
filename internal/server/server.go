// Package server exposes invoice export over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	invoicepdf "github.com/alnah/go-invoicepdf"
	"github.com/alnah/go-invoicepdf/internal/fileutil"
	"github.com/alnah/go-invoicepdf/internal/gate"
)

// Identity headers set by the upstream auth proxy.
const (
	HeaderUser  = "X-Invoicepdf-User"
	HeaderEmail = "X-Invoicepdf-Email"
	HeaderPaid  = "X-Invoicepdf-Paid"
)

// HeaderGuestRemaining tells an anonymous caller how many exports it has
// left.
const HeaderGuestRemaining = "X-Invoicepdf-Guest-Remaining"

// DefaultMaxBodyBytes bounds request bodies when Config leaves it unset.
const DefaultMaxBodyBytes = 8 << 20

// PreviewPath is the route prefix previews are served under. Blob stores
// handed to the server should use PublicURL+PreviewPath as their base URL.
const PreviewPath = "/preview"

// Exporter is the subset of *invoicepdf.Exporter the handlers use.
type Exporter interface {
	ExportInvoice(ctx context.Context, inv *invoicepdf.Invoice, req invoicepdf.Request) (*invoicepdf.Outcome, error)
	ExportHTML(ctx context.Context, htmlContent string, req invoicepdf.Request) (*invoicepdf.Outcome, error)
}

// Provider lends Exporters to handlers.
type Provider interface {
	Acquire(ctx context.Context) (Exporter, error)
	Release(e Exporter)
}

// poolProvider adapts an ExporterPool to Provider.
type poolProvider struct {
	pool *invoicepdf.ExporterPool
}

// FromPool returns a Provider backed by pool.
func FromPool(pool *invoicepdf.ExporterPool) Provider {
	return poolProvider{pool: pool}
}

func (p poolProvider) Acquire(ctx context.Context) (Exporter, error) {
	e, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (p poolProvider) Release(e Exporter) {
	if exp, ok := e.(*invoicepdf.Exporter); ok {
		p.pool.Release(exp)
	}
}

// Config wires a Server.
type Config struct {
	Exporters    Provider
	Blobs        *invoicepdf.BlobStore
	Gate         *gate.Gate
	Logger       *slog.Logger
	MaxBodyBytes int64

	// DefaultFilename names HTML exports whose request sets none.
	DefaultFilename string
}

// Server routes export requests to pooled exporters.
type Server struct {
	exporters Provider
	blobs     *invoicepdf.BlobStore
	gate      *gate.Gate
	logger    *slog.Logger
	maxBody   int64
	filename  string
	router    *chi.Mux
}

// New builds the router. Exporters, Blobs and Gate are required.
func New(cfg Config) (*Server, error) {
	if cfg.Exporters == nil || cfg.Blobs == nil || cfg.Gate == nil {
		return nil, errors.New("server: exporters, blobs and gate are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	s := &Server{
		exporters: cfg.Exporters,
		blobs:     cfg.Blobs,
		gate:      cfg.Gate,
		logger:    cfg.Logger,
		maxBody:   cfg.MaxBodyBytes,
		filename:  cfg.DefaultFilename,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))
		r.Post("/invoices", s.handleInvoice)
		r.Post("/export", s.handleHTML)
	})

	r.Route(PreviewPath, func(r chi.Router) {
		r.Get("/{id}", s.handlePreview)
		r.Delete("/{id}", s.handleRevoke)
	})

	s.router = r
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// htmlExportRequest is the body of POST /api/export.
type htmlExportRequest struct {
	HTML     string `json:"html"`
	TargetID string `json:"targetId"`
	Filename string `json:"filename"`
}

// errorResponse is the JSON body of every non-2xx reply.
type errorResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

// previewResponse is the JSON body of a preview export.
type previewResponse struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Pages    int    `json:"pages"`
}

func (s *Server) handleInvoice(w http.ResponseWriter, r *http.Request) {
	var inv invoicepdf.Invoice
	if !s.decode(w, r, &inv) {
		return
	}
	filename := r.URL.Query().Get("filename")
	if filename == "" && inv.Number != "" {
		filename = inv.Number
	}
	if filename != "" {
		filename = fileutil.EnsurePDFExtension(filename)
	}

	s.export(w, r, "", filename, func(ctx context.Context, e Exporter, req invoicepdf.Request) (*invoicepdf.Outcome, error) {
		return e.ExportInvoice(ctx, &inv, req)
	})
}

func (s *Server) handleHTML(w http.ResponseWriter, r *http.Request) {
	var body htmlExportRequest
	if !s.decode(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.HTML) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Message: invoicepdf.ErrEmptyHTML.Error()})
		return
	}
	if err := invoicepdf.CheckLocalReferences(body.HTML); err != nil {
		status, msg := failureStatus(err)
		writeJSON(w, status, errorResponse{Message: msg})
		return
	}

	if body.Filename == "" {
		body.Filename = s.filename
	}
	if body.Filename != "" {
		body.Filename = fileutil.EnsurePDFExtension(body.Filename)
	}

	s.export(w, r, body.TargetID, body.Filename, func(ctx context.Context, e Exporter, req invoicepdf.Request) (*invoicepdf.Outcome, error) {
		return e.ExportHTML(ctx, body.HTML, req)
	})
}

type exportFunc func(ctx context.Context, e Exporter, req invoicepdf.Request) (*invoicepdf.Outcome, error)

// export gates the caller, runs fn on a pooled exporter and writes the
// result as a PDF attachment or, with ?preview=1, as a preview URL.
func (s *Server) export(w http.ResponseWriter, r *http.Request, targetID, filename string, fn exportFunc) {
	log := s.logger.With("request_id", middleware.GetReqID(r.Context()))

	decision := s.gate.Check(identityFrom(r))
	if !decision.Allowed {
		log.Info("server: export denied", "reason", decision.Reason)
		writeJSON(w, decision.Status, errorResponse{Message: decision.Message, Redirect: decision.Redirect})
		return
	}
	if decision.Reason == gate.ReasonGuest {
		w.Header().Set(HeaderGuestRemaining, strconv.Itoa(decision.GuestRemaining))
	}

	exp, err := s.exporters.Acquire(r.Context())
	if err != nil {
		log.Warn("server: no exporter available", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Message: invoicepdf.FailureMessage})
		return
	}
	defer s.exporters.Release(exp)

	req := invoicepdf.Request{TargetID: targetID, Filename: filename}

	preview := isTrue(r.URL.Query().Get("preview"))
	var previewURL string
	var pdf []byte
	if preview {
		req.Preview = func(url string) { previewURL = url }
	} else {
		req.Saver = invoicepdf.SaverFunc(func(_ context.Context, _ string, data []byte) (string, error) {
			pdf = data
			return "response", nil
		})
	}

	out, err := fn(r.Context(), exp, req)
	if err != nil {
		status, msg := failureStatus(err)
		log.Error("server: export failed", "error", err, "status", status)
		writeJSON(w, status, errorResponse{Message: msg})
		return
	}

	if preview {
		writeJSON(w, http.StatusOK, previewResponse{URL: previewURL, Filename: out.Filename, Pages: out.Pages})
		return
	}
	writePDF(w, out.Filename, true, pdf)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	blob, err := s.blobs.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: invoicepdf.ErrBlobNotFound.Error()})
		return
	}
	writePDF(w, blob.Filename, false, blob.Data)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	if !s.blobs.Revoke(chi.URLParam(r, "id")) {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: invoicepdf.ErrBlobNotFound.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode reads a size-limited JSON body into v. On failure it has already
// written the reply.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Message: "request body too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: fmt.Sprintf("invalid JSON body: %v", err)})
		return false
	}
	return true
}

// logRequests logs one line per request after it completes.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("server: request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start))
		}()
		next.ServeHTTP(ww, r)
	})
}

// identityFrom reads the caller from proxy headers.
func identityFrom(r *http.Request) gate.Identity {
	return gate.Identity{
		UserID:    strings.TrimSpace(r.Header.Get(HeaderUser)),
		Email:     strings.TrimSpace(r.Header.Get(HeaderEmail)),
		Paid:      isTrue(r.Header.Get(HeaderPaid)),
		ClientKey: clientKey(r),
	}
}

// clientKey is the first X-Forwarded-For hop, else the remote host.
func clientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// failureStatus maps an export error to a status and user-facing message.
// Only input errors expose their text.
func failureStatus(err error) (int, string) {
	switch {
	case errors.Is(err, invoicepdf.ErrInvalidInvoice),
		errors.Is(err, invoicepdf.ErrInvalidFilename),
		errors.Is(err, invoicepdf.ErrEmptyHTML),
		errors.Is(err, invoicepdf.ErrLocalReference):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, invoicepdf.ErrExportInFlight):
		return http.StatusConflict, invoicepdf.ErrExportInFlight.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, invoicepdf.FailureMessage
	default:
		return http.StatusInternalServerError, invoicepdf.FailureMessage
	}
}

func isTrue(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}

func writePDF(w http.ResponseWriter, filename string, attachment bool, data []byte) {
	disposition := "inline"
	if attachment {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
