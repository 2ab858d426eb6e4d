package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	invoicepdf "github.com/alnah/go-invoicepdf"
	"github.com/alnah/go-invoicepdf/internal/config"
	"github.com/alnah/go-invoicepdf/internal/gate"
	"github.com/alnah/go-invoicepdf/internal/logging"
	"github.com/alnah/go-invoicepdf/internal/server"
)

// HTTP server timeouts.
const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 30 * time.Second
	guestPruneEvery   = 10 * time.Minute
)

// runServeCmd runs the HTTP service until ctx is cancelled.
func runServeCmd(ctx context.Context, args []string, env *Environment) error {
	flags, rest, err := parseServeFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if len(rest) > 0 {
		return fmt.Errorf("%w: serve takes no arguments, got %v", ErrUsage, rest)
	}
	if err := validateWorkers(flags.workers); err != nil {
		return err
	}
	if !flags.common.quiet {
		warnUnknownEnvVars(env.Stderr)
	}

	cfg, err := loadSettings(flags.common.config, loadEnvConfig())
	if err != nil {
		return err
	}
	mergeServeFlags(flags, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := cfg.Log.Level
	if flags.common.verbose {
		level = "debug"
	}
	logger, err := logging.New(env.Stderr, level, cfg.Log.Format)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Server.Addr, err)
	}

	publicURL := strings.TrimRight(cfg.Server.PublicURL, "/")
	if publicURL == "" {
		publicURL = "http://" + ln.Addr().String()
	}
	blobs := invoicepdf.NewBlobStore(publicURL+server.PreviewPath,
		invoicepdf.WithBlobTTL(cfg.Server.PreviewTTLDuration()),
		invoicepdf.WithMaxBlobs(cfg.Server.MaxPreviews))

	opts, err := exporterOptions(cfg, logger)
	if err != nil {
		_ = ln.Close()
		return err
	}
	opts = append(opts, invoicepdf.WithSandbox(true))
	pool := env.NewPool(invoicepdf.ResolvePoolSize(cfg.Export.Workers), blobs, opts...)
	defer func() { _ = pool.Close() }()

	guests := gate.NewGuestLimiter(
		gate.WithLimit(cfg.Guest.Limit),
		gate.WithWindow(cfg.Guest.WindowDuration()),
		gate.WithMaxClients(cfg.Guest.MaxClients))

	handler, err := server.New(server.Config{
		Exporters:       pool,
		Blobs:           blobs,
		Gate:            gate.New(guests),
		Logger:          logger,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		DefaultFilename: cfg.Output.Filename,
	})
	if err != nil {
		_ = ln.Close()
		return err
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	logger.Info("serve: listening", "addr", ln.Addr().String(), "public_url", publicURL, "workers", pool.Size())
	if !flags.common.quiet {
		fmt.Fprintf(env.Stdout, "Listening on %s\n", ln.Addr())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		logger.Info("serve: shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		guests.PruneEvery(gctx, guestPruneEvery)
		return nil
	})

	return g.Wait()
}

// mergeServeFlags merges CLI flags into config. CLI values override config values.
func mergeServeFlags(f *serveFlags, cfg *config.Config) {
	mergeCaptureFlags(f.capture, f.assets, cfg)
	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
	if f.publicURL != "" {
		cfg.Server.PublicURL = f.publicURL
	}
	if f.workers > 0 {
		cfg.Export.Workers = f.workers
	}
	if f.logFormat != "" {
		cfg.Log.Format = f.logFormat
	}
}
