package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	flag "github.com/spf13/pflag"

	invoicepdf "github.com/alnah/go-invoicepdf"
	"github.com/alnah/go-invoicepdf/internal/config"
	"github.com/alnah/go-invoicepdf/internal/fileutil"
	"github.com/alnah/go-invoicepdf/internal/logging"
	"github.com/alnah/go-invoicepdf/internal/storage"
)

// ErrUsage marks invalid command lines.
var ErrUsage = errors.New("invalid usage")

// userConfigName is the config suggested in hints.
const userConfigName = "config"

// runExportCmd exports every input to the configured storage.
func runExportCmd(ctx context.Context, args []string, env *Environment) error {
	flags, inputs, err := parseExportFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if err := validateWorkers(flags.workers); err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("%w: run 'invoicepdf help export'", ErrNoInput)
	}
	if !flags.common.quiet {
		warnUnknownEnvVars(env.Stderr)
	}

	cfg, err := loadSettings(flags.common.config, loadEnvConfig())
	if err != nil {
		return err
	}
	mergeCaptureFlags(flags.capture, flags.assets, cfg)
	if flags.output != "" {
		cfg.Output.Dir = flags.output
	}
	if flags.storage != "" {
		cfg.Storage.Driver = flags.storage
	}
	if flags.workers > 0 {
		cfg.Export.Workers = flags.workers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	jobs, err := discoverInputs(inputs)
	if err != nil {
		return fmt.Errorf("discovering inputs: %w", err)
	}
	if len(jobs) == 0 {
		return fmt.Errorf("%w: no invoice or HTML files in %v", ErrNoInput, inputs)
	}
	if flags.filename != "" {
		if len(jobs) != 1 {
			return fmt.Errorf("%w: --filename needs exactly one input, got %d", ErrUsage, len(jobs))
		}
		jobs[0].Filename = fileutil.EnsurePDFExtension(flags.filename)
	}

	saver, err := storage.New(ctx, cfg.StorageSettings())
	if err != nil {
		return err
	}

	logger := logging.Discard()
	if flags.common.verbose {
		if logger, err = logging.New(env.Stderr, "debug", cfg.Log.Format); err != nil {
			return err
		}
	}

	opts, err := exporterOptions(cfg, logger)
	if err != nil {
		return err
	}

	size := min(invoicepdf.ResolvePoolSize(cfg.Export.Workers), len(jobs))
	if flags.common.verbose {
		fmt.Fprintf(env.Stderr, "Pool size: %d\n", size)
	}
	pool := env.NewPool(size, nil, opts...)
	defer func() { _ = pool.Close() }()

	params := &exportParams{saver: saver, targetID: cfg.Export.TargetID}
	results := exportBatch(ctx, pool, jobs, params)

	failed := printResults(results, flags.common.quiet, flags.common.verbose, params.targetID, env)
	if failed == 0 {
		return nil
	}
	if len(results) == 1 {
		return results[0].Err
	}
	return fmt.Errorf("%w: %d of %d", ErrExportsFailed, failed, len(results))
}

// loadSettings resolves configuration: the config file named by the flag
// or INVOICEPDF_CONFIG (defaults when neither is set), then environment
// overrides. Flags are merged by the caller.
func loadSettings(configFlag string, env *envConfig) (*config.Config, error) {
	name := configFlag
	if name == "" {
		name = env.ConfigPath
	}

	cfg := config.DefaultConfig()
	if name != "" {
		var err error
		if cfg, err = config.LoadConfig(name); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}
	applyEnvConfig(env, cfg)
	return cfg, nil
}

// mergeCaptureFlags merges CLI flags into config. CLI values override config values.
func mergeCaptureFlags(c captureFlags, a assetFlags, cfg *config.Config) {
	if c.target != "" {
		cfg.Export.TargetID = c.target
	}
	if c.timeout != "" {
		cfg.Export.Timeout = c.timeout
	}
	if c.imageTimeout != "" {
		cfg.Export.ImageTimeout = c.imageTimeout
	}
	if c.pageSize != "" {
		cfg.Page.Size = c.pageSize
	}
	if c.scale != 0 {
		cfg.Export.Scale = c.scale
	}
	if c.verify {
		cfg.Export.Verify = true
	}
	if a.style != "" {
		cfg.Assets.Style = a.style
	}
	if a.templateSet != "" {
		cfg.Assets.TemplateSet = a.templateSet
	}
	if a.assetPath != "" {
		cfg.Assets.BasePath = a.assetPath
	}
}

// exporterOptions translates a validated config into Exporter options.
func exporterOptions(cfg *config.Config, logger *slog.Logger) ([]invoicepdf.Option, error) {
	page, err := invoicepdf.ParsePageFormat(cfg.Page.Size)
	if err != nil {
		return nil, err
	}

	opts := []invoicepdf.Option{
		invoicepdf.WithPageFormat(page),
		invoicepdf.WithImageTimeout(cfg.Export.ImageTimeoutDuration()),
		invoicepdf.WithVerify(cfg.Export.Verify),
		invoicepdf.WithLogger(logger),
		invoicepdf.WithAssetPath(cfg.Assets.BasePath),
	}
	if d := cfg.Export.TimeoutDuration(); d > 0 {
		opts = append(opts, invoicepdf.WithTimeout(d))
	}
	if cfg.Export.Scale > 0 {
		opts = append(opts, invoicepdf.WithScale(cfg.Export.Scale))
	}
	if cfg.Assets.Style != "" {
		opts = append(opts, invoicepdf.WithStyle(cfg.Assets.Style))
	}
	if cfg.Assets.TemplateSet != "" {
		opts = append(opts, invoicepdf.WithTemplateSet(cfg.Assets.TemplateSet))
	}
	if cfg.Output.Creator != "" {
		opts = append(opts, invoicepdf.WithCreator(cfg.Output.Creator))
	}
	return opts, nil
}
