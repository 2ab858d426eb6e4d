package main

import (
	"os"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// captureFlags holds flags that tune the export pipeline.
type captureFlags struct {
	target       string
	timeout      string
	imageTimeout string
	pageSize     string
	scale        float64
	verify       bool
}

// assetFlags holds style and template selection.
type assetFlags struct {
	style       string
	templateSet string
	assetPath   string
}

// exportFlags holds all flags for the export command.
type exportFlags struct {
	common   commonFlags
	capture  captureFlags
	assets   assetFlags
	output   string
	filename string
	storage  string
	workers  int
}

// serveFlags holds all flags for the serve command.
type serveFlags struct {
	common    commonFlags
	capture   captureFlags
	assets    assetFlags
	addr      string
	publicURL string
	workers   int
	logFormat string
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show per-stage logs and timing")
}

// addCaptureFlags adds pipeline flags to a FlagSet.
func addCaptureFlags(fs *flag.FlagSet, f *captureFlags) {
	fs.StringVar(&f.target, "target", "", "id of the element to capture (default: invoice-preview)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-export timeout (e.g., 30s, 2m)")
	fs.StringVar(&f.imageTimeout, "image-timeout", "", "wait for images before capturing (e.g., 10s)")
	fs.StringVarP(&f.pageSize, "page-size", "p", "", "page size: a4, letter, legal")
	fs.Float64Var(&f.scale, "scale", 0, "capture oversampling factor (default: 2)")
	fs.BoolVar(&f.verify, "verify", false, "re-read each PDF and check its page count")
}

// addAssetFlags adds asset-related flags to a FlagSet.
func addAssetFlags(fs *flag.FlagSet, f *assetFlags) {
	fs.StringVar(&f.style, "style", "", "invoice style name")
	fs.StringVar(&f.templateSet, "template", "", "invoice template set name")
	fs.StringVar(&f.assetPath, "asset-path", "", "custom asset directory")
}

// newExportFlagSet registers the export flags into f.
func newExportFlagSet(f *exportFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)

	fs.StringVarP(&f.output, "output", "o", "", "output directory (local storage)")
	fs.StringVarP(&f.filename, "filename", "f", "", "PDF name, single input only")
	fs.StringVar(&f.storage, "storage", "", "storage driver: local, s3")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")

	addCommonFlags(fs, &f.common)
	addCaptureFlags(fs, &f.capture)
	addAssetFlags(fs, &f.assets)

	fs.Usage = func() { printExportUsage(os.Stderr) }
	return fs
}

// parseExportFlags parses export command flags and returns positional args.
func parseExportFlags(args []string) (*exportFlags, []string, error) {
	f := &exportFlags{}
	fs := newExportFlagSet(f)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// newServeFlagSet registers the serve flags into f.
func newServeFlagSet(f *serveFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)

	fs.StringVarP(&f.addr, "addr", "a", "", "listen address (default: :8080)")
	fs.StringVar(&f.publicURL, "public-url", "", "base URL of preview links")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel browsers (0 = auto)")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: text, json")

	addCommonFlags(fs, &f.common)
	addCaptureFlags(fs, &f.capture)
	addAssetFlags(fs, &f.assets)

	fs.Usage = func() { printServeUsage(os.Stderr) }
	return fs
}

// parseServeFlags parses serve command flags.
func parseServeFlags(args []string) (*serveFlags, []string, error) {
	f := &serveFlags{}
	fs := newServeFlagSet(f)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}
