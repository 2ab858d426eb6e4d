package main

import (
	"context"
	"errors"
	"os"

	invoicepdf "github.com/alnah/go-invoicepdf"
	"github.com/alnah/go-invoicepdf/internal/assets"
	"github.com/alnah/go-invoicepdf/internal/config"
	"github.com/alnah/go-invoicepdf/internal/hints"
	"github.com/alnah/go-invoicepdf/internal/logging"
	"github.com/alnah/go-invoicepdf/internal/storage"
)

// Exit codes for the invoicepdf CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // All exports succeeded
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or invoice
	ExitIO      = 3 // File not found, permission denied, storage failure
	ExitBrowser = 4 // Browser/Chrome errors
	ExitExport  = 5 // Capture pipeline failed
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser errors (exit 4)
	if errors.Is(err, invoicepdf.ErrBrowserConnect) ||
		errors.Is(err, invoicepdf.ErrPageCreate) ||
		errors.Is(err, invoicepdf.ErrPageLoad) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrNoInput) ||
		errors.Is(err, ErrReadInput) ||
		errors.Is(err, storage.ErrInvalidDir) ||
		errors.Is(err, storage.ErrWrite) ||
		errors.Is(err, storage.ErrUpload) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, logging.ErrInvalidLevel) ||
		errors.Is(err, logging.ErrInvalidFormat) ||
		errors.Is(err, storage.ErrS3Config) ||
		errors.Is(err, storage.ErrUnknownDriver) ||
		errors.Is(err, invoicepdf.ErrInvalidInvoice) ||
		errors.Is(err, invoicepdf.ErrInvalidFilename) ||
		errors.Is(err, invoicepdf.ErrInvalidPageFormat) ||
		errors.Is(err, invoicepdf.ErrInvalidAssetPath) ||
		errors.Is(err, invoicepdf.ErrEmptyHTML) ||
		errors.Is(err, invoicepdf.ErrLocalReference) ||
		errors.Is(err, assets.ErrStyleNotFound) ||
		errors.Is(err, assets.ErrTemplateSetNotFound) ||
		errors.Is(err, ErrUnsupportedInput) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, ErrUsage) {
		return ExitUsage
	}

	// Pipeline errors (exit 5)
	if errors.Is(err, ErrExportsFailed) ||
		errors.Is(err, invoicepdf.ErrTargetNotFound) ||
		errors.Is(err, invoicepdf.ErrStage) ||
		errors.Is(err, invoicepdf.ErrSanitize) ||
		errors.Is(err, invoicepdf.ErrRasterize) ||
		errors.Is(err, invoicepdf.ErrPaginate) ||
		errors.Is(err, invoicepdf.ErrEmit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return ExitExport
	}

	return ExitGeneral
}

// formatError renders a top-level error with its hint.
func formatError(err error) string {
	return "error: " + err.Error() + hintFor(err, "")
}

// hintFor returns an actionable hint for err, or "". targetID names the
// element that was looked up, when known.
func hintFor(err error, targetID string) string {
	switch {
	case errors.Is(err, invoicepdf.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound([]string{config.UserConfigPath(userConfigName)})
	case errors.Is(err, storage.ErrInvalidDir):
		return hints.ForOutputDirectory()
	case errors.Is(err, storage.ErrUpload), errors.Is(err, storage.ErrS3Config):
		return hints.ForStorage()
	case errors.Is(err, assets.ErrStyleNotFound):
		return hints.ForStyleNotFound(assets.StyleNames())
	case errors.Is(err, assets.ErrTemplateSetNotFound):
		return hints.ForTemplateSetNotFound(assets.TemplateSetNames())
	case errors.Is(err, invoicepdf.ErrTargetNotFound):
		if targetID == "" {
			targetID = invoicepdf.DefaultTargetID
		}
		return hints.ForTargetNotFound(targetID)
	case errors.Is(err, ErrUnsupportedInput), errors.Is(err, invoicepdf.ErrInvalidInvoice):
		return hints.ForInvoiceFile()
	}
	return ""
}
