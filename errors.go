package invoicepdf

import "errors"

// Sentinel errors for export operations.
var (
	ErrTargetNotFound = errors.New("export target not found")
	ErrStage          = errors.New("failed to stage document clone")
	ErrSanitize       = errors.New("failed to sanitize document styles")
	ErrImagesNotReady = errors.New("images did not settle")
	ErrRasterize      = errors.New("rasterization failed")
	ErrPaginate       = errors.New("pagination failed")
	ErrEmit           = errors.New("failed to emit PDF")
	ErrExportInFlight = errors.New("export already in progress for target")

	// Browser errors.
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")

	// Input validation errors.
	ErrEmptyHTML         = errors.New("HTML content cannot be empty")
	ErrInvalidPageFormat = errors.New("invalid page format")
	ErrInvalidFilename   = errors.New("invalid output filename")
	ErrInvalidInvoice    = errors.New("invalid invoice")
	ErrInvoiceRender     = errors.New("invoice template rendering failed")
	ErrInvalidAssetPath  = errors.New("invalid asset path")
	ErrLocalReference    = errors.New("document references local files")

	// Preview errors.
	ErrBlobNotFound = errors.New("preview not found")
)
