package invoicepdf

import (
	"fmt"
	"strings"
)

// PageFormat is a portrait page size in PDF points.
type PageFormat struct {
	Name   string
	Width  float64
	Height float64
}

// Supported page formats.
var (
	PageA4     = PageFormat{Name: "a4", Width: 595.28, Height: 841.89}
	PageLetter = PageFormat{Name: "letter", Width: 612, Height: 792}
	PageLegal  = PageFormat{Name: "legal", Width: 612, Height: 1008}
)

// DefaultPageFormat is used when no format is configured.
var DefaultPageFormat = PageA4

var pageFormats = map[string]PageFormat{
	PageA4.Name:     PageA4,
	PageLetter.Name: PageLetter,
	PageLegal.Name:  PageLegal,
}

// ParsePageFormat resolves a format name (case-insensitive).
// An empty name yields DefaultPageFormat.
func ParsePageFormat(name string) (PageFormat, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultPageFormat, nil
	}
	f, ok := pageFormats[name]
	if !ok {
		return PageFormat{}, fmt.Errorf("%w: %q (must be a4, letter, or legal)", ErrInvalidPageFormat, name)
	}
	return f, nil
}

// Validate checks that the format has a usable size.
func (f PageFormat) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: %.2fx%.2f", ErrInvalidPageFormat, f.Width, f.Height)
	}
	return nil
}
