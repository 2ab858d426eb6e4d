package invoicepdf

import "context"

// Surface is the render tree an export runs against. It owns the live
// document: locating the target, staging an off-screen clone, reading and
// writing computed styles, and rasterizing the clone.
//
// The headless Chrome backend lives in rod_surface.go; tests use an
// in-memory fake.
type Surface interface {
	// Lookup returns the element whose id is targetID.
	// Returns ErrTargetNotFound when no such element exists.
	Lookup(ctx context.Context, targetID string) (Node, error)

	// Stage deep-clones target, positions the clone off-screen at the
	// target's natural width with visible overflow, and attaches it to the
	// document body.
	Stage(ctx context.Context, target Node) (Node, error)

	// Unstage detaches a clone created by Stage.
	Unstage(ctx context.Context, clone Node) error

	// ComputedStyles reads the computed style of the clone root and of
	// every descendant element, in document order.
	ComputedStyles(ctx context.Context, clone Node) (StyleSnapshot, error)

	// ApplyStyles writes inline style properties onto the clone.
	ApplyStyles(ctx context.Context, clone Node, patches []StylePatch) error

	// Images lists every <img> inside the clone, in document order.
	Images(ctx context.Context, clone Node) ([]ImageState, error)

	// AwaitImage blocks until image index has loaded or failed to load.
	// A failed load is a settled image, not an error.
	AwaitImage(ctx context.Context, clone Node, index int) error

	// Rasterize captures the whole clone as a PNG bitmap.
	Rasterize(ctx context.Context, clone Node, opts CaptureOptions) (*CaptureResult, error)
}

// Node is an opaque handle to an element owned by a Surface.
type Node struct {
	Ref string
}

// RootIndex addresses the clone root in a StylePatch.
const RootIndex = -1

// StyleSnapshot holds the computed styles read from a staged clone.
type StyleSnapshot struct {
	Root     ElementStyle   `json:"root"`
	Elements []ElementStyle `json:"elements"`
}

// ElementStyle is the subset of computed style the sanitizer reads.
// Empty strings mean the property is absent.
type ElementStyle struct {
	Index           int    `json:"index"`
	Tag             string `json:"tag"` // lower-case tag name
	Color           string `json:"color"`
	BackgroundColor string `json:"backgroundColor"`
	BorderColor     string `json:"borderColor"`
	Fill            string `json:"fill"`
	Stroke          string `json:"stroke"`
	Opacity         string `json:"opacity"`
	BackgroundImage string `json:"backgroundImage"`
	PaddingBottom   string `json:"paddingBottom"`
}

// StyleProperty is one inline CSS declaration.
type StyleProperty struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// StylePatch is the set of declarations written onto one element.
type StylePatch struct {
	Index      int             `json:"index"`
	Properties []StyleProperty `json:"properties"`
}

// Get returns the value of the named property and whether it is present.
func (p StylePatch) Get(name string) (string, bool) {
	for _, prop := range p.Properties {
		if prop.Name == name {
			return prop.Value, true
		}
	}
	return "", false
}

// ImageState describes one image inside a staged clone.
type ImageState struct {
	Index    int    `json:"index"`
	Src      string `json:"src"`
	Complete bool   `json:"complete"`
}

// CaptureOptions configures rasterization.
type CaptureOptions struct {
	Scale            float64 // device pixels per CSS pixel
	Background       string  // fill behind transparent regions
	AllowCrossOrigin bool
}

// CaptureResult is the bitmap produced by Rasterize.
// Width and Height are in device pixels.
type CaptureResult struct {
	PNG    []byte
	Width  int
	Height int
}
