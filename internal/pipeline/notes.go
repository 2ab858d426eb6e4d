package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// ErrNotesRender indicates the notes Markdown could not be converted.
var ErrNotesRender = errors.New("notes rendering failed")

// NotesHighlightStyle is the chroma style used for fenced code in notes.
const NotesHighlightStyle = "github"

var (
	crlfOrCR           = regexp.MustCompile(`\r\n?`)
	multipleBlankLines = regexp.MustCompile(`\n{3,}`)
)

// NotesRenderer converts free-text invoice notes (Markdown) to safe HTML.
type NotesRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewNotesRenderer creates a NotesRenderer with GFM extensions, inline
// highlighted code blocks, and a UGC sanitizing policy.
func NewNotesRenderer() *NotesRenderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(NotesHighlightStyle),
				// Inline styles: the rasterized clone carries no stylesheet classes for chroma.
				highlighting.WithFormatOptions(chromahtml.WithClasses(false)),
			),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowStyles("color", "background-color", "font-weight", "font-style", "text-decoration").
		OnElements("span", "pre", "code")

	return &NotesRenderer{md: md, policy: policy}
}

// Render converts notes to sanitized HTML. Empty notes render as "".
func (r *NotesRenderer) Render(ctx context.Context, notes string) (template.HTML, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	notes = normalizeNotes(notes)
	if notes == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(notes), &buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotesRender, err)
	}

	// #nosec G203 -- output of the bluemonday policy
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil
}

// normalizeNotes unifies line endings, caps blank runs at one empty line,
// and trims surrounding space.
func normalizeNotes(s string) string {
	s = crlfOrCR.ReplaceAllString(s, "\n")
	s = multipleBlankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
