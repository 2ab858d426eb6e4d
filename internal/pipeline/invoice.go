package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
)

// ErrTemplateRender indicates the invoice template failed to parse or execute.
var ErrTemplateRender = errors.New("invoice template rendering failed")

// InvoiceView is the fully formatted data an invoice template renders.
// Amounts are preformatted strings; Notes is already sanitized HTML.
type InvoiceView struct {
	TargetID     string
	Title        string
	Company      CompanyView
	Logo         template.URL
	Number       string
	Date         string
	DueDate      string
	PaymentTerms string
	Client       ClientView
	PriceHeader  string
	Items        []ItemView

	Subtotal      string
	TaxLabel      string
	Tax           string
	DiscountLabel string
	Discount      string
	Total         string

	HasPayment bool
	Payment    PaymentView
	Signature  SignatureView
	Notes      template.HTML
}

// CompanyView is the issuing company block.
type CompanyView struct {
	Name     string
	Email    string
	Phone    string
	Location string
}

// ClientView is the bill-to block.
type ClientView struct {
	Name    string
	Company string
	Email   string
	Address string
	PIN     string
}

// ItemView is one formatted line of the items table.
type ItemView struct {
	Description string
	Quantity    string
	Price       string
	Total       string
}

// PaymentView lists how the client can pay.
type PaymentView struct {
	MpesaName     string
	BankName      string
	AccountName   string
	AccountNumber string
	BranchCode    string
	SpecialNotes  string
}

// Empty reports whether no payment detail is set.
func (p PaymentView) Empty() bool {
	return p == PaymentView{}
}

// SignatureView is the authorised signature block.
type SignatureView struct {
	Image template.URL
	Name  string
	Role  string
}

// InvoiceRenderer executes an invoice template and injects the style.
type InvoiceRenderer struct {
	tmpl *template.Template
	css  string
}

// NewInvoiceRenderer parses tmplContent. css is injected into every
// rendered document.
func NewInvoiceRenderer(tmplContent, css string) (*InvoiceRenderer, error) {
	tmpl, err := template.New("invoice").Option("missingkey=error").Parse(tmplContent)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing: %v", ErrTemplateRender, err)
	}
	return &InvoiceRenderer{tmpl: tmpl, css: css}, nil
}

// Render produces a standalone HTML document for view.
func (r *InvoiceRenderer) Render(ctx context.Context, view *InvoiceView) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if view == nil {
		return "", fmt.Errorf("%w: nil view", ErrTemplateRender)
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}
	return InjectCSS(buf.String(), r.css), nil
}

// Image sources accepted for logos and signatures. Local sources are only
// accepted from trusted input.
var (
	remoteImagePrefixes = []string{"data:image/", "https://"}
	localImagePrefixes  = []string{"http://", "file://"}
)

// ImageURL marks src as safe for an <img> attribute when it is a data
// image or an https URL; with allowLocal, http and file URLs pass too.
// Anything else yields "".
func ImageURL(src string, allowLocal bool) template.URL {
	src = strings.TrimSpace(src)
	lower := strings.ToLower(src)
	if hasAnyPrefix(lower, remoteImagePrefixes) || (allowLocal && hasAnyPrefix(lower, localImagePrefixes)) {
		return template.URL(src) // #nosec G203 -- scheme allow-listed above
	}
	return ""
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
