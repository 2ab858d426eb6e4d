package invoicepdf

import (
	"context"
	"fmt"
	"time"

	"github.com/alnah/go-invoicepdf/internal/assets"
	"github.com/alnah/go-invoicepdf/internal/dateutil"
	"github.com/alnah/go-invoicepdf/internal/pipeline"
)

// DefaultTargetID is the id of the invoice element in rendered documents.
const DefaultTargetID = "invoice-preview"

// isoDate is the layout due dates are computed from.
const isoDate = "2006-01-02"

// invoiceRenderer turns an Invoice into a standalone HTML document.
type invoiceRenderer struct {
	html  *pipeline.InvoiceRenderer
	notes *pipeline.NotesRenderer
	now   func() time.Time

	// allowLocal lets logos and signatures use http and file URLs.
	allowLocal bool
}

// newInvoiceRenderer loads the named style and template set from loader.
func newInvoiceRenderer(loader assets.AssetLoader, style, templateSet string) (*invoiceRenderer, error) {
	css, err := loader.LoadStyle(style)
	if err != nil {
		return nil, fmt.Errorf("loading style %q: %w", style, err)
	}
	ts, err := loader.LoadTemplateSet(templateSet)
	if err != nil {
		return nil, fmt.Errorf("loading template set %q: %w", templateSet, err)
	}
	html, err := pipeline.NewInvoiceRenderer(ts.Invoice, css)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvoiceRender, err)
	}
	return &invoiceRenderer{html: html, notes: pipeline.NewNotesRenderer(), now: time.Now, allowLocal: true}, nil
}

// Render normalizes inv and renders it with the element id targetID.
func (r *invoiceRenderer) Render(ctx context.Context, inv *Invoice, targetID string) (string, error) {
	norm, err := inv.Normalized(r.now())
	if err != nil {
		return "", err
	}

	notes, err := r.notes.Render(ctx, norm.Notes)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvoiceRender, err)
	}

	view := buildView(norm, targetID, r.allowLocal)
	view.Notes = notes

	out, err := r.html.Render(ctx, view)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvoiceRender, err)
	}
	return out, nil
}

// buildView formats a normalized invoice for the template.
func buildView(inv *Invoice, targetID string, allowLocal bool) *pipeline.InvoiceView {
	cur := inv.Currency
	money := func(v float64) string { return pipeline.FormatMoney(cur, v) }
	totals := inv.Totals()

	items := make([]pipeline.ItemView, len(inv.Items))
	for i, it := range inv.Items {
		desc := it.Description
		if desc == "" {
			desc = "-"
		}
		items[i] = pipeline.ItemView{
			Description: desc,
			Quantity:    pipeline.FormatQuantity(it.Quantity),
			Price:       money(it.Price),
			Total:       money(it.Amount()),
		}
	}

	payment := pipeline.PaymentView(inv.Payment)

	v := &pipeline.InvoiceView{
		TargetID: targetID,
		Title:    "Invoice " + inv.Number,
		Company: pipeline.CompanyView{
			Name:     inv.Company.Name,
			Email:    inv.Company.Email,
			Phone:    inv.Company.Phone,
			Location: inv.Company.Location,
		},
		Logo:          pipeline.ImageURL(inv.Company.Logo, allowLocal),
		Number:        inv.Number,
		Date:          inv.Date,
		DueDate:       dueDate(inv.Date, inv.PaymentTerms),
		PaymentTerms:  inv.PaymentTerms,
		Client:        pipeline.ClientView(inv.Client),
		PriceHeader:   "Price (" + pipeline.CurrencySymbol(cur) + ")",
		Items:         items,
		Subtotal:      money(totals.Subtotal),
		TaxLabel:      adjustmentLabel("Tax", inv.Tax),
		Tax:           money(totals.Tax),
		DiscountLabel: adjustmentLabel("Discount", inv.Discount),
		Discount:      money(totals.Discount),
		Total:         money(totals.Total),
		HasPayment:    !payment.Empty(),
		Payment:       payment,
		Signature: pipeline.SignatureView{
			Name: inv.Signature.Name,
			Role: inv.Signature.Role,
		},
	}
	if inv.Signature.HasImage() {
		v.Signature.Image = pipeline.ImageURL(inv.Signature.Image, allowLocal)
	}
	return v
}

// adjustmentLabel renders "Tax (16%)" for percentages and "Tax" for flat
// amounts.
func adjustmentLabel(name string, a Adjustment) string {
	if a.Mode == AdjustFlat {
		return name
	}
	return name + " (" + pipeline.FormatRate(a.Value) + ")"
}

// dueDate derives the due date from an ISO issue date and "Net N" terms.
func dueDate(issued, terms string) string {
	t, err := time.Parse(isoDate, issued)
	if err != nil {
		return ""
	}
	due, ok := dateutil.DueDate(t, terms)
	if !ok {
		return ""
	}
	return due.Format(isoDate)
}
