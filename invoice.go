package invoicepdf

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-invoicepdf/internal/dateutil"
	"github.com/alnah/go-invoicepdf/internal/yamlutil"
)

// Supported currencies.
const (
	CurrencyKES = "KES"
	CurrencyUSD = "USD"
	CurrencyEUR = "EUR"
)

// DefaultCurrency is used when an invoice names none.
const DefaultCurrency = CurrencyKES

// Adjustment modes for tax and discount.
const (
	AdjustPercent = "percent"
	AdjustFlat    = "flat"
)

// Field length limits.
const (
	MaxFieldLength  = 500
	MaxNotesLength  = 10000
	MaxLineItems    = 500
	MaxImageDataLen = 2 << 20 // data URLs for logo and signature
)

// minSignatureDataLen filters out empty canvas exports.
const minSignatureDataLen = 100

// DefaultPaymentTerms is shown when an invoice sets none.
const DefaultPaymentTerms = "Due on receipt"

// Invoice is a commercial invoice as composed by the user.
type Invoice struct {
	Number       string         `yaml:"number" json:"number"`
	Date         string         `yaml:"date" json:"date"` // literal, or "auto" / "auto:FORMAT"
	PaymentTerms string         `yaml:"paymentTerms" json:"paymentTerms"`
	Currency     string         `yaml:"currency" json:"currency"`
	Company      Company        `yaml:"company" json:"company"`
	Client       Client         `yaml:"client" json:"client"`
	Items        []LineItem     `yaml:"items" json:"items"`
	Tax          Adjustment     `yaml:"tax" json:"tax"`
	Discount     Adjustment     `yaml:"discount" json:"discount"`
	Payment      PaymentDetails `yaml:"payment" json:"payment"`
	Notes        string         `yaml:"notes" json:"notes"` // Markdown
	Signature    Signature      `yaml:"signature" json:"signature"`
}

// Company is the issuer.
type Company struct {
	Name     string `yaml:"name" json:"name"`
	Email    string `yaml:"email" json:"email"`
	Phone    string `yaml:"phone" json:"phone"`
	Location string `yaml:"location" json:"location"`
	Logo     string `yaml:"logo" json:"logo"` // data URL or http(s)/file URL
}

// Client is the party billed.
type Client struct {
	Name    string `yaml:"name" json:"name"`
	Company string `yaml:"company" json:"company"`
	Email   string `yaml:"email" json:"email"`
	Address string `yaml:"address" json:"address"`
	PIN     string `yaml:"pin" json:"pin"` // tax identification number
}

// LineItem is one billed line.
type LineItem struct {
	Description string  `yaml:"description" json:"description"`
	Quantity    float64 `yaml:"quantity" json:"quantity"`
	Price       float64 `yaml:"price" json:"price"`
}

// Amount returns quantity × price.
func (li LineItem) Amount() float64 {
	return li.Quantity * li.Price
}

// Adjustment is a tax or discount, either a flat amount or a percentage of
// the subtotal. An empty mode means percent.
type Adjustment struct {
	Value float64 `yaml:"value" json:"value"`
	Mode  string  `yaml:"mode" json:"mode"`
}

// Of returns the adjustment amount for subtotal.
func (a Adjustment) Of(subtotal float64) float64 {
	if a.Mode == AdjustFlat {
		return a.Value
	}
	return subtotal * a.Value / 100
}

// PaymentDetails lists how the client can pay.
type PaymentDetails struct {
	MpesaName     string `yaml:"mpesaName" json:"mpesaName"`
	BankName      string `yaml:"bankName" json:"bankName"`
	AccountName   string `yaml:"accountName" json:"accountName"`
	AccountNumber string `yaml:"accountNumber" json:"accountNumber"`
	BranchCode    string `yaml:"branchCode" json:"branchCode"` // branch or SWIFT code
	SpecialNotes  string `yaml:"specialNotes" json:"specialNotes"`
}

// Signature is the authorised signature block.
type Signature struct {
	Image string `yaml:"image" json:"image"` // data URL
	Name  string `yaml:"name" json:"name"`
	Role  string `yaml:"role" json:"role"`
}

// HasImage reports whether the signature carries a usable image.
func (s Signature) HasImage() bool {
	return len(s.Image) > minSignatureDataLen
}

// Totals are the computed invoice amounts.
type Totals struct {
	Subtotal float64
	Tax      float64
	Discount float64
	Total    float64
}

// Totals computes subtotal, tax, discount and total.
func (inv *Invoice) Totals() Totals {
	var t Totals
	for _, it := range inv.Items {
		t.Subtotal += it.Amount()
	}
	t.Tax = inv.Tax.Of(t.Subtotal)
	t.Discount = inv.Discount.Of(t.Subtotal)
	t.Total = t.Subtotal + t.Tax - t.Discount
	return t
}

// Validate checks currency, adjustment modes, amounts and field lengths.
// All problems are reported together, each wrapped in ErrInvalidInvoice.
func (inv *Invoice) Validate() error {
	if inv == nil {
		return fmt.Errorf("%w: nil invoice", ErrInvalidInvoice)
	}

	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidInvoice}, args...)...))
	}

	switch strings.ToUpper(inv.Currency) {
	case "", CurrencyKES, CurrencyUSD, CurrencyEUR:
	default:
		add("unsupported currency %q (use KES, USD or EUR)", inv.Currency)
	}

	for name, a := range map[string]Adjustment{"tax": inv.Tax, "discount": inv.Discount} {
		switch a.Mode {
		case "", AdjustPercent, AdjustFlat:
		default:
			add("%s mode %q (use percent or flat)", name, a.Mode)
		}
		if a.Value < 0 || !isFinite(a.Value) {
			add("%s must be a non-negative number", name)
		}
	}

	if len(inv.Items) > MaxLineItems {
		add("too many line items (%d, max %d)", len(inv.Items), MaxLineItems)
	}
	for i, it := range inv.Items {
		if it.Quantity < 0 || !isFinite(it.Quantity) {
			add("item %d: quantity must be a non-negative number", i+1)
		}
		if it.Price < 0 || !isFinite(it.Price) {
			add("item %d: price must be a non-negative number", i+1)
		}
		if len(it.Description) > MaxFieldLength {
			add("item %d: description exceeds %d characters", i+1, MaxFieldLength)
		}
	}

	for name, v := range inv.textFields() {
		if len(v) > MaxFieldLength {
			add("%s exceeds %d characters", name, MaxFieldLength)
		}
	}
	if len(inv.Notes) > MaxNotesLength {
		add("notes exceed %d characters", MaxNotesLength)
	}
	if len(inv.Company.Logo) > MaxImageDataLen {
		add("company logo exceeds %d bytes", MaxImageDataLen)
	}
	if len(inv.Signature.Image) > MaxImageDataLen {
		add("signature image exceeds %d bytes", MaxImageDataLen)
	}

	return errors.Join(errs...)
}

func (inv *Invoice) textFields() map[string]string {
	return map[string]string{
		"number":                inv.Number,
		"date":                  inv.Date,
		"paymentTerms":          inv.PaymentTerms,
		"company.name":          inv.Company.Name,
		"company.email":         inv.Company.Email,
		"company.phone":         inv.Company.Phone,
		"company.location":      inv.Company.Location,
		"client.name":           inv.Client.Name,
		"client.company":        inv.Client.Company,
		"client.email":          inv.Client.Email,
		"client.address":        inv.Client.Address,
		"client.pin":            inv.Client.PIN,
		"payment.mpesaName":     inv.Payment.MpesaName,
		"payment.bankName":      inv.Payment.BankName,
		"payment.accountName":   inv.Payment.AccountName,
		"payment.accountNumber": inv.Payment.AccountNumber,
		"payment.branchCode":    inv.Payment.BranchCode,
		"payment.specialNotes":  inv.Payment.SpecialNotes,
		"signature.name":        inv.Signature.Name,
		"signature.role":        inv.Signature.Role,
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Normalized returns a copy with defaults applied against now: currency
// upper-cased (KES when empty), number "INV-<unix ms>" when empty, date
// keywords resolved ("auto" when empty), and payment terms defaulted.
func (inv *Invoice) Normalized(now time.Time) (*Invoice, error) {
	out := *inv
	out.Items = append([]LineItem(nil), inv.Items...)

	out.Currency = strings.ToUpper(strings.TrimSpace(out.Currency))
	if out.Currency == "" {
		out.Currency = DefaultCurrency
	}
	if strings.TrimSpace(out.Number) == "" {
		out.Number = "INV-" + strconv.FormatInt(now.UnixMilli(), 10)
	}
	if strings.TrimSpace(out.Date) == "" {
		out.Date = dateutil.KeywordAuto
	}
	date, err := dateutil.Resolve(out.Date, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInvoice, err)
	}
	out.Date = date
	if strings.TrimSpace(out.PaymentTerms) == "" {
		out.PaymentTerms = DefaultPaymentTerms
	}
	return &out, nil
}

// LoadInvoice decodes an invoice from a .yaml, .yml or .json file.
// Unknown fields are rejected.
func LoadInvoice(path string) (*Invoice, error) {
	var inv Invoice
	if err := yamlutil.DecodeFile(path, &inv); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidInvoice, path, err)
	}
	return &inv, nil
}
