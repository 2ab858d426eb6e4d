package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alnah/go-invoicepdf/internal/assets"
)

func defaultRenderer(t *testing.T) *InvoiceRenderer {
	t.Helper()

	loader := assets.NewEmbeddedLoader()
	ts, err := loader.LoadTemplateSet(assets.DefaultTemplateSetName)
	if err != nil {
		t.Fatalf("LoadTemplateSet() error = %v", err)
	}
	css, err := loader.LoadStyle(assets.DefaultStyleName)
	if err != nil {
		t.Fatalf("LoadStyle() error = %v", err)
	}
	r, err := NewInvoiceRenderer(ts.Invoice, css)
	if err != nil {
		t.Fatalf("NewInvoiceRenderer() error = %v", err)
	}
	return r
}

func sampleView() *InvoiceView {
	return &InvoiceView{
		TargetID:      "invoice-preview",
		Title:         "Invoice INV-7",
		Company:       CompanyView{Name: "Acme Ltd", Email: "billing@acme.test"},
		Number:        "INV-7",
		Date:          "2026-03-07",
		DueDate:       "2026-04-06",
		PaymentTerms:  "Net 30",
		Client:        ClientView{Name: "Jane <Doe>", PIN: "P051"},
		PriceHeader:   "Price (KSh)",
		Items:         []ItemView{{Description: "Design", Quantity: "2", Price: "KSh 50.00", Total: "KSh 100.00"}},
		Subtotal:      "KSh 100.00",
		TaxLabel:      "Tax (16%)",
		Tax:           "KSh 16.00",
		DiscountLabel: "Discount (0%)",
		Discount:      "KSh 0.00",
		Total:         "KSh 116.00",
		HasPayment:    true,
		Payment:       PaymentView{MpesaName: "ACME"},
		Signature:     SignatureView{Name: "J. Mwangi", Role: "Director"},
		Notes:         "<p>Thanks</p>",
	}
}

func TestInvoiceRenderer_Render(t *testing.T) {
	t.Parallel()

	got, err := defaultRenderer(t).Render(context.Background(), sampleView())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	for _, want := range []string{
		`id="invoice-preview"`,
		"<style>",
		"Acme Ltd",
		"Invoice #: INV-7",
		"Due: 2026-04-06",
		"Jane &lt;Doe&gt;",
		"PIN: P051",
		"KSh 116.00",
		"Tax (16%)",
		"M-Pesa Name: ACME",
		"No signature provided",
		"<p>Thanks</p>",
		"No Logo",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("rendered invoice should contain %q", want)
		}
	}
	if strings.Index(got, "<style>") > strings.Index(got, "</head>") {
		t.Error("style should be injected into head")
	}
}

func TestInvoiceRenderer_EmptyItems(t *testing.T) {
	t.Parallel()

	v := sampleView()
	v.Items = nil
	v.HasPayment = false

	got, err := defaultRenderer(t).Render(context.Background(), v)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(got, "No items added yet") {
		t.Error("empty items should render placeholder row")
	}
	if strings.Contains(got, "Payment Details") {
		t.Error("payment section should be hidden when empty")
	}
}

func TestInvoiceRenderer_Errors(t *testing.T) {
	t.Parallel()

	if _, err := NewInvoiceRenderer("{{.Broken", ""); !errors.Is(err, ErrTemplateRender) {
		t.Errorf("parse error = %v, want ErrTemplateRender", err)
	}

	r, err := NewInvoiceRenderer("{{.Missing}}", "")
	if err != nil {
		t.Fatalf("NewInvoiceRenderer() error = %v", err)
	}
	if _, err := r.Render(context.Background(), sampleView()); !errors.Is(err, ErrTemplateRender) {
		t.Errorf("execute error = %v, want ErrTemplateRender", err)
	}
	if _, err := r.Render(context.Background(), nil); !errors.Is(err, ErrTemplateRender) {
		t.Errorf("nil view error = %v, want ErrTemplateRender", err)
	}
}

func TestImageURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src        string
		allowLocal bool
		want       string
	}{
		{src: "data:image/png;base64,AAAA", want: "data:image/png;base64,AAAA"},
		{src: " https://cdn.example.com/logo.png ", want: "https://cdn.example.com/logo.png"},
		{src: "file:///tmp/logo.png", allowLocal: true, want: "file:///tmp/logo.png"},
		{src: "http://intranet/logo.png", allowLocal: true, want: "http://intranet/logo.png"},
		{src: "file:///etc/passwd", want: ""},
		{src: "FILE:///etc/passwd", want: ""},
		{src: "http://169.254.169.254/latest", want: ""},
		{src: "javascript:alert(1)", allowLocal: true, want: ""},
		{src: "data:text/html,<b>x</b>", allowLocal: true, want: ""},
		{src: "", want: ""},
	}
	for _, tt := range tests {
		if got := ImageURL(tt.src, tt.allowLocal); string(got) != tt.want {
			t.Errorf("ImageURL(%q, %v) = %q, want %q", tt.src, tt.allowLocal, got, tt.want)
		}
	}
}

func TestInjectCSS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		css  string
		want string
	}{
		{name: "head", html: "<html><head></head><body></body></html>", css: "a{}", want: "<html><head><style>a{}</style></head><body></body></html>"},
		{name: "body only", html: `<body class="x"><p></p></body>`, css: "a{}", want: `<body class="x"><style>a{}</style><p></p></body>`},
		{name: "fragment", html: "<p></p>", css: "a{}", want: "<style>a{}</style><p></p>"},
		{name: "empty css", html: "<p></p>", css: "", want: "<p></p>"},
		{name: "closing tag escaped", html: "<p></p>", css: "a{}</style><script>", want: `<style>a{}<\/style><script></style><p></p>`},
	}
	for _, tt := range tests {
		if got := InjectCSS(tt.html, tt.css); got != tt.want {
			t.Errorf("%s: InjectCSS() = %q, want %q", tt.name, got, tt.want)
		}
	}
}
