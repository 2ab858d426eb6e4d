// Package invoicepdf exports a styled invoice element to a paginated PDF
// using headless Chrome.
//
// # Quick Start
//
// Create an exporter, export an invoice, and close when done:
//
//	exp, err := invoicepdf.NewExporter(
//	    invoicepdf.WithSaver(invoicepdf.SaverFunc(func(ctx context.Context, name string, pdf []byte) (string, error) {
//	        return name, os.WriteFile(name, pdf, 0o644)
//	    })),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exp.Close()
//
//	inv, err := invoicepdf.LoadInvoice("march.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := exp.ExportInvoice(ctx, inv, invoicepdf.Request{Filename: "INV-7.pdf"})
//
// ExportHTML does the same for an arbitrary document; the element with
// Request.TargetID (default "invoice-preview") is what ends up in the PDF.
//
// # Export Pipeline
//
// Every export runs these stages against a Surface:
//
//  1. Lookup of the target element
//  2. Staging of an off-screen clone at the target's natural width
//  3. Color sanitization: oklch() and lab() values are rewritten to rgb()
//  4. Image readiness: every <img> in the clone is awaited, up to the image timeout
//  5. Rasterization at twice the device scale, white background
//  6. Pagination onto fixed-size pages by shifting the bitmap upward
//  7. Delivery as a download (Saver) or a revocable preview URL (BlobStore)
//
// The clone is always removed, on success or failure. A second export of the
// same target on the same surface while one is running fails with
// ErrExportInFlight.
//
// # Delivery
//
// Downloads go through the Saver set with WithSaver or Request.Saver.
// Previews are requested with Request.Preview; the PDF is kept in the
// BlobStore until it expires or is revoked:
//
//	blobs := invoicepdf.NewBlobStore("https://pdf.example.com/preview")
//	exp, _ := invoicepdf.NewExporter(invoicepdf.WithBlobStore(blobs))
//	_, err := exp.ExportInvoice(ctx, inv, invoicepdf.Request{
//	    Preview: func(url string) { fmt.Println(url) },
//	})
//
// Failures are logged with full detail; a Notifier only ever receives
// FailureMessage.
//
// # Concurrency
//
// An Exporter owns one browser. For parallel exports use ExporterPool,
// which lazily starts up to n exporters sharing one BlobStore:
//
//	pool := invoicepdf.NewExporterPool(invoicepdf.ResolvePoolSize(0), blobs)
//	defer pool.Close()
//
//	exp, err := pool.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer pool.Release(exp)
//
// # Untrusted Documents
//
// Services exporting documents they did not write should use WithSandbox.
// Documents referencing local files fail with ErrLocalReference, the page
// runs without scripts, and requests to local files or private-network
// hosts are blocked.
//
// # Browser
//
// Chrome is found automatically. Set ROD_BROWSER_BIN to use a specific
// binary and ROD_NO_SANDBOX=1 inside containers and CI.
package invoicepdf
