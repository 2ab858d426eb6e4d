package invoicepdf

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// captureImageName is the resource name the bitmap is registered under.
// Every page references the same resource.
const captureImageName = "capture"

// PagedDocument is the PDF produced from one capture.
type PagedDocument struct {
	Pages       int
	PageWidth   float64   // points
	PageHeight  float64   // points
	ImageWidth  float64   // points, equals PageWidth
	ImageHeight float64   // points
	Offsets     []float64 // vertical offset of each page into the image
	PDF         []byte
}

// pageLayout is the placement plan for a bitmap on fixed-size pages.
type pageLayout struct {
	imageWidth  float64
	imageHeight float64
	offsets     []float64
}

// planPages fits a w×h pixel bitmap to the page width and returns the offset
// of each page. The bitmap is cut every page.Height points until its full
// height is covered; there is always at least one page.
func planPages(w, h int, page PageFormat) (pageLayout, error) {
	if w <= 0 || h <= 0 {
		return pageLayout{}, fmt.Errorf("%w: empty bitmap %dx%d", ErrPaginate, w, h)
	}
	if err := page.Validate(); err != nil {
		return pageLayout{}, fmt.Errorf("%w: %v", ErrPaginate, err)
	}

	imgH := float64(h) * page.Width / float64(w)
	offsets := []float64{0}
	for y := page.Height; y < imgH; y += page.Height {
		offsets = append(offsets, y)
	}

	return pageLayout{imageWidth: page.Width, imageHeight: imgH, offsets: offsets}, nil
}

// pdfMeta carries document metadata written into the PDF info dictionary.
type pdfMeta struct {
	Title   string
	Creator string
}

// paginate lays the capture out over pages and writes the PDF.
func paginate(capture *CaptureResult, page PageFormat, meta pdfMeta) (*PagedDocument, error) {
	layout, err := planPages(capture.Width, capture.Height, page)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: page.Width, Ht: page.Height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	if meta.Title != "" {
		pdf.SetTitle(meta.Title, true)
	}
	if meta.Creator != "" {
		pdf.SetCreator(meta.Creator, true)
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG", AllowNegativePosition: true}
	pdf.RegisterImageOptionsReader(captureImageName, opts, bytes.NewReader(capture.PNG))
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("%w: registering bitmap: %v", ErrPaginate, err)
	}

	for _, y := range layout.offsets {
		pdf.AddPage()
		pdf.ImageOptions(captureImageName, 0, -y, layout.imageWidth, layout.imageHeight, false, opts, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaginate, err)
	}

	return &PagedDocument{
		Pages:       len(layout.offsets),
		PageWidth:   page.Width,
		PageHeight:  page.Height,
		ImageWidth:  layout.imageWidth,
		ImageHeight: layout.imageHeight,
		Offsets:     layout.offsets,
		PDF:         buf.Bytes(),
	}, nil
}

// verifyPageCount parses the PDF and checks it has the planned page count.
func verifyPageCount(doc *PagedDocument) error {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(doc.PDF), conf)
	if err != nil {
		return fmt.Errorf("%w: validating output: %v", ErrEmit, err)
	}
	if ctx.PageCount != doc.Pages {
		return fmt.Errorf("%w: wrote %d pages, planned %d", ErrEmit, ctx.PageCount, doc.Pages)
	}
	return nil
}
