package pdfocr

import (
	"bytes"
	"fmt"
	"io"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"
)

// FpdfCanvas builds the output document with fpdf. Every source page is
// imported as a template and drawn full size, so the original appearance
// is kept and OCR text is layered on top.
type FpdfCanvas struct {
	pdf      *fpdf.Fpdf
	importer *gofpdi.Importer
	src      io.ReadSeeker
	font     FontConfig
	debug    bool
	pageH    float64
	inLayer  bool
}

// NewFpdfCanvas returns a canvas that imports its pages from the PDF in src.
func NewFpdfCanvas(src []byte, font FontConfig, debug bool) *FpdfCanvas {
	pdf := fpdf.New("P", "pt", "", "")
	pdf.SetCompression(true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCellMargin(0)
	pdf.SetProducer("searchpdf", false)
	pdf.SetFont(font.Name, font.Style, font.Size)

	return &FpdfCanvas{
		pdf:      pdf,
		importer: gofpdi.NewImporter(),
		src:      bytes.NewReader(src),
		font:     font,
		debug:    debug,
	}
}

// importPage adds a page sized like the source page and draws the source
// page on it.
func (c *FpdfCanvas) importPage(page Page) error {
	c.pdf.AddPageFormat("P", fpdf.SizeType{Wd: page.Width, Ht: page.Height})
	c.pageH = page.Height

	err := guard(func() error {
		tpl := c.importer.ImportPageFromStream(c.pdf, &c.src, page.Index+1, "/MediaBox")
		c.importer.UseImportedTemplate(c.pdf, tpl, 0, 0, page.Width, page.Height)
		return c.pdf.Error()
	})
	if err != nil {
		return fmt.Errorf("failed to import page %d: %w", page.Index+1, err)
	}
	return nil
}

func (c *FpdfCanvas) CopyPage(page Page) error {
	return c.importPage(page)
}

// Save writes the finished document with compressed streams.
func (c *FpdfCanvas) Save(w io.Writer) error {
	if c.inLayer {
		if err := c.EndPage(); err != nil {
			return err
		}
	}
	if err := c.pdf.Output(w); err != nil {
		return fmt.Errorf("failed to generate PDF: %w", err)
	}
	return nil
}

// takeError returns and clears the sticky fpdf error so a failed
// technique does not poison the ones after it.
func (c *FpdfCanvas) takeError() error {
	err := c.pdf.Error()
	if err != nil {
		c.pdf.ClearError()
	}
	return err
}
