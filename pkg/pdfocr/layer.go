package pdfocr

import (
	"fmt"
)

// layerTitle formats the per-page OCR layer name.
func layerTitle(layerName string, pageNum int) string {
	if pageNum > 0 {
		return fmt.Sprintf("%s (Page %d)", layerName, pageNum)
	}
	return layerName
}

// BeginPage imports the source page and opens an optional content group
// for the OCR text drawn on it.
func (c *FpdfCanvas) BeginPage(page Page, layerName string) error {
	if err := c.importPage(page); err != nil {
		return err
	}
	layer := c.pdf.AddLayer(layerName, true)
	c.pdf.BeginLayer(layer)
	if c.debug {
		c.pdf.SetTextColor(255, 0, 0) // highlight text in red
	}
	c.inLayer = true
	return c.takeError()
}

func (c *FpdfCanvas) EndPage() error {
	if !c.inLayer {
		return nil
	}
	c.pdf.EndLayer()
	c.inLayer = false
	return c.takeError()
}

// AppendContent writes block into the current page. The configured font
// is selected at size 1 right before it so the block can scale glyphs with
// its text matrix.
func (c *FpdfCanvas) AppendContent(block []byte) error {
	if len(block) == 0 {
		return nil
	}
	c.pdf.SetFont(c.font.Name, c.font.Style, 1)
	c.pdf.SetFontSize(1)
	c.pdf.RawWriteStr(string(block))
	return c.takeError()
}

func (c *FpdfCanvas) AddWidget(MappedWord) error {
	return fmt.Errorf("fpdf: form field widgets: %w", ErrUnsupported)
}

func (c *FpdfCanvas) AddTextAnnotation(MappedWord) error {
	return fmt.Errorf("fpdf: text annotations: %w", ErrUnsupported)
}

// ShowInvisibleText draws word with text rendering mode 3 at its baseline.
func (c *FpdfCanvas) ShowInvisibleText(word MappedWord) error {
	text, _ := encodeLatin1(word.Text)
	c.pdf.SetFontSize(word.FontSize)
	if !c.debug {
		c.pdf.SetTextRenderingMode(3)
	}
	// fpdf measures y from the top of the page.
	c.pdf.Text(word.X, c.pageH-word.Baseline(c.font.AscentRatio), text)
	if !c.debug {
		c.pdf.SetTextRenderingMode(0)
	}
	return c.takeError()
}

// AddTextBox fills the word rectangle with a fully transparent cell.
func (c *FpdfCanvas) AddTextBox(word MappedWord) error {
	text, _ := encodeLatin1(word.Text)
	if !c.debug {
		c.pdf.SetAlpha(0.0, "Normal") // hide text from normal view
	}
	c.pdf.SetFontSize(word.FontSize)
	c.pdf.SetXY(word.Rect.X0, word.Rect.Y0)
	c.pdf.CellFormat(word.Rect.Width(), word.Rect.Height(), text, "", 0, "LM", false, 0, "")
	if !c.debug {
		c.pdf.SetAlpha(1.0, "Normal")
	} else {
		c.pdf.Rect(word.Rect.X0, word.Rect.Y0, word.Rect.Width(), word.Rect.Height(), "D")
	}
	return c.takeError()
}
