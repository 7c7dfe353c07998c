// Package pdftext reads page geometry and extractable text from PDFs and
// verifies that a finished document is searchable.
package pdftext

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/gardar/searchpdf/pkg/pdfocr"
)

// US Letter, used when a page has no usable MediaBox.
const (
	defaultWidth  = 612.0
	defaultHeight = 792.0
)

// Document is an open PDF.
type Document struct {
	f *os.File
	r *pdf.Reader
}

// Open opens the PDF at path for reading.
func Open(path string) (doc *Document, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			f.Close()
			doc, err = nil, fmt.Errorf("malformed pdf %s: %v", path, r)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	r, err := pdf.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	return &Document{f: f, r: r}, nil
}

// Close releases the underlying file.
func (d *Document) Close() error {
	return d.f.Close()
}

// NumPages returns the page count.
func (d *Document) NumPages() int {
	return d.r.NumPage()
}

// Page returns page index (0-based) with its geometry and text.
func (d *Document) Page(index int) (page pdfocr.Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf page %d: %v", index+1, r)
		}
	}()

	p := d.r.Page(index + 1)
	if p.V.IsNull() {
		return pdfocr.Page{}, fmt.Errorf("read pdf page %d: no such page", index+1)
	}

	w, h := mediaBox(p)
	page = pdfocr.Page{Index: index, Width: w, Height: h}

	page.Text, err = pageText(p)
	if err != nil {
		return page, fmt.Errorf("read pdf page %d: %w", index+1, err)
	}
	return page, nil
}

// Pages returns every page in order.
func (d *Document) Pages() ([]pdfocr.Page, error) {
	pages := make([]pdfocr.Page, 0, d.NumPages())
	for i := 0; i < d.NumPages(); i++ {
		p, err := d.Page(i)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// mediaBox returns the page size from the nearest MediaBox up the page
// tree, falling back to US Letter.
func mediaBox(p pdf.Page) (width, height float64) {
	for v := p.V; !v.IsNull(); v = v.Key("Parent") {
		box := v.Key("MediaBox")
		if box.Kind() != pdf.Array || box.Len() < 4 {
			continue
		}
		w := box.Index(2).Float64() - box.Index(0).Float64()
		h := box.Index(3).Float64() - box.Index(1).Float64()
		if w > 0 && h > 0 {
			return w, h
		}
	}
	return defaultWidth, defaultHeight
}

// Reader lists pages of PDFs on disk. It satisfies pdfocr.PageSource.
type Reader struct{}

func (Reader) Pages(ctx context.Context, path string) ([]pdfocr.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	return doc.Pages()
}

// CountChars returns the number of characters of trimmed text over all pages.
func CountChars(path string) (int, error) {
	doc, err := Open(path)
	if err != nil {
		return 0, err
	}
	defer doc.Close()

	total := 0
	for i := 0; i < doc.NumPages(); i++ {
		p, err := doc.Page(i)
		if err != nil {
			return 0, err
		}
		total += len([]rune(strings.TrimSpace(p.Text)))
	}
	return total, nil
}
