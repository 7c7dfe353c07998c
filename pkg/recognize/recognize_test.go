package recognize

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/gardar/searchpdf/pkg/hocr"
	"github.com/gardar/searchpdf/pkg/pdfocr"
)

type fakeEngine struct {
	pages map[int]hocr.Page
	err   error
}

func (f *fakeEngine) Name() string { return "fake" }
func (f *fakeEngine) Close() error { return nil }

func (f *fakeEngine) RecognizeHOCR(_ context.Context, img *pdfocr.RenderedImage, _ string) (hocr.Page, error) {
	if f.err != nil {
		return hocr.Page{}, f.err
	}
	return f.pages[img.PageIndex], nil
}

func testImage(index int) *pdfocr.RenderedImage {
	return &pdfocr.RenderedImage{PageIndex: index, Image: image.NewRGBA(image.Rect(0, 0, 300, 200)), Factor: 1}
}

func linePage(words ...hocr.Word) hocr.Page {
	return hocr.Page{
		BBox:  hocr.NewBoundingBox(0, 0, 300, 200),
		Lines: []hocr.Line{{Words: words}},
	}
}

func TestWordBoxes(t *testing.T) {
	page := linePage(
		hocr.Word{Text: "Hello", BBox: hocr.NewBoundingBox(10, 20, 60, 40), Confidence: 91},
		hocr.Word{Text: "world", BBox: hocr.NewBoundingBox(70, 20, 130, 42), Confidence: -1},
	)

	boxes := WordBoxes(page)
	if len(boxes) != 2 {
		t.Fatalf("got %d boxes, want 2", len(boxes))
	}
	want := pdfocr.WordBox{Text: "Hello", Confidence: 91, Left: 10, Top: 20, Width: 50, Height: 20}
	if boxes[0] != want {
		t.Fatalf("got %+v, want %+v", boxes[0], want)
	}
	if boxes[1].Confidence != -1 || boxes[1].Height != 22 {
		t.Fatalf("unexpected second box %+v", boxes[1])
	}
}

func TestRecognizerWrapsEngineFailure(t *testing.T) {
	r := NewRecognizer(&fakeEngine{err: errors.New("engine crashed")}, nil)

	_, err := r.Recognize(context.Background(), testImage(2), "eng")
	if !errors.Is(err, pdfocr.ErrRecognition) {
		t.Fatalf("expected ErrRecognition, got %v", err)
	}
}

func TestRecognizerEmptyPageIsNotAnError(t *testing.T) {
	r := NewRecognizer(&fakeEngine{pages: map[int]hocr.Page{}}, nil)

	boxes, err := r.Recognize(context.Background(), testImage(0), "eng")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(boxes) != 0 {
		t.Fatalf("expected no boxes, got %d", len(boxes))
	}
}

func TestRecognizerHOCROrdersPages(t *testing.T) {
	engine := &fakeEngine{pages: map[int]hocr.Page{
		0: linePage(hocr.Word{Text: "first", BBox: hocr.NewBoundingBox(1, 1, 20, 10), Confidence: 90}),
		3: linePage(hocr.Word{Text: "fourth", BBox: hocr.NewBoundingBox(1, 1, 20, 10), Confidence: 90}),
	}}
	r := NewRecognizer(engine, nil)
	r.KeepHOCR = true

	for _, i := range []int{3, 0} {
		if _, err := r.Recognize(context.Background(), testImage(i), "eng"); err != nil {
			t.Fatalf("page %d: %v", i, err)
		}
	}

	doc := r.HOCR()
	if len(doc.Pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(doc.Pages))
	}
	if doc.Pages[0].PageNumber != 0 || doc.Pages[1].PageNumber != 3 {
		t.Fatalf("pages out of order: %d, %d", doc.Pages[0].PageNumber, doc.Pages[1].PageNumber)
	}
	if got := doc.Pages[1].Words()[0].Text; got != "fourth" {
		t.Fatalf("got %q on the last page", got)
	}
	if doc.Metadata["ocr-system"] != "fake" {
		t.Fatalf("ocr-system = %q", doc.Metadata["ocr-system"])
	}
}

func TestRecognizerDiscardsHOCRByDefault(t *testing.T) {
	engine := &fakeEngine{pages: map[int]hocr.Page{
		0: linePage(hocr.Word{Text: "only", BBox: hocr.NewBoundingBox(1, 1, 20, 10), Confidence: 90}),
	}}
	r := NewRecognizer(engine, nil)
	if _, err := r.Recognize(context.Background(), testImage(0), "eng"); err != nil {
		t.Fatal(err)
	}
	if n := len(r.HOCR().Pages); n != 0 {
		t.Fatalf("kept %d pages", n)
	}
}

func TestNewUnknownEngine(t *testing.T) {
	_, err := New(context.Background(), Config{Engine: "cuneiform"})
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
}

func TestNewDocumentAIRequiresProcessor(t *testing.T) {
	_, err := New(context.Background(), Config{Engine: EngineDocumentAI})
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
}

func TestNewDefaultsToTesseract(t *testing.T) {
	engine, err := New(context.Background(), Config{Strict: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tess, ok := engine.(*Tesseract)
	if !ok {
		t.Fatalf("got %T, want *Tesseract", engine)
	}
	if tess.Options.Allowlist != StrictAllowlist {
		t.Fatalf("strict config did not set the allowlist")
	}
}
