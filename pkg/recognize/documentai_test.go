package recognize

import (
	"context"
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
)

type fakeProcessor struct {
	doc      *documentaipb.Document
	mimeType string
}

func (f *fakeProcessor) Process(_ context.Context, _ []byte, mimeType string) (*documentaipb.Document, error) {
	f.mimeType = mimeType
	return f.doc, nil
}

func (f *fakeProcessor) Close() error { return nil }

func anchor(start, end int64) *documentaipb.Document_TextAnchor {
	return &documentaipb.Document_TextAnchor{
		TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{{StartIndex: start, EndIndex: end}},
	}
}

func poly(x0, y0, x1, y1 float32) *documentaipb.BoundingPoly {
	return &documentaipb.BoundingPoly{NormalizedVertices: []*documentaipb.NormalizedVertex{
		{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1},
	}}
}

func TestDocumentAIRecognizeHOCR(t *testing.T) {
	doc := &documentaipb.Document{
		Text: "Hello world\n",
		Pages: []*documentaipb.Document_Page{{
			PageNumber: 1,
			Dimension:  &documentaipb.Document_Page_Dimension{Width: 300, Height: 200},
			Lines: []*documentaipb.Document_Page_Line{{
				Layout: &documentaipb.Document_Page_Layout{TextAnchor: anchor(0, 12), BoundingPoly: poly(0.1, 0.1, 0.5, 0.2)},
			}},
			Tokens: []*documentaipb.Document_Page_Token{
				{Layout: &documentaipb.Document_Page_Layout{TextAnchor: anchor(0, 6), BoundingPoly: poly(0.1, 0.1, 0.25, 0.2), Confidence: 0.9}},
				{Layout: &documentaipb.Document_Page_Layout{TextAnchor: anchor(6, 12), BoundingPoly: poly(0.3, 0.1, 0.5, 0.2), Confidence: 0.5}},
			},
		}},
	}
	proc := &fakeProcessor{doc: doc}
	engine := &DocumentAI{client: proc}

	page, err := engine.RecognizeHOCR(context.Background(), testImage(0), "eng")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proc.mimeType != "image/png" {
		t.Fatalf("sent %q, want image/png", proc.mimeType)
	}

	boxes := WordBoxes(page)
	if len(boxes) != 2 {
		t.Fatalf("got %d boxes, want 2", len(boxes))
	}
	if boxes[0].Text != "Hello" || boxes[1].Text != "world" {
		t.Fatalf("unexpected words %q %q", boxes[0].Text, boxes[1].Text)
	}
	if boxes[0].Left != 30 || boxes[0].Top != 20 || boxes[0].Width != 45 || boxes[0].Height != 20 {
		t.Fatalf("unexpected first box %+v", boxes[0])
	}
}

func TestDocumentAIEmptyResponse(t *testing.T) {
	engine := &DocumentAI{client: &fakeProcessor{doc: &documentaipb.Document{}}}

	page, err := engine.RecognizeHOCR(context.Background(), testImage(0), "eng")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Words()) != 0 || page.BBox.Width() != 300 {
		t.Fatalf("unexpected page %+v", page)
	}
}
