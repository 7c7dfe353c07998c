package pdfocr

import (
	"errors"
	"fmt"
	"io"
)

// ErrUnsupported is returned by a Canvas that cannot perform an insertion
// primitive. Techniques treat it like any other failure and fall through.
var ErrUnsupported = errors.New("not supported by this canvas")

// Canvas is the output document under construction. Pages are added in
// source order; between BeginPage and EndPage the insertion primitives
// target the OCR layer of the current page.
type Canvas interface {
	CopyPage(page Page) error
	BeginPage(page Page, layerName string) error
	EndPage() error

	AppendContent(block []byte) error        // raw text object appended to the page content
	AddWidget(word MappedWord) error         // transparent form-field widget
	AddTextAnnotation(word MappedWord) error // transparent text annotation
	ShowInvisibleText(word MappedWord) error // render mode 3 text
	AddTextBox(word MappedWord) error        // zero-alpha text box

	Save(w io.Writer) error
}

// PageTechnique inserts all words of a page in one attempt.
type PageTechnique interface {
	Name() string
	Attempt(c Canvas, words []MappedWord) StrategyResult
}

// WordTechnique inserts a single word.
type WordTechnique interface {
	Name() string
	Attempt(c Canvas, word MappedWord) StrategyResult
}

// Chain is the ordered list of insertion techniques. Page techniques are
// tried first; if none succeeds every word goes through the word techniques
// until one succeeds for it.
type Chain struct {
	Page []PageTechnique
	Word []WordTechnique
}

// DefaultChain returns the standard technique order.
func DefaultChain(font FontConfig) Chain {
	return Chain{
		Page: []PageTechnique{ContentStreamInjection{Font: font}},
		Word: []WordTechnique{
			wordTechnique{"transparent widget", Canvas.AddWidget},
			wordTechnique{"transparent annotation", Canvas.AddTextAnnotation},
			wordTechnique{"invisible render mode text", Canvas.ShowInvisibleText},
			wordTechnique{"transparent text box", Canvas.AddTextBox},
		},
	}
}

// chainFor returns DefaultChain for cfg. In debug mode the page technique
// draws its words visibly, matching the word techniques.
func chainFor(cfg OCRConfig) Chain {
	ch := DefaultChain(cfg.Font)
	ch.Page = []PageTechnique{ContentStreamInjection{Font: cfg.Font, Visible: cfg.Debug}}
	return ch
}

// PageStats summarizes the insertion of one page.
type PageStats struct {
	Words    int            // Eligible words offered to the chain
	Inserted int            // Words inserted by some technique
	Skipped  int            // Words no technique could insert
	Methods  map[string]int // Inserted words per technique
}

// Insert runs the chain for one page. Failures are never returned: a word
// that no technique can place is counted as skipped.
func (ch Chain) Insert(c Canvas, words []MappedWord) PageStats {
	stats := PageStats{Words: len(words), Methods: map[string]int{}}
	if len(words) == 0 {
		return stats
	}

	for _, t := range ch.Page {
		if r := t.Attempt(c, words); r.Success {
			stats.Inserted = len(words)
			stats.Methods[r.Method] += len(words)
			return stats
		}
	}

	for _, w := range words {
		r := ch.insertWord(c, w)
		if !r.Success {
			stats.Skipped++
			continue
		}
		stats.Inserted++
		stats.Methods[r.Method]++
	}
	return stats
}

func (ch Chain) insertWord(c Canvas, w MappedWord) StrategyResult {
	last := Failed("", "no word technique configured")
	for _, t := range ch.Word {
		last = t.Attempt(c, w)
		if last.Success {
			return last
		}
	}
	return last
}

// ContentStreamInjection appends one invisible text object holding every
// word of the page to the page content.
type ContentStreamInjection struct {
	Font    FontConfig
	Visible bool // draw the words in red, for debugging
}

func (t ContentStreamInjection) Name() string { return "content stream injection" }

func (t ContentStreamInjection) Attempt(c Canvas, words []MappedWord) StrategyResult {
	block := BuildTextBlock(words, TextBlockOptions{AscentRatio: t.Font.AscentRatio, Visible: t.Visible})
	if err := guard(func() error { return c.AppendContent(block) }); err != nil {
		return Failed(t.Name(), err.Error())
	}
	return Succeeded(t.Name())
}

type wordTechnique struct {
	name   string
	insert func(Canvas, MappedWord) error
}

func (t wordTechnique) Name() string { return t.name }

func (t wordTechnique) Attempt(c Canvas, w MappedWord) StrategyResult {
	if err := guard(func() error { return t.insert(c, w) }); err != nil {
		return Failed(t.name, err.Error())
	}
	return Succeeded(t.name)
}

// guard turns a panic in a PDF backend into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
