// Package hocr reads and writes hOCR, the HTML format OCR engines use to
// report recognized words together with their positions.
//
// The object model follows the hOCR hierarchy:
// Document → Pages → Areas → Paragraphs → Lines → Words. Tesseract's
// header, caption and floating text lines are read as ordinary lines.
//
// Main Functions:
//
// - ParseHOCR: Parses hOCR data from HTML into the object model
// - GenerateHOCRDocument: Writes the object model back out as hOCR
// - Page.Words / Page.AllLines: Flatten a page in reading order
// - ExtractHOCRText: Plain text of a whole document
package hocr
