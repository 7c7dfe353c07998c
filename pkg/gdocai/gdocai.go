// Package gdocai turns Google Document AI OCR results into hOCR.
//
// Document AI reports tokens with normalized bounding polygons. This
// package scales them to the pixel size of the processed image and
// groups them into hOCR paragraphs, lines and words, so the rest of the
// program can treat Document AI like any other hOCR-producing engine.
//
// Main Functions:
//
// - NewClient / Client.Process: Sends an image or PDF to a processor
// - CreateHOCRStruct: Converts a Document AI response to hocr.HOCR
// - CreateHOCRPage: Converts a single Document AI page
//
// Usage Requirements:
//
// - Google Cloud project with Document AI API enabled
// - Document AI processor configured for OCR
// - Credentials from Config.CredentialsFile or GOOGLE_APPLICATION_CREDENTIALS
package gdocai

// Config selects the Document AI processor.
type Config struct {
	ProjectID       string `yaml:"project_id"`
	Location        string `yaml:"location"` // e.g. "us" or "eu"
	ProcessorID     string `yaml:"processor_id"`
	CredentialsFile string `yaml:"credentials_file"` // "" = GOOGLE_APPLICATION_CREDENTIALS
}

// Enabled reports whether enough is configured to reach a processor.
func (c Config) Enabled() bool {
	return c.ProjectID != "" && c.Location != "" && c.ProcessorID != ""
}

func (c Config) processorName() string {
	return "projects/" + c.ProjectID + "/locations/" + c.Location + "/processors/" + c.ProcessorID
}
