package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// Recognizer turns raw document bytes into text plus a provider-reported
// confidence (0-100). Implementations are pluggable; the extractor picks
// one per media type.
type Recognizer interface {
	// Recognize returns the recognized text and the provider's confidence.
	Recognize(ctx context.Context, data []byte, mediaType string) (string, int, error)

	// Supports reports whether the provider can handle the media type.
	Supports(mediaType string) bool
}

// pdfTextConfidence is reported for text layers read directly out of a
// PDF; no OCR ambiguity is involved but layout may still garble lines.
const pdfTextConfidence = 90

// PDFTextRecognizer reads the embedded text layer of PDF documents with
// mupdf. It is the cheap local path; scanned image-only PDFs yield empty
// text and should fall through to an OCR provider.
type PDFTextRecognizer struct {
	logger *zap.Logger
}

// NewPDFTextRecognizer creates a PDF text-layer recognizer.
func NewPDFTextRecognizer(logger *zap.Logger) *PDFTextRecognizer {
	return &PDFTextRecognizer{logger: logger}
}

// Supports reports true for PDF documents.
func (r *PDFTextRecognizer) Supports(mediaType string) bool {
	return mediaType == "application/pdf"
}

// Recognize extracts the text layer of every page.
func (r *PDFTextRecognizer) Recognize(_ context.Context, data []byte, mediaType string) (string, int, error) {
	if !r.Supports(mediaType) {
		return "", 0, fmt.Errorf("%w: pdf recognizer cannot read %s", ErrExtractionUnavailable, mediaType)
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", 0, fmt.Errorf("%w: failed to open pdf: %v", ErrExtractionUnavailable, err)
	}
	defer doc.Close()

	var sb strings.Builder
	for page := 0; page < doc.NumPage(); page++ {
		text, err := doc.Text(page)
		if err != nil {
			r.logger.Warn("Failed to read pdf page text",
				zap.Int("page", page), zap.Error(err))
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		// Image-only PDF; this provider cannot help.
		return "", 0, fmt.Errorf("%w: pdf has no text layer", ErrExtractionUnavailable)
	}

	return text, pdfTextConfidence, nil
}
