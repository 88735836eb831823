package extract

import (
	"context"
	"fmt"

	"github.com/pwalczyk/invoiceflow/internal/domain/entity"
	"go.uber.org/zap"
)

// Extractor turns raw invoice documents into structured fields. Dispatch is
// by the declared media type, never by content sniffing: exchange-native
// XML goes through the strict tag reader, everything else through a
// recognizer followed by the pattern pass.
type Extractor struct {
	recognizers []Recognizer
	logger      *zap.Logger
}

// NewExtractor creates an extractor with the given recognition providers,
// tried in order for non-structured documents.
func NewExtractor(logger *zap.Logger, recognizers ...Recognizer) *Extractor {
	return &Extractor{
		recognizers: recognizers,
		logger:      logger,
	}
}

// Extract produces structured fields from the invoice's original file.
// Partial data is returned as-is; a hard failure (no provider, no bytes)
// returns ErrExtractionUnavailable and leaves the invoice retryable.
func (e *Extractor) Extract(ctx context.Context, inv *entity.Invoice) (*entity.ExtractedFields, error) {
	data := inv.OriginalFile.Data
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: invoice %s has no bytes", ErrExtractionUnavailable, inv.ID)
	}

	if inv.OriginalFile.MediaType == entity.MediaTypeExchangeXML {
		fields, err := ParseStructured(data)
		if err != nil {
			return nil, err
		}
		e.logger.Info("Structured document parsed",
			zap.String("id", inv.ID),
			zap.String("invoice_number", fields.InvoiceNumber))
		return fields, nil
	}

	text, confidence, err := e.recognize(ctx, data, inv.OriginalFile.MediaType)
	if err != nil {
		return nil, err
	}

	fields := ExtractFromText(text, confidence)

	e.logger.Info("Document extracted from recognized text",
		zap.String("id", inv.ID),
		zap.String("media_type", inv.OriginalFile.MediaType),
		zap.Int("confidence", fields.Confidence),
		zap.String("invoice_number", fields.InvoiceNumber))

	return fields, nil
}

// recognize tries each provider that supports the media type, in order.
func (e *Extractor) recognize(ctx context.Context, data []byte, mediaType string) (string, int, error) {
	var lastErr error
	for _, r := range e.recognizers {
		if !r.Supports(mediaType) {
			continue
		}
		text, confidence, err := r.Recognize(ctx, data, mediaType)
		if err != nil {
			lastErr = err
			e.logger.Warn("Recognition provider failed, trying next",
				zap.String("media_type", mediaType), zap.Error(err))
			continue
		}
		return text, confidence, nil
	}

	if lastErr != nil {
		return "", 0, lastErr
	}
	return "", 0, fmt.Errorf("%w: no provider for media type %s", ErrExtractionUnavailable, mediaType)
}
