package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// VisionRecognizer transcribes scanned invoice images through the OpenAI
// vision API. The model reports its own confidence alongside the text.
type VisionRecognizer struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewVisionRecognizer creates a vision-backed recognizer.
func NewVisionRecognizer(apiKey, model string, logger *zap.Logger) *VisionRecognizer {
	return &VisionRecognizer{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

var visionMediaTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Supports reports true for scanned image formats.
func (r *VisionRecognizer) Supports(mediaType string) bool {
	return visionMediaTypes[mediaType]
}

type visionResult struct {
	Text       string `json:"text"`
	Confidence int    `json:"confidence"`
}

// Recognize sends the image to the vision model and returns its
// transcription plus self-reported confidence.
func (r *VisionRecognizer) Recognize(ctx context.Context, data []byte, mediaType string) (string, int, error) {
	if !r.Supports(mediaType) {
		return "", 0, fmt.Errorf("%w: vision recognizer cannot read %s", ErrExtractionUnavailable, mediaType)
	}

	encoded := base64.StdEncoding.EncodeToString(data)

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You transcribe scanned financial documents. Return valid JSON only.",
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: visionPrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    fmt.Sprintf("data:%s;base64,%s", mediaType, encoded),
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		r.logger.Error("Vision API call failed", zap.Error(err))
		return "", 0, fmt.Errorf("%w: vision provider: %v", ErrExtractionUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return "", 0, fmt.Errorf("%w: empty vision response", ErrExtractionUnavailable)
	}

	var result visionResult
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &result); err != nil {
		r.logger.Error("Failed to parse vision response", zap.Error(err))
		return "", 0, fmt.Errorf("%w: malformed vision response: %v", ErrExtractionUnavailable, err)
	}

	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 100 {
		result.Confidence = 100
	}

	r.logger.Debug("Vision transcription complete",
		zap.Int("confidence", result.Confidence),
		zap.Int("text_length", len(result.Text)))

	return result.Text, result.Confidence, nil
}

const visionPrompt = `Transcribe every line of text visible in this scanned document.
Preserve the reading order, one line per row of the document.

Return a JSON object:
{
  "text": "the full transcription, lines separated by \n",
  "confidence": <integer 0-100, your confidence in the transcription>
}

Do not interpret or summarize; transcribe exactly what is printed.`
