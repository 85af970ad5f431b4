package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"google.golang.org/genai"

	"panelbridge/internal/media"
)

// Generation parameters are fixed per modality, not user-tunable. The
// multimodal call runs cooler with a larger output budget than plain text.
const (
	geminiVisionTemperature = 0.4
	geminiVisionTopK        = 32
	geminiVisionTopP        = 1
	geminiVisionMaxTokens   = 4096

	geminiTextTemperature = 0.9
	geminiTextTopK        = 1
	geminiTextTopP        = 1
	geminiTextMaxTokens   = 2048
)

// GeminiAdapter issues a single non-streaming GenerateContent call per
// request. Media attachments are forwarded as inline data.
type GeminiAdapter struct {
	apiKey  func() string
	baseURL string // test override, empty in production
}

// NewGeminiAdapter builds the hosted adapter. apiKey is consulted at call
// time so a key set after startup is picked up; a missing key surfaces as a
// per-request failure, never a startup error.
func NewGeminiAdapter(apiKey func() string) *GeminiAdapter {
	if apiKey == nil {
		apiKey = func() string { return os.Getenv("GEMINI_API_KEY") }
	}
	return &GeminiAdapter{apiKey: apiKey}
}

func (a *GeminiAdapter) Name() string { return "Gemini" }

func (a *GeminiAdapter) Capabilities() Capabilities {
	return Capabilities{Media: true}
}

func (a *GeminiAdapter) Stream(ctx context.Context, req Request) (Stream, error) {
	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		key := a.apiKey()
		if key == "" {
			return fmt.Errorf("gemini: api key not configured (set gemini.api_key or GEMINI_API_KEY)")
		}

		parts := []*genai.Part{{Text: req.Prompt}}
		multimodal := false
		if req.Media != nil {
			mimeType, payload, err := media.ParseDataURL(req.Media.DataURL)
			if err != nil {
				return fmt.Errorf("gemini: %w", err)
			}
			data, err := base64.StdEncoding.DecodeString(payload)
			if err != nil {
				return fmt.Errorf("gemini: %w: %v", media.ErrMalformedEncoding, err)
			}
			parts = append(parts, &genai.Part{
				InlineData: &genai.Blob{MIMEType: mimeType, Data: data},
			})
			multimodal = true
		}

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:      key,
			Backend:     genai.BackendGeminiAPI,
			HTTPOptions: genai.HTTPOptions{BaseURL: a.baseURL},
		})
		if err != nil {
			return fmt.Errorf("gemini: %w", err)
		}

		contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}
		resp, err := client.Models.GenerateContent(ctx, req.Model.WireCode, contents, geminiGenerationConfig(multimodal))
		if err != nil {
			return fmt.Errorf("gemini: %w", err)
		}

		events <- Event{Type: EventDone, Text: resp.Text()}
		return nil
	}), nil
}

func geminiGenerationConfig(multimodal bool) *genai.GenerateContentConfig {
	if multimodal {
		return &genai.GenerateContentConfig{
			Temperature:     genai.Ptr[float32](geminiVisionTemperature),
			TopK:            genai.Ptr[float32](geminiVisionTopK),
			TopP:            genai.Ptr[float32](geminiVisionTopP),
			MaxOutputTokens: geminiVisionMaxTokens,
		}
	}
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](geminiTextTemperature),
		TopK:            genai.Ptr[float32](geminiTextTopK),
		TopP:            genai.Ptr[float32](geminiTextTopP),
		MaxOutputTokens: geminiTextMaxTokens,
	}
}
