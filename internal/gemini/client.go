// Package gemini wraps the Gemini SDK behind a small Caller interface and
// layers an ordered model-fallback chain on top of it. Stage code never
// talks to the SDK directly and never picks models; stages hand the invoker a
// candidate list built once from configuration.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// Response is the slice of a model reply the pipeline cares about:
// concatenated text output plus the first inline image, if any.
type Response struct {
	Text      string
	ImageData []byte
	ImageMIME string
}

// Caller issues a single generation call against one named model. The
// production implementation is Client; tests substitute stubs to script
// failures and count calls.
type Caller interface {
	GenerateContent(ctx context.Context, model string, parts []*genai.Part, config *genai.GenerateContentConfig) (*Response, error)
}

// Client implements Caller on the Gemini SDK.
type Client struct {
	client *genai.Client
}

// NewClient creates a Gemini API client for the given key.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{client: client}, nil
}

// GenerateContent sends parts as a single user turn and extracts text and
// the first inline image from the reply.
func (c *Client) GenerateContent(ctx context.Context, model string, parts []*genai.Part, config *genai.GenerateContentConfig) (*Response, error) {
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("received empty response from Gemini API")
	}

	result := &Response{Text: resp.Text()}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && strings.HasPrefix(part.InlineData.MIMEType, "image/") {
			result.ImageData = part.InlineData.Data
			result.ImageMIME = part.InlineData.MIMEType
			break
		}
	}

	log.Debug().
		Str("model", model).
		Int("text_length", len(result.Text)).
		Int("image_bytes", len(result.ImageData)).
		Msg("Gemini call complete")

	return result, nil
}
