package api

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-portrait-studio/internal/studio"
)

// requestBody is the envelope every action arrives in. Data stays raw until
// the action is known; each action decodes it into its own payload type.
type requestBody struct {
	Code      string          `json:"code"`
	Action    string          `json:"action"`
	Image     string          `json:"image,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"_t,omitempty"`
}

// Per-action payloads carried in the data field.

type designPayload struct {
	Person    *studio.PersonProfile `json:"person"`
	PhotoType string                `json:"photoType"`
}

type generatePayload struct {
	Person         *studio.PersonProfile `json:"person"`
	Design         *studio.PoseDesign    `json:"design"`
	PhotoType      string                `json:"photoType"`
	ReferenceImage string                `json:"referenceImage"`
}

type reviewPayload struct {
	Person         *studio.PersonProfile `json:"person"`
	PhotoType      string                `json:"photoType"`
	OriginalImage  string                `json:"originalImage"`
	GeneratedImage string                `json:"generatedImage"`
}

type processAllPayload struct {
	OriginalImage string   `json:"originalImage"`
	PhotoTypes    []string `json:"photoTypes,omitempty"`
}

type processPosePayload struct {
	OriginalImage string                `json:"originalImage"`
	PhotoType     string                `json:"photoType"`
	Person        *studio.PersonProfile `json:"person,omitempty"`
}

// decodeData unmarshals an action payload. Clients send data either as a
// plain JSON object or obfuscated as a base64-encoded JSON string; both
// forms decode to the same payload type.
func decodeData[T any](raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, nil
	}

	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return out, fmt.Errorf("invalid data field: %w", err)
		}
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to decode obfuscated data field")
			return out, fmt.Errorf("invalid obfuscated data: %w", err)
		}
		raw = decoded
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("invalid data payload: %w", err)
	}
	return out, nil
}

// decodeImage accepts either a data URL (data:image/png;base64,...) or a
// bare base64 string and returns the raw bytes plus a MIME type. Bare
// base64 is assumed to be JPEG, matching what clients upload.
func decodeImage(s string) ([]byte, string, error) {
	if s == "" {
		return nil, "", fmt.Errorf("missing image")
	}

	mimeType := "image/jpeg"
	if strings.HasPrefix(s, "data:") {
		header, payload, ok := strings.Cut(s, ",")
		if !ok {
			return nil, "", fmt.Errorf("malformed data URL")
		}
		header = strings.TrimPrefix(header, "data:")
		if mt, _, found := strings.Cut(header, ";"); found && mt != "" {
			mimeType = mt
		}
		s = payload
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, "", fmt.Errorf("invalid base64 image: %w", err)
	}
	return data, mimeType, nil
}

// encodeDataURL renders image bytes as the data URL clients consume.
func encodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// photoJSON is the wire form of a finished pose photo.
type photoJSON struct {
	ID                   string               `json:"id"`
	Type                 string               `json:"type"`
	URL                  string               `json:"url"`
	Review               *studio.ReviewResult `json:"review"`
	PromptIterations     int                  `json:"promptIterations"`
	GenerationIterations int                  `json:"generationIterations"`
	Approved             bool                 `json:"approved"`
}

func photoToJSON(p *studio.GeneratedPhoto) photoJSON {
	return photoJSON{
		ID:                   p.ID,
		Type:                 p.Pose,
		URL:                  encodeDataURL(p.ImageMIME, p.ImageData),
		Review:               p.Review,
		PromptIterations:     p.PromptIterations,
		GenerationIterations: p.GenerationIterations,
		Approved:             p.Approved,
	}
}
