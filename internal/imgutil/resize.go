// Package imgutil shrinks reference photographs before they are attached to
// analysis and review calls. Identity analysis works fine on a 1024px image,
// and smaller inline blobs keep request payloads and model latency down.
// Generation calls always receive the original, full-resolution reference.
package imgutil

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // registered for image.Decode; phone uploads are JPEG or PNG

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// DefaultAnalysisMaxDimension is the maximum width or height of an image
// sent to an analysis call.
const DefaultAnalysisMaxDimension = 1024

// jpegQuality for re-encoded analysis payloads. 85 keeps facial detail
// while roughly halving typical upload sizes.
const jpegQuality = 85

// ShrinkForAnalysis downscales image data so neither dimension exceeds
// maxDimension, re-encoding as JPEG. It returns the bytes to send and their
// effective MIME type: mimeType when the data passes through untouched,
// image/jpeg after a re-encode. Images already within bounds and undecodable
// data are returned unchanged; shrinking is an optimization, never a gate.
func ShrinkForAnalysis(data []byte, mimeType string, maxDimension int) ([]byte, string) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		log.Warn().Err(err).Int("bytes", len(data)).Msg("Could not decode reference image, sending as-is")
		return data, mimeType
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= maxDimension && height <= maxDimension {
		return data, mimeType
	}

	newWidth, newHeight := scaledDimensions(width, height, maxDimension)
	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: jpegQuality}); err != nil {
		log.Warn().Err(err).Msg("Could not re-encode shrunk image, sending original")
		return data, mimeType
	}

	log.Debug().
		Str("format", format).
		Int("orig_width", width).
		Int("orig_height", height).
		Int("new_width", newWidth).
		Int("new_height", newHeight).
		Int("orig_bytes", len(data)).
		Int("new_bytes", buf.Len()).
		Msg("Shrunk reference image for analysis")

	return buf.Bytes(), "image/jpeg"
}

// scaledDimensions computes dimensions capped at maxDimension with aspect
// ratio preserved.
func scaledDimensions(width, height, maxDimension int) (int, int) {
	if width <= maxDimension && height <= maxDimension {
		return width, height
	}
	if width > height {
		return maxDimension, int(float64(height) * float64(maxDimension) / float64(width))
	}
	return int(float64(width) * float64(maxDimension) / float64(height)), maxDimension
}

// Dimensions reports the pixel dimensions of encoded image data.
func Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
