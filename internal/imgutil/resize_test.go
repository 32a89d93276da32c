package imgutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func testImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x += 10 {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 80, A: 255})
		}
	}
	return img
}

func encodeTestJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(width, height), nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func encodeTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(width, height)); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestShrinkForAnalysis_LargeImageIsDownscaled(t *testing.T) {
	data := encodeTestJPEG(t, 2048, 1536)

	shrunk, mime := ShrinkForAnalysis(data, "image/jpeg", 1024)
	w, h, err := Dimensions(shrunk)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w != 1024 || h != 768 {
		t.Errorf("expected 1024x768, got %dx%d", w, h)
	}
	if mime != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %q", mime)
	}
}

func TestShrinkForAnalysis_ReencodedPNGReportsJPEG(t *testing.T) {
	data := encodeTestPNG(t, 2000, 1500)

	shrunk, mime := ShrinkForAnalysis(data, "image/png", 1024)
	if mime != "image/jpeg" {
		t.Errorf("expected re-encoded image to report image/jpeg, got %q", mime)
	}
	if _, format, err := image.Decode(bytes.NewReader(shrunk)); err != nil || format != "jpeg" {
		t.Errorf("expected jpeg bytes, got format %q err %v", format, err)
	}
}

func TestShrinkForAnalysis_SmallImageUnchanged(t *testing.T) {
	data := encodeTestPNG(t, 640, 480)

	shrunk, mime := ShrinkForAnalysis(data, "image/png", 1024)
	if !bytes.Equal(shrunk, data) {
		t.Error("expected image within bounds to pass through unchanged")
	}
	if mime != "image/png" {
		t.Errorf("expected original MIME to pass through, got %q", mime)
	}
}

func TestShrinkForAnalysis_UndecodableDataPassesThrough(t *testing.T) {
	data := []byte("definitely not an image")

	shrunk, mime := ShrinkForAnalysis(data, "image/jpeg", 1024)
	if !bytes.Equal(shrunk, data) {
		t.Error("expected undecodable data to pass through unchanged")
	}
	if mime != "image/jpeg" {
		t.Errorf("expected original MIME to pass through, got %q", mime)
	}
}

func TestScaledDimensions_PortraitOrientation(t *testing.T) {
	w, h := scaledDimensions(1536, 2048, 1024)
	if w != 768 || h != 1024 {
		t.Errorf("expected 768x1024, got %dx%d", w, h)
	}
}

func TestDimensions_InvalidData(t *testing.T) {
	if _, _, err := Dimensions([]byte("nope")); err == nil {
		t.Error("expected error for invalid image data")
	}
}
