package api

import (
	"encoding/base64"
	"encoding/json"
	"testing"
)

func TestDecodeImage_DataURL(t *testing.T) {
	raw := []byte{0x89, 0x50, 0x4e, 0x47}
	url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)

	data, mime, err := decodeImage(url)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mime != "image/png" {
		t.Errorf("expected image/png, got %q", mime)
	}
	if string(data) != string(raw) {
		t.Errorf("expected %v, got %v", raw, data)
	}
}

func TestDecodeImage_BareBase64DefaultsToJPEG(t *testing.T) {
	data, mime, err := decodeImage(base64.StdEncoding.EncodeToString([]byte("photo")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mime != "image/jpeg" {
		t.Errorf("expected image/jpeg default, got %q", mime)
	}
	if string(data) != "photo" {
		t.Errorf("unexpected payload %q", data)
	}
}

func TestDecodeImage_Invalid(t *testing.T) {
	cases := []string{"", "not base64!!!", "data:image/png;base64"}
	for _, input := range cases {
		if _, _, err := decodeImage(input); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}

func TestDecodeData_PlainObject(t *testing.T) {
	raw := json.RawMessage(`{"photoType":"portrait"}`)
	p, err := decodeData[designPayload](raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.PhotoType != "portrait" {
		t.Errorf("expected portrait, got %q", p.PhotoType)
	}
}

func TestDecodeData_ObfuscatedString(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(`{"photoType":"half-body"}`))
	raw, _ := json.Marshal(encoded)

	p, err := decodeData[designPayload](raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.PhotoType != "half-body" {
		t.Errorf("expected half-body, got %q", p.PhotoType)
	}
}

func TestDecodeData_BadBase64(t *testing.T) {
	raw, _ := json.Marshal("!!! not base64 !!!")
	if _, err := decodeData[designPayload](raw); err == nil {
		t.Error("expected error for undecodable data")
	}
}

func TestDecodeData_Empty(t *testing.T) {
	p, err := decodeData[designPayload](nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.PhotoType != "" {
		t.Errorf("expected zero payload, got %+v", p)
	}
}
