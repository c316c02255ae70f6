package imghash

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func gradientImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), uint8((x + y) % 256), 255})
		}
	}
	return img
}

func TestSHA256Hex(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03}
	if SHA256Hex(data) != SHA256Hex([]byte{0x01, 0x02, 0x03}) {
		t.Error("content hash should be deterministic")
	}
	if len(SHA256Hex(data)) != 64 {
		t.Errorf("hash length = %d, want 64", len(SHA256Hex(data)))
	}
}

func TestPerceptual_Deterministic(t *testing.T) {
	data := encodePNG(t, gradientImage(64, 36))

	first, err := Perceptual(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Perceptual(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("perceptual hash not deterministic: %s vs %s", first, second)
	}
	if first == "" {
		t.Error("empty perceptual hash")
	}
}

func TestPerceptual_InvalidBytes(t *testing.T) {
	if _, err := Perceptual([]byte("not an image")); err == nil {
		t.Error("expected error for non-image bytes")
	}
}

func TestDimensions(t *testing.T) {
	data := encodePNG(t, gradientImage(1280, 720))

	w, h, err := Dimensions(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w != 1280 || h != 720 {
		t.Errorf("dimensions = %dx%d, want 1280x720", w, h)
	}
}
