// Package imghash computes content and perceptual hashes of thumbnail images.
package imghash

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/corona10/goimagehash"
	_ "golang.org/x/image/webp"

	"github.com/razchen/youtube-ingest/pkg/hash"
)

// SHA256Hex returns the hex-encoded content hash of the raw image bytes.
func SHA256Hex(data []byte) string {
	return hash.SHA256HexBytes(data)
}

// Perceptual decodes the image and returns its 64-bit perceptual hash in
// goimagehash string form (e.g. "p:c3d4e5..."). Near-identical images map to
// hashes with small Hamming distance.
func Perceptual(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	ph, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return "", fmt.Errorf("perception hash: %w", err)
	}
	return ph.ToString(), nil
}

// Dimensions returns the native width and height of the encoded image without
// decoding pixel data.
func Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
