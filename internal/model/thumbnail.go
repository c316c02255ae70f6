package model

import (
	"encoding/json"
	"time"
)

// Dataset split labels assigned deterministically per channel.
const (
	SplitTrain = "train"
	SplitVal   = "val"
	SplitTest  = "test"
)

// Thumbnail is the enriched record for one video's thumbnail, keyed 1:1 by
// VideoID. A video with no thumbnail row is "not yet enriched", which is the
// eligibility predicate for the enrichment pass.
type Thumbnail struct {
	VideoID   string `json:"videoId"`
	ChannelID string `json:"channelId"`

	ImagePath string `json:"imagePath"`
	SourceURL string `json:"sourceUrl"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`

	// HashSHA256 is the exact-content hash (dedup/integrity); PHash is the
	// perceptual hash used for near-duplicate detection.
	HashSHA256 string `json:"hashSha256"`
	PHash      string `json:"phash"`

	OCRText      string   `json:"ocrText"`
	OCRCharCount int      `json:"ocrCharCount"`
	OCRAreaPct   *float64 `json:"ocrAreaPct,omitempty"`

	Split string   `json:"split"`
	Tags  []string `json:"tags"`

	FacesJSON   json.RawMessage `json:"faces,omitempty"`
	ObjectsJSON json.RawMessage `json:"objects,omitempty"`
	PaletteJSON json.RawMessage `json:"palette,omitempty"`
	Contrast    *float64        `json:"contrast,omitempty"`

	// Reserved for future feature extraction.
	Entropy      *float64        `json:"entropy,omitempty"`
	SaliencyJSON json.RawMessage `json:"saliency,omitempty"`

	EnrichedAt time.Time `json:"enrichedAt"`
}
