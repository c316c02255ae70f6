package model

import (
	"encoding/json"
	"time"
)

// Tristate is a three-valued flag for fields where the API distinguishes
// "explicitly false" from "not declared" (e.g. made-for-kids).
type Tristate string

const (
	TriTrue    Tristate = "true"
	TriFalse   Tristate = "false"
	TriUnknown Tristate = "unknown"
)

// TristateFromBool maps an optional boolean to a Tristate.
func TristateFromBool(b *bool) Tristate {
	if b == nil {
		return TriUnknown
	}
	if *b {
		return TriTrue
	}
	return TriFalse
}

// Video represents one cataloged video. Rows are written only by the catalog
// pass; the enrichment pass reads them and joins by VideoID.
type Video struct {
	VideoID     string    `json:"videoId"`
	ChannelID   string    `json:"channelId"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"publishedAt"`
	Views       int64     `json:"views"`
	Likes       int64     `json:"likes"`
	DurationSec int       `json:"durationSec"`
	MadeForKids Tristate  `json:"madeForKids"`
	Category    *string   `json:"category,omitempty"`

	// Best thumbnail candidate as reported by the API.
	ThumbnailURL    *string `json:"thumbnailUrl,omitempty"`
	ThumbnailWidth  int     `json:"thumbnailWidth"`
	ThumbnailHeight int     `json:"thumbnailHeight"`

	// Derived flags, computed at catalog time.
	Has720Plus bool     `json:"has720Plus"`
	IsShort    bool     `json:"isShort"`
	Engagement *float64 `json:"engagement,omitempty"`

	// Raw API fragments cached to avoid redundant refetches. Absence means
	// "must re-fetch", never an error.
	Etag              *string         `json:"etag,omitempty"`
	RawSnippet        json.RawMessage `json:"rawSnippet,omitempty"`
	RawStatistics     json.RawMessage `json:"rawStatistics,omitempty"`
	RawContentDetails json.RawMessage `json:"rawContentDetails,omitempty"`

	FetchedAt time.Time `json:"fetchedAt"`
}
