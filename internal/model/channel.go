package model

import "time"

// ScrapeStatus tracks where a channel sits in the catalog pass lifecycle.
// Transitions are monotonic within a run: any state -> running -> done|error.
// A channel is never left in running after a pass finishes.
type ScrapeStatus string

const (
	ScrapeIdle    ScrapeStatus = "idle"
	ScrapeQueued  ScrapeStatus = "queued"
	ScrapeRunning ScrapeStatus = "running"
	ScrapeError   ScrapeStatus = "error"
	ScrapeDone    ScrapeStatus = "done"
)

// Channel represents a YouTube channel tracked by the ingestion pipeline.
type Channel struct {
	ChannelID         string   `json:"channelId"`
	Title             string   `json:"title"`
	Handle            *string  `json:"handle,omitempty"`
	Country           *string  `json:"country,omitempty"`
	Categories        []string `json:"categories,omitempty"`
	Topics            []string `json:"topics,omitempty"`
	Subscribers       int64    `json:"subscribers"`
	Views             int64    `json:"views"`
	VideoCount        int64    `json:"videoCount"`
	UploadsPlaylistID *string  `json:"uploadsPlaylistId,omitempty"`
	Etag              *string  `json:"etag,omitempty"`

	// Ingestion bookkeeping. LastVideoPublishedAt is the watermark: the
	// publish time of the most recent video observed by a catalog pass.
	LastIngestAt         *time.Time   `json:"lastIngestAt,omitempty"`
	LastVideoPublishedAt *time.Time   `json:"lastVideoPublishedAt,omitempty"`
	ScrapeStatus         ScrapeStatus `json:"scrapeStatus"`
	ScrapeError          *string      `json:"scrapeError,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
