package ytapi

import (
	"encoding/json"
	"time"

	"google.golang.org/api/youtube/v3"
)

// ChannelSnapshot is a normalized channel resource from the Data API.
type ChannelSnapshot struct {
	ChannelID         string   `json:"channelId"`
	Title             string   `json:"title"`
	Handle            *string  `json:"handle,omitempty"`
	Country           *string  `json:"country,omitempty"`
	Topics            []string `json:"topics,omitempty"`
	Subscribers       int64    `json:"subscribers"`
	Views             int64    `json:"views"`
	VideoCount        int64    `json:"videoCount"`
	UploadsPlaylistID *string  `json:"uploadsPlaylistId,omitempty"`
	Etag              *string  `json:"etag,omitempty"`
}

// VideoSnapshot is a normalized video resource. Raw API fragments are kept so
// later passes can reuse them without another API round trip.
type VideoSnapshot struct {
	VideoID     string    `json:"videoId"`
	ChannelID   string    `json:"channelId"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"publishedAt"`
	Views       int64     `json:"views"`
	Likes       int64     `json:"likes"`
	Duration    string    `json:"duration"` // ISO-8601, e.g. PT4M13S
	CategoryID  *string   `json:"categoryId,omitempty"`

	MadeForKids             *bool `json:"madeForKids,omitempty"`
	SelfDeclaredMadeForKids *bool `json:"selfDeclaredMadeForKids,omitempty"`

	ThumbnailURL    *string `json:"thumbnailUrl,omitempty"`
	ThumbnailWidth  int     `json:"thumbnailWidth"`
	ThumbnailHeight int     `json:"thumbnailHeight"`

	Etag              *string         `json:"etag,omitempty"`
	RawSnippet        json.RawMessage `json:"rawSnippet,omitempty"`
	RawStatistics     json.RawMessage `json:"rawStatistics,omitempty"`
	RawContentDetails json.RawMessage `json:"rawContentDetails,omitempty"`
}

// PlaylistItem is one entry of a playlist listing page.
type PlaylistItem struct {
	VideoID     string
	PublishedAt time.Time
}

// Page is one page of a paginated listing. An empty NextPageToken means the
// listing is exhausted.
type Page struct {
	Items         []PlaylistItem
	NextPageToken string
}

func newChannelSnapshot(item *youtube.Channel) *ChannelSnapshot {
	snap := &ChannelSnapshot{ChannelID: item.Id}
	if item.Etag != "" {
		snap.Etag = &item.Etag
	}
	if item.Snippet != nil {
		snap.Title = item.Snippet.Title
		if item.Snippet.CustomUrl != "" {
			handle := item.Snippet.CustomUrl
			snap.Handle = &handle
		}
		if item.Snippet.Country != "" {
			country := item.Snippet.Country
			snap.Country = &country
		}
	}
	if item.Statistics != nil {
		snap.Subscribers = int64(item.Statistics.SubscriberCount)
		snap.Views = int64(item.Statistics.ViewCount)
		snap.VideoCount = int64(item.Statistics.VideoCount)
	}
	if item.ContentDetails != nil && item.ContentDetails.RelatedPlaylists != nil &&
		item.ContentDetails.RelatedPlaylists.Uploads != "" {
		uploads := item.ContentDetails.RelatedPlaylists.Uploads
		snap.UploadsPlaylistID = &uploads
	}
	if item.TopicDetails != nil {
		snap.Topics = item.TopicDetails.TopicCategories
	}
	return snap
}

func newVideoSnapshot(item *youtube.Video) VideoSnapshot {
	snap := VideoSnapshot{VideoID: item.Id}
	if item.Etag != "" {
		etag := item.Etag
		snap.Etag = &etag
	}
	if item.Snippet != nil {
		snap.ChannelID = item.Snippet.ChannelId
		snap.Title = item.Snippet.Title
		if t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
			snap.PublishedAt = t.UTC()
		}
		if item.Snippet.CategoryId != "" {
			cat := item.Snippet.CategoryId
			snap.CategoryID = &cat
		}
		if thumb := bestThumbnail(item.Snippet.Thumbnails); thumb != nil {
			snap.ThumbnailURL = &thumb.Url
			snap.ThumbnailWidth = int(thumb.Width)
			snap.ThumbnailHeight = int(thumb.Height)
		}
		snap.RawSnippet, _ = json.Marshal(item.Snippet)
	}
	if item.Statistics != nil {
		snap.Views = int64(item.Statistics.ViewCount)
		snap.Likes = int64(item.Statistics.LikeCount)
		snap.RawStatistics, _ = json.Marshal(item.Statistics)
	}
	if item.ContentDetails != nil {
		snap.Duration = item.ContentDetails.Duration
		snap.RawContentDetails, _ = json.Marshal(item.ContentDetails)
	}
	if item.Status != nil {
		// The client library collapses an absent madeForKids to false; only a
		// true value is taken as a definite signal here.
		if item.Status.MadeForKids {
			v := true
			snap.MadeForKids = &v
		}
		if item.Status.SelfDeclaredMadeForKids {
			v := true
			snap.SelfDeclaredMadeForKids = &v
		}
	}
	return snap
}

// bestThumbnail prefers max resolution, then standard, then high, then the
// smaller variants, matching the enrichment pass' source preference.
func bestThumbnail(t *youtube.ThumbnailDetails) *youtube.Thumbnail {
	if t == nil {
		return nil
	}
	for _, cand := range []*youtube.Thumbnail{t.Maxres, t.Standard, t.High, t.Medium, t.Default} {
		if cand != nil && cand.Url != "" {
			return cand
		}
	}
	return nil
}
