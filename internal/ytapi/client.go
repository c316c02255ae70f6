// Package ytapi wraps the YouTube Data API v3 for the ingestion pipeline:
// handle resolution, playlist/search listing, batched video hydration, and
// lightweight URL probes. All Data API calls retry on rate-limit-class errors
// with exponential backoff.
package ytapi

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/youtube/v3"

	"github.com/razchen/youtube-ingest/internal/handler"
	"github.com/razchen/youtube-ingest/internal/retry"
)

const (
	apiTimeout = 20 * time.Second
	// The Data API caps videos.list at 50 IDs per request.
	maxIDsPerRequest = 50
)

type Client struct {
	svc   *youtube.Service
	cache *SnapshotCache
	rc    retry.Config
	log   zerolog.Logger
}

func New(svc *youtube.Service, cache *SnapshotCache, log zerolog.Logger) *Client {
	rc := retry.DefaultConfig
	rc.Retryable = isRetryableAPIError
	return &Client{
		svc:   svc,
		cache: cache,
		rc:    rc,
		log:   log.With().Str("component", "ytapi").Logger(),
	}
}

// countRequest is nil-safe so the client works before InitMetrics runs.
func countRequest(call string) {
	if handler.Metrics.APIRequests != nil {
		handler.Metrics.APIRequests.WithLabelValues(call).Inc()
	}
}

// ResolveChannelByHandle resolves a "@handle" to its channel snapshot.
// Returns nil, nil when the handle does not exist (not an error).
func (c *Client) ResolveChannelByHandle(ctx context.Context, handle string) (*ChannelSnapshot, error) {
	if snap := c.cache.GetChannelByHandle(ctx, handle); snap != nil {
		return snap, nil
	}

	resp, err := retry.Do(ctx, c.rc, func() (*youtube.ChannelListResponse, error) {
		callCtx, cancel := context.WithTimeout(ctx, apiTimeout)
		defer cancel()
		countRequest("channels.list")
		return c.svc.Channels.
			List([]string{"snippet", "statistics", "contentDetails", "topicDetails"}).
			ForHandle(handle).
			Context(callCtx).
			Do()
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}

	snap := newChannelSnapshot(resp.Items[0])
	c.cache.SetChannelByHandle(ctx, handle, snap)
	return snap, nil
}

// GetChannel fetches a channel snapshot by canonical ID. Returns nil, nil when
// the channel does not exist.
func (c *Client) GetChannel(ctx context.Context, channelID string) (*ChannelSnapshot, error) {
	resp, err := retry.Do(ctx, c.rc, func() (*youtube.ChannelListResponse, error) {
		callCtx, cancel := context.WithTimeout(ctx, apiTimeout)
		defer cancel()
		countRequest("channels.list")
		return c.svc.Channels.
			List([]string{"snippet", "statistics", "contentDetails", "topicDetails"}).
			Id(channelID).
			Context(callCtx).
			Do()
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}
	return newChannelSnapshot(resp.Items[0]), nil
}

// SearchVideosByChannel lists video IDs for a channel via search, newest
// first. Kept as the fallback listing strategy; the catalog pass prefers the
// uploads playlist.
func (c *Client) SearchVideosByChannel(ctx context.Context, channelID string, publishedAfter *time.Time, pageToken string) (*Page, error) {
	resp, err := retry.Do(ctx, c.rc, func() (*youtube.SearchListResponse, error) {
		callCtx, cancel := context.WithTimeout(ctx, apiTimeout)
		defer cancel()
		countRequest("search.list")
		call := c.svc.Search.
			List([]string{"id", "snippet"}).
			ChannelId(channelID).
			Type("video").
			Order("date").
			MaxResults(maxIDsPerRequest)
		if publishedAfter != nil {
			call = call.PublishedAfter(publishedAfter.UTC().Format(time.RFC3339))
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		return call.Context(callCtx).Do()
	})
	if err != nil {
		return nil, err
	}

	page := &Page{NextPageToken: resp.NextPageToken}
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		entry := PlaylistItem{VideoID: item.Id.VideoId}
		if item.Snippet != nil {
			if t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
				entry.PublishedAt = t.UTC()
			}
		}
		page.Items = append(page.Items, entry)
	}
	return page, nil
}

// ListPlaylistItems lists one page of a playlist, in the playlist's native
// order (newest first for uploads playlists).
func (c *Client) ListPlaylistItems(ctx context.Context, playlistID, pageToken string) (*Page, error) {
	resp, err := retry.Do(ctx, c.rc, func() (*youtube.PlaylistItemListResponse, error) {
		callCtx, cancel := context.WithTimeout(ctx, apiTimeout)
		defer cancel()
		countRequest("playlistItems.list")
		call := c.svc.PlaylistItems.
			List([]string{"contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(maxIDsPerRequest)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		return call.Context(callCtx).Do()
	})
	if err != nil {
		return nil, err
	}

	page := &Page{NextPageToken: resp.NextPageToken}
	for _, item := range resp.Items {
		if item.ContentDetails == nil || item.ContentDetails.VideoId == "" {
			continue
		}
		entry := PlaylistItem{VideoID: item.ContentDetails.VideoId}
		if item.ContentDetails.VideoPublishedAt != "" {
			if t, err := time.Parse(time.RFC3339, item.ContentDetails.VideoPublishedAt); err == nil {
				entry.PublishedAt = t.UTC()
			}
		}
		page.Items = append(page.Items, entry)
	}
	return page, nil
}

// GetVideosByIDs hydrates full metadata for the given IDs, batching requests
// at the API's 50-ID limit. IDs the API does not return are silently absent.
func (c *Client) GetVideosByIDs(ctx context.Context, ids []string) ([]VideoSnapshot, error) {
	var out []VideoSnapshot
	for start := 0; start < len(ids); start += maxIDsPerRequest {
		end := min(start+maxIDsPerRequest, len(ids))
		batch := ids[start:end]

		resp, err := retry.Do(ctx, c.rc, func() (*youtube.VideoListResponse, error) {
			callCtx, cancel := context.WithTimeout(ctx, apiTimeout)
			defer cancel()
			countRequest("videos.list")
			return c.svc.Videos.
				List([]string{"snippet", "statistics", "contentDetails", "status"}).
				Id(strings.Join(batch, ",")).
				Context(callCtx).
				Do()
		})
		if err != nil {
			return nil, err
		}
		for _, item := range resp.Items {
			out = append(out, newVideoSnapshot(item))
		}
	}
	return out, nil
}

// isRetryableAPIError classifies Data API errors: 429 and 5xx always retry;
// 403 retries only for rate/quota reasons; everything else falls through to
// the transient-network check.
func isRetryableAPIError(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == 429 || gerr.Code >= 500 {
			return true
		}
		if gerr.Code == 403 {
			for _, item := range gerr.Errors {
				switch item.Reason {
				case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded":
					return true
				}
			}
		}
		return false
	}
	return retry.IsTransient(err)
}
