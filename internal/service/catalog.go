package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/razchen/youtube-ingest/internal/model"
	"github.com/razchen/youtube-ingest/internal/repository"
	"github.com/razchen/youtube-ingest/internal/ytapi"
)

// videoLister is the slice of the API client the catalog pass needs.
type videoLister interface {
	ListPlaylistItems(ctx context.Context, playlistID, pageToken string) (*ytapi.Page, error)
	GetVideosByIDs(ctx context.Context, ids []string) ([]ytapi.VideoSnapshot, error)
	ProbeShortsRedirect(ctx context.Context, videoID string) ytapi.ShortsResult
}

// videoStore is the slice of the video repository the catalog pass needs.
type videoStore interface {
	Upsert(ctx context.Context, v *model.Video) error
}

// CatalogConfig bounds a catalog run. The three worker limits nest:
// channels x chunks x videos caps the worst-case total concurrency, which is
// the primary throttle against the API quota (client backoff is the last
// line of defense, not the first).
type CatalogConfig struct {
	DefaultLookback     time.Duration
	WatermarkOverlap    time.Duration
	ChannelWorkers      int
	ChunkWorkers        int
	VideoWorkers        int
	MaxVideosPerChannel int // 0 = unlimited
}

// Catalog lists each channel's new videos since its watermark, hydrates full
// metadata, derives cheap flags, and upserts video rows.
type Catalog struct {
	channels channelStore
	videos   videoStore
	yt       videoLister
	cfg      CatalogConfig
	log      zerolog.Logger
}

func NewCatalog(channels channelStore, videos videoStore, yt videoLister, cfg CatalogConfig, log zerolog.Logger) *Catalog {
	return &Catalog{
		channels: channels,
		videos:   videos,
		yt:       yt,
		cfg:      cfg,
		log:      log.With().Str("component", "catalog").Logger(),
	}
}

// CatalogSummary is the structured outcome of one catalog run.
type CatalogSummary struct {
	ChannelsProcessed int           `json:"channelsProcessed"`
	ChannelsSkipped   int           `json:"channelsSkipped"`
	ChannelsFailed    int           `json:"channelsFailed"`
	VideosSeen        int           `json:"videosSeen"`
	VideosUpserted    int           `json:"videosUpserted"`
	Elapsed           time.Duration `json:"elapsed"`
}

// catalogCounters aggregates across worker goroutines.
type catalogCounters struct {
	processed atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
	seen      atomic.Int64
	upserted  atomic.Int64
}

// RunOptions selects channels for RunFromDB.
type RunOptions struct {
	Statuses            []model.ScrapeStatus
	ChannelIDs          []string
	Limit               int
	PublishedAfter      *time.Time
	MaxVideosPerChannel int
}

// RunFromDB selects eligible channels and ingests them. No matching channels
// is a no-op, not an error.
func (c *Catalog) RunFromDB(ctx context.Context, opts RunOptions) (*CatalogSummary, error) {
	channels, err := c.channels.ListForIngest(ctx, repository.ListForIngestOptions{
		Statuses: opts.Statuses,
		IDs:      opts.ChannelIDs,
		Limit:    opts.Limit,
	})
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		c.log.Info().Msg("no channels eligible for ingest")
		return &CatalogSummary{}, nil
	}
	return c.IngestChannels(ctx, channels, opts.PublishedAfter, opts.MaxVideosPerChannel)
}

// IngestChannels runs the per-channel ingestion routine over a bounded pool.
// A channel's failure is recorded on its row and never aborts the others.
func (c *Catalog) IngestChannels(ctx context.Context, channels []model.Channel, publishedAfter *time.Time, maxPerChannel int) (*CatalogSummary, error) {
	start := time.Now()
	if maxPerChannel == 0 {
		maxPerChannel = c.cfg.MaxVideosPerChannel
	}

	var counters catalogCounters
	var g errgroup.Group
	g.SetLimit(c.cfg.ChannelWorkers)

	for _, ch := range channels {
		g.Go(func() error {
			c.ingestChannel(ctx, ch, publishedAfter, maxPerChannel, &counters)
			return nil
		})
	}
	g.Wait()

	summary := &CatalogSummary{
		ChannelsProcessed: int(counters.processed.Load()),
		ChannelsSkipped:   int(counters.skipped.Load()),
		ChannelsFailed:    int(counters.failed.Load()),
		VideosSeen:        int(counters.seen.Load()),
		VideosUpserted:    int(counters.upserted.Load()),
		Elapsed:           time.Since(start),
	}
	c.log.Info().
		Int("channels", summary.ChannelsProcessed).
		Int("skipped", summary.ChannelsSkipped).
		Int("failed", summary.ChannelsFailed).
		Int("seen", summary.VideosSeen).
		Int("upserted", summary.VideosUpserted).
		Dur("elapsed", summary.Elapsed).
		Msg("catalog pass complete")
	return summary, nil
}

// ingestChannel catalogs one channel. The deferred finalization guarantees a
// channel is never left in running: it always lands on done or error.
func (c *Catalog) ingestChannel(ctx context.Context, ch model.Channel, publishedAfter *time.Time, maxVideos int, counters *catalogCounters) {
	log := c.log.With().Str("channelId", ch.ChannelID).Logger()

	if ch.UploadsPlaylistID == nil || *ch.UploadsPlaylistID == "" {
		log.Warn().Msg("channel has no uploads playlist, skipping")
		counters.skipped.Add(1)
		return
	}

	if err := c.channels.SetScrapeStatus(ctx, ch.ChannelID, model.ScrapeRunning, nil); err != nil {
		log.Error().Err(err).Msg("failed to mark channel running")
		counters.failed.Add(1)
		return
	}

	var runErr error
	defer func() {
		// Status writes must land even when ctx was cancelled mid-run.
		finalCtx := context.WithoutCancel(ctx)
		if runErr != nil {
			msg := runErr.Error()
			if err := c.channels.SetScrapeStatus(finalCtx, ch.ChannelID, model.ScrapeError, &msg); err != nil {
				log.Error().Err(err).Msg("failed to mark channel error")
			}
			counters.failed.Add(1)
			return
		}
		if err := c.channels.SetScrapeStatus(finalCtx, ch.ChannelID, model.ScrapeDone, nil); err != nil {
			log.Error().Err(err).Msg("failed to mark channel done")
		}
		counters.processed.Add(1)
	}()

	lowerBound := EffectiveLowerBound(publishedAfter, ch.LastVideoPublishedAt, time.Now(), c.cfg.WatermarkOverlap, c.cfg.DefaultLookback)

	ids, maxObserved, err := c.collectVideoIDs(ctx, *ch.UploadsPlaylistID, lowerBound, maxVideos)
	if err != nil {
		runErr = err
		return
	}
	counters.seen.Add(int64(len(ids)))
	log.Debug().Int("videos", len(ids)).Time("lowerBound", lowerBound).Msg("collected video ids")

	if err := c.hydrateAndUpsert(ctx, ch, ids, counters); err != nil {
		runErr = err
		return
	}

	// The watermark only reflects videos actually observed in this run's
	// pagination, and only advances on success.
	if err := c.channels.UpdateMarkers(ctx, ch.ChannelID, time.Now().UTC(), maxObserved); err != nil {
		runErr = err
		return
	}
}

// collectVideoIDs pages through the uploads playlist (newest first),
// collecting IDs published at or after lowerBound and tracking the maximum
// publish time observed. Paging stops on: no next token, an item below the
// bound (listing order guarantees nothing further qualifies), or the cap —
// in which case the list is truncated exactly to the cap.
func (c *Catalog) collectVideoIDs(ctx context.Context, playlistID string, lowerBound time.Time, maxVideos int) ([]string, *time.Time, error) {
	var ids []string
	var maxObserved *time.Time
	pageToken := ""

	for {
		page, err := c.yt.ListPlaylistItems(ctx, playlistID, pageToken)
		if err != nil {
			return nil, nil, err
		}

		for _, item := range page.Items {
			if item.PublishedAt.IsZero() {
				continue
			}
			if item.PublishedAt.Before(lowerBound) {
				return ids, maxObserved, nil
			}
			ids = append(ids, item.VideoID)
			if maxObserved == nil || item.PublishedAt.After(*maxObserved) {
				t := item.PublishedAt
				maxObserved = &t
			}
			if maxVideos > 0 && len(ids) >= maxVideos {
				return ids[:maxVideos], maxObserved, nil
			}
		}

		if page.NextPageToken == "" {
			return ids, maxObserved, nil
		}
		pageToken = page.NextPageToken
	}
}

// hydrateAndUpsert fetches full metadata in API-sized chunks with bounded
// concurrency, then derives flags and upserts each video. Chunks are all
// awaited; the first chunk-level error is reported after the rest finish.
func (c *Catalog) hydrateAndUpsert(ctx context.Context, ch model.Channel, ids []string, counters *catalogCounters) error {
	const chunkSize = 50

	var g errgroup.Group
	g.SetLimit(c.cfg.ChunkWorkers)

	for start := 0; start < len(ids); start += chunkSize {
		chunk := ids[start:min(start+chunkSize, len(ids))]
		g.Go(func() error {
			snaps, err := c.yt.GetVideosByIDs(ctx, chunk)
			if err != nil {
				return err
			}
			c.upsertSnapshots(ctx, ch, snaps, counters)
			return nil
		})
	}
	return g.Wait()
}

// upsertSnapshots derives flags and writes rows with per-video isolation: one
// video's failure is logged and counted, not propagated.
func (c *Catalog) upsertSnapshots(ctx context.Context, ch model.Channel, snaps []ytapi.VideoSnapshot, counters *catalogCounters) {
	var g errgroup.Group
	g.SetLimit(c.cfg.VideoWorkers)

	for _, snap := range snaps {
		g.Go(func() error {
			video := c.buildVideo(ctx, ch, snap)
			if err := c.videos.Upsert(ctx, video); err != nil {
				c.log.Warn().Str("videoId", snap.VideoID).Err(err).Msg("video upsert failed")
				return nil
			}
			counters.upserted.Add(1)
			return nil
		})
	}
	g.Wait()
}

func (c *Catalog) buildVideo(ctx context.Context, ch model.Channel, snap ytapi.VideoSnapshot) *model.Video {
	// Probe failure degrades to "not short" rather than blocking the row.
	isShort := c.yt.ProbeShortsRedirect(ctx, snap.VideoID) == ytapi.ShortsYes

	return &model.Video{
		VideoID:           snap.VideoID,
		ChannelID:         ch.ChannelID,
		Title:             snap.Title,
		PublishedAt:       snap.PublishedAt,
		Views:             snap.Views,
		Likes:             snap.Likes,
		DurationSec:       ParseISODuration(snap.Duration),
		MadeForKids:       KidsStatus(snap.MadeForKids, snap.SelfDeclaredMadeForKids),
		Category:          snap.CategoryID,
		ThumbnailURL:      snap.ThumbnailURL,
		ThumbnailWidth:    snap.ThumbnailWidth,
		ThumbnailHeight:   snap.ThumbnailHeight,
		Has720Plus:        Has720Plus(snap.ThumbnailWidth, snap.ThumbnailHeight),
		IsShort:           isShort,
		Engagement:        Engagement(snap.Views, ch.Subscribers),
		Etag:              snap.Etag,
		RawSnippet:        snap.RawSnippet,
		RawStatistics:     snap.RawStatistics,
		RawContentDetails: snap.RawContentDetails,
	}
}
