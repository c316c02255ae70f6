package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/razchen/youtube-ingest/internal/model"
	"github.com/razchen/youtube-ingest/internal/repository"
	"github.com/razchen/youtube-ingest/internal/ytapi"
)

const discoverWorkers = 8

// handleResolver is the slice of the API client the directory needs.
type handleResolver interface {
	ResolveChannelByHandle(ctx context.Context, handle string) (*ytapi.ChannelSnapshot, error)
}

// channelStore is the slice of the channel repository the directory needs.
type channelStore interface {
	Upsert(ctx context.Context, ch *model.Channel) error
	ListForIngest(ctx context.Context, opts repository.ListForIngestOptions) ([]model.Channel, error)
	SetScrapeStatus(ctx context.Context, channelID string, status model.ScrapeStatus, scrapeErr *string) error
	UpdateMarkers(ctx context.Context, channelID string, ingestAt time.Time, watermark *time.Time) error
}

// Directory resolves human-readable handles to canonical channels and keeps
// the channel table's scrape bookkeeping.
type Directory struct {
	channels channelStore
	resolver handleResolver
	log      zerolog.Logger
}

func NewDirectory(channels channelStore, resolver handleResolver, log zerolog.Logger) *Directory {
	return &Directory{
		channels: channels,
		resolver: resolver,
		log:      log.With().Str("component", "directory").Logger(),
	}
}

// HandleError records one handle's failure without aborting the batch.
type HandleError struct {
	Handle string `json:"handle"`
	Error  string `json:"error"`
}

// DiscoverSummary is the structured outcome of a discovery call. A non-error
// return means "completed with possibly partial results" — callers inspect
// NotFound and Errors for degraded outcomes.
type DiscoverSummary struct {
	Processed int           `json:"processed"`
	Resolved  int           `json:"resolved"`
	Upserts   int           `json:"upserts"`
	NotFound  []string      `json:"notFound"`
	Errors    []HandleError `json:"errors"`
	Elapsed   time.Duration `json:"elapsed"`
}

// discoverRow is one input row: a handle plus optional overrides the API
// frequently omits.
type discoverRow struct {
	Handle     string   `json:"handle"`
	Country    string   `json:"country,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// DiscoverFromHandles resolves free-text handles and upserts a channel row
// for each. A single handle's failure never aborts the batch.
func (d *Directory) DiscoverFromHandles(ctx context.Context, handles []string) (*DiscoverSummary, error) {
	rows := make([]discoverRow, 0, len(handles))
	for _, h := range normalizeHandles(handles) {
		rows = append(rows, discoverRow{Handle: h})
	}
	return d.discover(ctx, rows)
}

// DiscoverFromJSON reads rows from a JSON array file. Duplicate handles are
// merged before processing; row-level country/category overrides win over
// API-provided values. A malformed file is a configuration error and aborts
// the whole call.
func (d *Directory) DiscoverFromJSON(ctx context.Context, path string) (*DiscoverSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read discovery file: %w", err)
	}
	var rows []discoverRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse discovery file %s: %w", path, err)
	}
	return d.discover(ctx, mergeRows(rows))
}

func (d *Directory) discover(ctx context.Context, rows []discoverRow) (*DiscoverSummary, error) {
	start := time.Now()
	summary := &DiscoverSummary{NotFound: []string{}, Errors: []HandleError{}}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(discoverWorkers)

	for _, row := range rows {
		g.Go(func() error {
			snap, err := d.resolver.ResolveChannelByHandle(gctx, row.Handle)

			mu.Lock()
			defer mu.Unlock()
			summary.Processed++

			switch {
			case err != nil:
				d.log.Warn().Str("handle", row.Handle).Err(err).Msg("handle resolution failed")
				summary.Errors = append(summary.Errors, HandleError{Handle: row.Handle, Error: err.Error()})
			case snap == nil:
				summary.NotFound = append(summary.NotFound, row.Handle)
			default:
				summary.Resolved++
				ch := channelFromSnapshot(snap, row)
				if err := d.channels.Upsert(gctx, ch); err != nil {
					d.log.Warn().Str("handle", row.Handle).Err(err).Msg("channel upsert failed")
					summary.Errors = append(summary.Errors, HandleError{Handle: row.Handle, Error: err.Error()})
				} else {
					summary.Upserts++
				}
			}
			return nil
		})
	}

	// Workers never return errors; Wait only observes context cancellation.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(summary.NotFound)
	summary.Elapsed = time.Since(start)
	d.log.Info().
		Int("processed", summary.Processed).
		Int("resolved", summary.Resolved).
		Int("upserts", summary.Upserts).
		Int("notFound", len(summary.NotFound)).
		Int("errors", len(summary.Errors)).
		Dur("elapsed", summary.Elapsed).
		Msg("discovery complete")
	return summary, nil
}

// ListForIngest exposes the catalog pass' channel selection query.
func (d *Directory) ListForIngest(ctx context.Context, opts repository.ListForIngestOptions) ([]model.Channel, error) {
	return d.channels.ListForIngest(ctx, opts)
}

// MarkStatus is a narrow status update by channel ID.
func (d *Directory) MarkStatus(ctx context.Context, channelID string, status model.ScrapeStatus, scrapeErr *string) error {
	return d.channels.SetScrapeStatus(ctx, channelID, status, scrapeErr)
}

// channelFromSnapshot builds the upsert row, applying row overrides over
// API-provided values.
func channelFromSnapshot(snap *ytapi.ChannelSnapshot, row discoverRow) *model.Channel {
	ch := &model.Channel{
		ChannelID:         snap.ChannelID,
		Title:             snap.Title,
		Handle:            snap.Handle,
		Country:           snap.Country,
		Categories:        row.Categories,
		Topics:            snap.Topics,
		Subscribers:       snap.Subscribers,
		Views:             snap.Views,
		VideoCount:        snap.VideoCount,
		UploadsPlaylistID: snap.UploadsPlaylistID,
		Etag:              snap.Etag,
	}
	if ch.Handle == nil {
		handle := row.Handle
		ch.Handle = &handle
	}
	if row.Country != "" {
		country := row.Country
		ch.Country = &country
	}
	return ch
}

// normalizeHandles trims, prepends the "@" marker when absent, and dedupes
// while preserving input order.
func normalizeHandles(handles []string) []string {
	seen := make(map[string]struct{}, len(handles))
	out := make([]string, 0, len(handles))
	for _, h := range handles {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if !strings.HasPrefix(h, "@") {
			h = "@" + h
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// mergeRows coalesces duplicate handles: country resolved by last non-empty
// wins, categories unioned into a deduplicated sorted list.
func mergeRows(rows []discoverRow) []discoverRow {
	index := make(map[string]int)
	var merged []discoverRow

	for _, row := range rows {
		handles := normalizeHandles([]string{row.Handle})
		if len(handles) == 0 {
			continue
		}
		handle := handles[0]

		i, ok := index[handle]
		if !ok {
			index[handle] = len(merged)
			merged = append(merged, discoverRow{
				Handle:     handle,
				Country:    row.Country,
				Categories: append([]string(nil), row.Categories...),
			})
			continue
		}
		if row.Country != "" {
			merged[i].Country = row.Country
		}
		merged[i].Categories = append(merged[i].Categories, row.Categories...)
	}

	for i := range merged {
		merged[i].Categories = dedupeSorted(merged[i].Categories)
	}
	return merged
}

func dedupeSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
