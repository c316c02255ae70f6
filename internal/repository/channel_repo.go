package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/razchen/youtube-ingest/internal/model"
)

type ChannelRepo struct {
	pool *pgxpool.Pool
}

func NewChannelRepo(pool *pgxpool.Pool) *ChannelRepo {
	return &ChannelRepo{pool: pool}
}

const channelColumns = `channel_id, title, handle, country, categories, topics,
	subscribers, views, video_count, uploads_playlist_id, etag,
	last_ingest_at, last_video_published_at, scrape_status, scrape_error,
	created_at, updated_at`

// Upsert inserts or updates a channel by its ID, touching only the mutable
// metadata fields. Ingestion bookkeeping (status, watermark) is owned by the
// narrow setters below and is never overwritten here.
func (r *ChannelRepo) Upsert(ctx context.Context, ch *model.Channel) error {
	query := `
		INSERT INTO channels (channel_id, title, handle, country, categories, topics,
		                      subscribers, views, video_count, uploads_playlist_id, etag)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (channel_id) DO UPDATE SET
			title               = EXCLUDED.title,
			handle              = COALESCE(EXCLUDED.handle, channels.handle),
			country             = COALESCE(EXCLUDED.country, channels.country),
			categories          = EXCLUDED.categories,
			topics              = EXCLUDED.topics,
			subscribers         = EXCLUDED.subscribers,
			views               = EXCLUDED.views,
			video_count         = EXCLUDED.video_count,
			uploads_playlist_id = COALESCE(EXCLUDED.uploads_playlist_id, channels.uploads_playlist_id),
			etag                = EXCLUDED.etag,
			updated_at          = NOW()`

	categories := ch.Categories
	if categories == nil {
		categories = []string{}
	}
	topics := ch.Topics
	if topics == nil {
		topics = []string{}
	}

	_, err := r.pool.Exec(ctx, query,
		ch.ChannelID, ch.Title, ch.Handle, ch.Country, categories, topics,
		ch.Subscribers, ch.Views, ch.VideoCount, ch.UploadsPlaylistID, ch.Etag,
	)
	if err != nil {
		return fmt.Errorf("upsert channel %s: %w", ch.ChannelID, err)
	}
	return nil
}

// FindByChannelID returns a single channel by its ID, or nil when absent.
func (r *ChannelRepo) FindByChannelID(ctx context.Context, channelID string) (*model.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE channel_id = $1`

	ch, err := scanChannel(r.pool.QueryRow(ctx, query, channelID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// ListForIngestOptions filters the channels selected for a catalog pass.
type ListForIngestOptions struct {
	Statuses []model.ScrapeStatus // empty = any status
	IDs      []string             // explicit allow-list; empty = all channels
	Limit    int                  // 0 = no cap
}

// ListForIngest returns channels ordered by watermark ascending with
// never-ingested channels first, then by ID for determinism.
func (r *ChannelRepo) ListForIngest(ctx context.Context, opts ListForIngestOptions) ([]model.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE 1=1`
	args := []any{}

	if len(opts.Statuses) > 0 {
		statuses := make([]string, len(opts.Statuses))
		for i, s := range opts.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		query += fmt.Sprintf(" AND scrape_status = ANY($%d)", len(args))
	}
	if len(opts.IDs) > 0 {
		args = append(args, opts.IDs)
		query += fmt.Sprintf(" AND channel_id = ANY($%d)", len(args))
	}

	query += ` ORDER BY last_video_published_at ASC NULLS FIRST, channel_id ASC`

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []model.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, *ch)
	}
	return channels, rows.Err()
}

// SetScrapeStatus updates a channel's scrape status and diagnostic message.
func (r *ChannelRepo) SetScrapeStatus(ctx context.Context, channelID string, status model.ScrapeStatus, scrapeErr *string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE channels
		SET scrape_status = $1, scrape_error = $2, updated_at = NOW()
		WHERE channel_id = $3`,
		string(status), scrapeErr, channelID)
	return err
}

// UpdateMarkers records a successful catalog pass: last_ingest_at always,
// the watermark only when a newer publish time was observed.
func (r *ChannelRepo) UpdateMarkers(ctx context.Context, channelID string, ingestAt time.Time, watermark *time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE channels
		SET last_ingest_at = $1,
		    last_video_published_at = GREATEST(COALESCE($2, last_video_published_at), last_video_published_at),
		    updated_at = NOW()
		WHERE channel_id = $3`,
		ingestAt, watermark, channelID)
	return err
}

func scanChannel(row pgx.Row) (*model.Channel, error) {
	var ch model.Channel
	err := row.Scan(
		&ch.ChannelID, &ch.Title, &ch.Handle, &ch.Country, &ch.Categories, &ch.Topics,
		&ch.Subscribers, &ch.Views, &ch.VideoCount, &ch.UploadsPlaylistID, &ch.Etag,
		&ch.LastIngestAt, &ch.LastVideoPublishedAt, &ch.ScrapeStatus, &ch.ScrapeError,
		&ch.CreatedAt, &ch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ch, nil
}
