package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/razchen/youtube-ingest/internal/model"
)

type VideoRepo struct {
	pool *pgxpool.Pool
}

func NewVideoRepo(pool *pgxpool.Pool) *VideoRepo {
	return &VideoRepo{pool: pool}
}

const videoColumns = `video_id, channel_id, title, published_at, views, likes,
	duration_sec, made_for_kids, category, thumbnail_url, thumbnail_width,
	thumbnail_height, has_720_plus, is_short, engagement, etag,
	raw_snippet, raw_statistics, raw_content_details, fetched_at`

// Upsert inserts or replaces a video row by its ID. The catalog pass is the
// sole writer of this table.
func (r *VideoRepo) Upsert(ctx context.Context, v *model.Video) error {
	query := `
		INSERT INTO videos (video_id, channel_id, title, published_at, views, likes,
		                    duration_sec, made_for_kids, category, thumbnail_url,
		                    thumbnail_width, thumbnail_height, has_720_plus, is_short,
		                    engagement, etag, raw_snippet, raw_statistics,
		                    raw_content_details, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW())
		ON CONFLICT (video_id) DO UPDATE SET
			channel_id          = EXCLUDED.channel_id,
			title               = EXCLUDED.title,
			published_at        = EXCLUDED.published_at,
			views               = EXCLUDED.views,
			likes               = EXCLUDED.likes,
			duration_sec        = EXCLUDED.duration_sec,
			made_for_kids       = EXCLUDED.made_for_kids,
			category            = EXCLUDED.category,
			thumbnail_url       = EXCLUDED.thumbnail_url,
			thumbnail_width     = EXCLUDED.thumbnail_width,
			thumbnail_height    = EXCLUDED.thumbnail_height,
			has_720_plus        = EXCLUDED.has_720_plus,
			is_short            = EXCLUDED.is_short,
			engagement          = EXCLUDED.engagement,
			etag                = EXCLUDED.etag,
			raw_snippet         = EXCLUDED.raw_snippet,
			raw_statistics      = EXCLUDED.raw_statistics,
			raw_content_details = EXCLUDED.raw_content_details,
			fetched_at          = NOW()`

	_, err := r.pool.Exec(ctx, query,
		v.VideoID, v.ChannelID, v.Title, v.PublishedAt, v.Views, v.Likes,
		v.DurationSec, string(v.MadeForKids), v.Category, v.ThumbnailURL,
		v.ThumbnailWidth, v.ThumbnailHeight, v.Has720Plus, v.IsShort,
		v.Engagement, v.Etag, v.RawSnippet, v.RawStatistics, v.RawContentDetails,
	)
	if err != nil {
		return fmt.Errorf("upsert video %s: %w", v.VideoID, err)
	}
	return nil
}

// GetByIDs returns full rows for the given video IDs in one bulk read.
func (r *VideoRepo) GetByIDs(ctx context.Context, ids []string) ([]model.Video, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + videoColumns + ` FROM videos WHERE video_id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []model.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, *v)
	}
	return videos, rows.Err()
}

// PageCursor is the keyset cursor over (published_at, video_id); the pair is
// a stable, collision-free total order.
type PageCursor struct {
	PublishedAt time.Time
	VideoID     string
}

// VideoPointer is the lightweight row selected during eligibility paging.
type VideoPointer struct {
	VideoID     string
	ChannelID   string
	PublishedAt time.Time
}

// EligibleQuery bounds one eligibility page.
type EligibleQuery struct {
	Since         time.Time
	MinEngagement float64
	Cursor        *PageCursor
	Limit         int
}

// SelectEligiblePage returns the next page of videos eligible for enrichment:
// not short-form, 720p-capable thumbnail, engagement above threshold,
// published within the window, and with no thumbnail row yet. Ordered oldest
// first so interrupted runs resume without reprocessing advanced ranges.
func (r *VideoRepo) SelectEligiblePage(ctx context.Context, q EligibleQuery) ([]VideoPointer, error) {
	query := `
		SELECT v.video_id, v.channel_id, v.published_at
		FROM videos v
		WHERE v.is_short = FALSE
		  AND v.has_720_plus = TRUE
		  AND v.engagement IS NOT NULL AND v.engagement > $1
		  AND v.published_at >= $2
		  AND NOT EXISTS (SELECT 1 FROM thumbnails t WHERE t.video_id = v.video_id)`
	args := []any{q.MinEngagement, q.Since}

	if q.Cursor != nil {
		args = append(args, q.Cursor.PublishedAt, q.Cursor.VideoID)
		query += fmt.Sprintf(" AND (v.published_at, v.video_id) > ($%d, $%d)", len(args)-1, len(args))
	}

	args = append(args, q.Limit)
	query += fmt.Sprintf(" ORDER BY v.published_at ASC, v.video_id ASC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pointers []VideoPointer
	for rows.Next() {
		var p VideoPointer
		if err := rows.Scan(&p.VideoID, &p.ChannelID, &p.PublishedAt); err != nil {
			return nil, err
		}
		pointers = append(pointers, p)
	}
	return pointers, rows.Err()
}

func scanVideo(row pgx.Row) (*model.Video, error) {
	var v model.Video
	var kids string
	err := row.Scan(
		&v.VideoID, &v.ChannelID, &v.Title, &v.PublishedAt, &v.Views, &v.Likes,
		&v.DurationSec, &kids, &v.Category, &v.ThumbnailURL, &v.ThumbnailWidth,
		&v.ThumbnailHeight, &v.Has720Plus, &v.IsShort, &v.Engagement, &v.Etag,
		&v.RawSnippet, &v.RawStatistics, &v.RawContentDetails, &v.FetchedAt,
	)
	if err != nil {
		return nil, err
	}
	v.MadeForKids = model.Tristate(kids)
	return &v, nil
}
