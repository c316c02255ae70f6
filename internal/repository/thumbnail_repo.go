package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/razchen/youtube-ingest/internal/model"
)

type ThumbnailRepo struct {
	pool *pgxpool.Pool
}

func NewThumbnailRepo(pool *pgxpool.Pool) *ThumbnailRepo {
	return &ThumbnailRepo{pool: pool}
}

// Upsert inserts or replaces the enriched record for a video. Exactly one row
// exists per video ID; the enrichment pass is the sole writer.
func (r *ThumbnailRepo) Upsert(ctx context.Context, t *model.Thumbnail) error {
	query := `
		INSERT INTO thumbnails (video_id, channel_id, image_path, source_url, width,
		                        height, hash_sha256, phash, ocr_text, ocr_char_count,
		                        ocr_area_pct, split, tags, faces, objects, palette,
		                        contrast, entropy, saliency, enriched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW())
		ON CONFLICT (video_id) DO UPDATE SET
			channel_id     = EXCLUDED.channel_id,
			image_path     = EXCLUDED.image_path,
			source_url     = EXCLUDED.source_url,
			width          = EXCLUDED.width,
			height         = EXCLUDED.height,
			hash_sha256    = EXCLUDED.hash_sha256,
			phash          = EXCLUDED.phash,
			ocr_text       = EXCLUDED.ocr_text,
			ocr_char_count = EXCLUDED.ocr_char_count,
			ocr_area_pct   = EXCLUDED.ocr_area_pct,
			split          = EXCLUDED.split,
			tags           = EXCLUDED.tags,
			faces          = EXCLUDED.faces,
			objects        = EXCLUDED.objects,
			palette        = EXCLUDED.palette,
			contrast       = EXCLUDED.contrast,
			entropy        = EXCLUDED.entropy,
			saliency       = EXCLUDED.saliency,
			enriched_at    = NOW()`

	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err := r.pool.Exec(ctx, query,
		t.VideoID, t.ChannelID, t.ImagePath, t.SourceURL, t.Width,
		t.Height, t.HashSHA256, t.PHash, t.OCRText, t.OCRCharCount,
		t.OCRAreaPct, t.Split, tags, t.FacesJSON, t.ObjectsJSON, t.PaletteJSON,
		t.Contrast, t.Entropy, t.SaliencyJSON,
	)
	if err != nil {
		return fmt.Errorf("upsert thumbnail %s: %w", t.VideoID, err)
	}
	return nil
}

// ListPage returns thumbnails ordered by video ID, starting strictly after
// afterVideoID. Used by the exporters to stream the table in keyset batches.
func (r *ThumbnailRepo) ListPage(ctx context.Context, afterVideoID string, limit int) ([]model.Thumbnail, error) {
	query := `
		SELECT video_id, channel_id, image_path, source_url, width, height,
		       hash_sha256, phash, ocr_text, ocr_char_count, ocr_area_pct,
		       split, tags, faces, objects, palette, contrast, entropy,
		       saliency, enriched_at
		FROM thumbnails
		WHERE video_id > $1
		ORDER BY video_id ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, afterVideoID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Thumbnail
	for rows.Next() {
		var t model.Thumbnail
		err := rows.Scan(
			&t.VideoID, &t.ChannelID, &t.ImagePath, &t.SourceURL, &t.Width, &t.Height,
			&t.HashSHA256, &t.PHash, &t.OCRText, &t.OCRCharCount, &t.OCRAreaPct,
			&t.Split, &t.Tags, &t.FacesJSON, &t.ObjectsJSON, &t.PaletteJSON,
			&t.Contrast, &t.Entropy, &t.SaliencyJSON, &t.EnrichedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
