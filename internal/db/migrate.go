package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations is an ordered, append-only list. Statements already recorded in
// the migration table are skipped; editing an applied statement is an error.
var migrations = []string{
	`CREATE TABLE channels (
		channel_id              TEXT PRIMARY KEY,
		title                   TEXT NOT NULL DEFAULT '',
		handle                  TEXT,
		country                 TEXT,
		categories              TEXT[] NOT NULL DEFAULT '{}',
		topics                  TEXT[] NOT NULL DEFAULT '{}',
		subscribers             BIGINT NOT NULL DEFAULT 0,
		views                   BIGINT NOT NULL DEFAULT 0,
		video_count             BIGINT NOT NULL DEFAULT 0,
		uploads_playlist_id     TEXT,
		etag                    TEXT,
		last_ingest_at          TIMESTAMPTZ,
		last_video_published_at TIMESTAMPTZ,
		scrape_status           TEXT NOT NULL DEFAULT 'idle',
		scrape_error            TEXT,
		created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE videos (
		video_id            TEXT PRIMARY KEY,
		channel_id          TEXT NOT NULL,
		title               TEXT NOT NULL DEFAULT '',
		published_at        TIMESTAMPTZ NOT NULL,
		views               BIGINT NOT NULL DEFAULT 0,
		likes               BIGINT NOT NULL DEFAULT 0,
		duration_sec        INTEGER NOT NULL DEFAULT 0,
		made_for_kids       TEXT NOT NULL DEFAULT 'unknown',
		category            TEXT,
		thumbnail_url       TEXT,
		thumbnail_width     INTEGER NOT NULL DEFAULT 0,
		thumbnail_height    INTEGER NOT NULL DEFAULT 0,
		has_720_plus        BOOLEAN NOT NULL DEFAULT FALSE,
		is_short            BOOLEAN NOT NULL DEFAULT FALSE,
		engagement          DOUBLE PRECISION,
		etag                TEXT,
		raw_snippet         JSONB,
		raw_statistics      JSONB,
		raw_content_details JSONB,
		fetched_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX videos_channel_published_idx ON videos (channel_id, published_at DESC)`,
	`CREATE INDEX videos_eligible_idx ON videos (published_at, video_id)
		WHERE is_short = FALSE AND has_720_plus = TRUE`,
	`CREATE TABLE thumbnails (
		video_id       TEXT PRIMARY KEY,
		channel_id     TEXT NOT NULL,
		image_path     TEXT NOT NULL,
		source_url     TEXT NOT NULL,
		width          INTEGER NOT NULL DEFAULT 0,
		height         INTEGER NOT NULL DEFAULT 0,
		hash_sha256    TEXT NOT NULL,
		phash          TEXT NOT NULL,
		ocr_text       TEXT NOT NULL DEFAULT '',
		ocr_char_count INTEGER NOT NULL DEFAULT 0,
		ocr_area_pct   DOUBLE PRECISION,
		split          TEXT NOT NULL,
		tags           TEXT[] NOT NULL DEFAULT '{}',
		faces          JSONB,
		objects        JSONB,
		palette        JSONB,
		contrast       DOUBLE PRECISION,
		entropy        DOUBLE PRECISION,
		saliency       JSONB,
		enriched_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX thumbnails_hash_idx ON thumbnails (hash_sha256)`,
}

// Migrate applies any migration statements not yet recorded.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS migration
		(id SERIAL PRIMARY KEY, query TEXT NOT NULL)`)
	if err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	rows, err := pool.Query(ctx, `SELECT query FROM migration ORDER BY id`)
	if err != nil {
		return fmt.Errorf("read applied migrations: %w", err)
	}
	var applied []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			rows.Close()
			return err
		}
		applied = append(applied, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if len(applied) > len(migrations) {
		return fmt.Errorf("database has %d migrations, code knows %d", len(applied), len(migrations))
	}
	for i, q := range applied {
		if migrations[i] != q {
			return fmt.Errorf("migration %d differs from applied statement", i)
		}
	}

	for _, q := range migrations[len(applied):] {
		if _, err := pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
		if _, err := pool.Exec(ctx, `INSERT INTO migration (query) VALUES ($1)`, q); err != nil {
			return fmt.Errorf("record migration: %w", err)
		}
	}
	return nil
}
