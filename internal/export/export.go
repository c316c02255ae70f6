// Package export writes the enriched thumbnail table to flat files: CSV with
// a fixed, versioned column order, and JSONL with one nested object per line.
// Both stream the table in keyset batches and are regenerated per run.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/razchen/youtube-ingest/internal/model"
)

const exportBatchSize = 500

// csvColumns is the versioned flat projection of a thumbnail record.
// Appending is safe; reordering or removing breaks downstream consumers.
var csvColumns = []string{
	"video_id", "channel_id", "image_path", "source_url", "width", "height",
	"hash_sha256", "phash", "ocr_text", "ocr_char_count", "ocr_area_pct",
	"split", "tags", "contrast", "enriched_at",
}

// thumbnailPager is the slice of the thumbnail repository the exporter needs.
type thumbnailPager interface {
	ListPage(ctx context.Context, afterVideoID string, limit int) ([]model.Thumbnail, error)
}

type Exporter struct {
	thumbs thumbnailPager
	log    zerolog.Logger
}

func NewExporter(thumbs thumbnailPager, log zerolog.Logger) *Exporter {
	return &Exporter{thumbs: thumbs, log: log.With().Str("component", "export").Logger()}
}

// WriteCSV writes all thumbnail records to path, header first.
func (e *Exporter) WriteCSV(ctx context.Context, path string) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvColumns); err != nil {
		return 0, err
	}

	count := 0
	err = e.each(ctx, func(t *model.Thumbnail) error {
		count++
		return w.Write(CSVRecord(t))
	})
	if err != nil {
		return count, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return count, err
	}
	if err := f.Sync(); err != nil {
		return count, err
	}
	e.log.Info().Int("records", count).Str("path", path).Msg("csv export complete")
	return count, nil
}

// WriteJSONL writes one JSON object per record to path.
func (e *Exporter) WriteJSONL(ctx context.Context, path string) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create jsonl: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	count := 0
	err = e.each(ctx, func(t *model.Thumbnail) error {
		count++
		return enc.Encode(t)
	})
	if err != nil {
		return count, err
	}
	if err := f.Sync(); err != nil {
		return count, err
	}
	e.log.Info().Int("records", count).Str("path", path).Msg("jsonl export complete")
	return count, nil
}

// each streams the table in keyset batches ordered by video ID.
func (e *Exporter) each(ctx context.Context, fn func(*model.Thumbnail) error) error {
	after := ""
	for {
		batch, err := e.thumbs.ListPage(ctx, after, exportBatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		for i := range batch {
			if err := fn(&batch[i]); err != nil {
				return err
			}
		}
		after = batch[len(batch)-1].VideoID
	}
}

// CSVRecord flattens a thumbnail row in csvColumns order.
func CSVRecord(t *model.Thumbnail) []string {
	return []string{
		t.VideoID,
		t.ChannelID,
		t.ImagePath,
		t.SourceURL,
		strconv.Itoa(t.Width),
		strconv.Itoa(t.Height),
		t.HashSHA256,
		t.PHash,
		t.OCRText,
		strconv.Itoa(t.OCRCharCount),
		formatFloat(t.OCRAreaPct),
		t.Split,
		strings.Join(t.Tags, ";"),
		formatFloat(t.Contrast),
		t.EnrichedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
