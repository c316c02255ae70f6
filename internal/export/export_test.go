package export

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/razchen/youtube-ingest/internal/model"
)

type fakePager struct {
	rows []model.Thumbnail // sorted by video ID
}

func (f *fakePager) ListPage(_ context.Context, afterVideoID string, limit int) ([]model.Thumbnail, error) {
	var out []model.Thumbnail
	for _, r := range f.rows {
		if r.VideoID <= afterVideoID {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func sampleRows(n int) []model.Thumbnail {
	contrast := 0.42
	area := 0.07
	rows := make([]model.Thumbnail, n)
	for i := range rows {
		id := fmt.Sprintf("vid%04d", i)
		rows[i] = model.Thumbnail{
			VideoID:      id,
			ChannelID:    "UCchan",
			ImagePath:    "images/" + id + ".jpg",
			SourceURL:    "https://i.ytimg.com/vi/" + id + "/maxresdefault.jpg",
			Width:        1280,
			Height:       720,
			HashSHA256:   "deadbeef",
			PHash:        "p:fedcba",
			OCRText:      "SOME TEXT",
			OCRCharCount: 9,
			OCRAreaPct:   &area,
			Split:        model.SplitTrain,
			Tags:         []string{"person", "money"},
			Contrast:     &contrast,
			EnrichedAt:   time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC),
		}
	}
	return rows
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	exp := NewExporter(&fakePager{rows: sampleRows(3)}, zerolog.Nop())

	n, err := exp.WriteCSV(context.Background(), path)
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("rows = %d, want header + 3", len(records))
	}
	if !reflect.DeepEqual(records[0], csvColumns) {
		t.Errorf("header = %v, want %v", records[0], csvColumns)
	}

	row := records[1]
	if row[0] != "vid0000" {
		t.Errorf("video_id = %q", row[0])
	}
	if row[12] != "person;money" {
		t.Errorf("tags = %q, want person;money", row[12])
	}
	if row[13] != "0.42" {
		t.Errorf("contrast = %q, want 0.42", row[13])
	}
	if row[14] != "2024-06-01T10:30:00Z" {
		t.Errorf("enriched_at = %q", row[14])
	}
}

func TestWriteCSVEmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	exp := NewExporter(&fakePager{}, zerolog.Nop())

	n, err := exp.WriteCSV(context.Background(), path)
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("empty export should still carry the header, got %d rows", len(records))
	}
}

func TestWriteJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	exp := NewExporter(&fakePager{rows: sampleRows(2)}, zerolog.Nop())

	n, err := exp.WriteJSONL(context.Background(), path)
	if err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var row model.Thumbnail
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			t.Fatalf("line %d: %v", lines+1, err)
		}
		if row.VideoID == "" || row.Split != model.SplitTrain {
			t.Errorf("line %d: unexpected row %+v", lines+1, row)
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("lines = %d, want 2", lines)
	}
}

func TestEachPagesThroughBatches(t *testing.T) {
	rows := sampleRows(exportBatchSize + 5)
	exp := NewExporter(&fakePager{rows: rows}, zerolog.Nop())

	var seen []string
	err := exp.each(context.Background(), func(th *model.Thumbnail) error {
		seen = append(seen, th.VideoID)
		return nil
	})
	if err != nil {
		t.Fatalf("each: %v", err)
	}
	if len(seen) != len(rows) {
		t.Fatalf("seen %d records, want %d", len(seen), len(rows))
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] <= seen[i-1] {
			t.Fatalf("records out of order at %d: %q after %q", i, seen[i], seen[i-1])
		}
	}
}
