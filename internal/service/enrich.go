package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/razchen/youtube-ingest/internal/model"
	"github.com/razchen/youtube-ingest/internal/repository"
	"github.com/razchen/youtube-ingest/internal/vision"
	"github.com/razchen/youtube-ingest/pkg/imghash"
)

const downloadTimeout = 30 * time.Second

// thumbnailFallbacks are probed in order when a video has no cached
// thumbnail URL.
var thumbnailFallbacks = []string{"maxresdefault", "sddefault", "hqdefault"}

// eligiblePager is the slice of the video repository the enricher needs.
type eligiblePager interface {
	SelectEligiblePage(ctx context.Context, q repository.EligibleQuery) ([]repository.VideoPointer, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.Video, error)
}

// thumbnailStore is the slice of the thumbnail repository the enricher needs.
type thumbnailStore interface {
	Upsert(ctx context.Context, t *model.Thumbnail) error
}

type urlProber interface {
	ProbeURLExists(ctx context.Context, url string) bool
}

type ocrService interface {
	Recognize(ctx context.Context, imagePath string) (*vision.OCRResult, error)
}

type visualAnalyzer interface {
	Analyze(ctx context.Context, imagePath string) (*vision.Analysis, error)
}

// EnrichConfig bounds one enrichment run.
type EnrichConfig struct {
	SinceDays           int
	PageSize            int
	Workers             int
	EngagementThreshold float64
	ImageDir            string
}

// Enricher downloads thumbnails for eligible videos and derives their
// visual/textual features.
type Enricher struct {
	videos eligiblePager
	thumbs thumbnailStore
	prober urlProber
	ocr    ocrService
	vision visualAnalyzer
	cfg    EnrichConfig
	http   *http.Client
	log    zerolog.Logger
}

func NewEnricher(videos eligiblePager, thumbs thumbnailStore, prober urlProber, ocr ocrService, analyzer visualAnalyzer, cfg EnrichConfig, log zerolog.Logger) *Enricher {
	return &Enricher{
		videos: videos,
		thumbs: thumbs,
		prober: prober,
		ocr:    ocr,
		vision: analyzer,
		cfg:    cfg,
		http:   &http.Client{Timeout: downloadTimeout},
		log:    log.With().Str("component", "enrich").Logger(),
	}
}

// EnrichSummary is the structured outcome of one enrichment run.
type EnrichSummary struct {
	Pages    int           `json:"pages"`
	Seen     int           `json:"seen"`
	Enriched int           `json:"enriched"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Elapsed  time.Duration `json:"elapsed"`
}

// RunEligible pages over eligible videos with a keyset cursor and enriches
// each page with bounded concurrency. The cursor only advances past a full
// page, so a crash mid-page re-selects that page's unprocessed rows next run;
// already-enriched rows are filtered out by the eligibility predicate, which
// makes reprocessing idempotent.
func (e *Enricher) RunEligible(ctx context.Context, sinceDays, pageSize, concurrency int) (*EnrichSummary, error) {
	if sinceDays <= 0 {
		sinceDays = e.cfg.SinceDays
	}
	if pageSize <= 0 {
		pageSize = e.cfg.PageSize
	}
	if concurrency <= 0 {
		concurrency = e.cfg.Workers
	}

	start := time.Now()
	since := start.UTC().AddDate(0, 0, -sinceDays)

	var seen, enriched, skipped, failed atomic.Int64
	pages := 0
	var cursor *repository.PageCursor

	for {
		pointers, err := e.videos.SelectEligiblePage(ctx, repository.EligibleQuery{
			Since:         since,
			MinEngagement: e.cfg.EngagementThreshold,
			Cursor:        cursor,
			Limit:         pageSize,
		})
		if err != nil {
			return nil, err
		}
		if len(pointers) == 0 {
			break
		}
		pages++

		ids := make([]string, len(pointers))
		for i, p := range pointers {
			ids[i] = p.VideoID
		}
		videos, err := e.videos.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}

		var g errgroup.Group
		g.SetLimit(concurrency)
		for _, v := range videos {
			g.Go(func() error {
				seen.Add(1)
				switch err := e.enrichOne(ctx, v); {
				case errors.Is(err, errNoThumbnailURL):
					e.log.Warn().Str("videoId", v.VideoID).Msg("no usable thumbnail url, skipping")
					skipped.Add(1)
				case err != nil:
					// Leave the row unenriched; a future run retries it.
					e.log.Warn().Str("videoId", v.VideoID).Err(err).Msg("enrichment failed")
					failed.Add(1)
				default:
					enriched.Add(1)
				}
				return nil
			})
		}
		g.Wait()

		last := pointers[len(pointers)-1]
		cursor = &repository.PageCursor{PublishedAt: last.PublishedAt, VideoID: last.VideoID}
	}

	summary := &EnrichSummary{
		Pages:    pages,
		Seen:     int(seen.Load()),
		Enriched: int(enriched.Load()),
		Skipped:  int(skipped.Load()),
		Failed:   int(failed.Load()),
		Elapsed:  time.Since(start),
	}
	e.log.Info().
		Int("pages", summary.Pages).
		Int("seen", summary.Seen).
		Int("enriched", summary.Enriched).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Dur("elapsed", summary.Elapsed).
		Msg("enrichment pass complete")
	return summary, nil
}

var errNoThumbnailURL = errors.New("no usable thumbnail url")

// enrichOne processes a single video end to end: resolve the thumbnail URL,
// download once, hash, OCR, analyze, refine, upsert.
func (e *Enricher) enrichOne(ctx context.Context, v model.Video) error {
	url := e.resolveThumbnailURL(ctx, v)
	if url == "" {
		return errNoThumbnailURL
	}

	imagePath := filepath.Join(e.cfg.ImageDir, v.VideoID+".jpg")
	if err := e.downloadOnce(ctx, url, imagePath); err != nil {
		return fmt.Errorf("download: %w", err)
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	phash, err := imghash.Perceptual(data)
	if err != nil {
		return err
	}

	width, height := v.ThumbnailWidth, v.ThumbnailHeight
	if width == 0 || height == 0 {
		if w, h, err := imghash.Dimensions(data); err == nil {
			width, height = w, h
		}
	}

	// OCR degrades to an empty result; the thumbnail is still worth keeping.
	ocrResult, err := e.ocr.Recognize(ctx, imagePath)
	if err != nil {
		e.log.Debug().Str("videoId", v.VideoID).Err(err).Msg("ocr failed, continuing without text")
		ocrResult = &vision.OCRResult{}
	}

	analysis, err := e.vision.Analyze(ctx, imagePath)
	if err != nil {
		return err
	}

	refined := RefineVision(analysis, v.Title, ocrResult.Text)

	facesJSON, _ := json.Marshal(analysis.Faces)
	objectsJSON, _ := json.Marshal(analysis.Objects)
	paletteJSON, _ := json.Marshal(analysis.Palette)
	contrast := analysis.Contrast

	return e.thumbs.Upsert(ctx, &model.Thumbnail{
		VideoID:      v.VideoID,
		ChannelID:    v.ChannelID,
		ImagePath:    imagePath,
		SourceURL:    url,
		Width:        width,
		Height:       height,
		HashSHA256:   imghash.SHA256Hex(data),
		PHash:        phash,
		OCRText:      ocrResult.Text,
		OCRCharCount: ocrResult.CharCount,
		OCRAreaPct:   ocrResult.AreaPct,
		Split:        AssignSplit(v.ChannelID),
		Tags:         refined.Tags,
		FacesJSON:    facesJSON,
		ObjectsJSON:  objectsJSON,
		PaletteJSON:  paletteJSON,
		Contrast:     &contrast,
	})
}

// resolveThumbnailURL prefers the URL cached at catalog time and falls back
// to probing the static thumbnail variants for existence.
func (e *Enricher) resolveThumbnailURL(ctx context.Context, v model.Video) string {
	if v.ThumbnailURL != nil && *v.ThumbnailURL != "" {
		return *v.ThumbnailURL
	}
	for _, variant := range thumbnailFallbacks {
		url := fmt.Sprintf("https://i.ytimg.com/vi/%s/%s.jpg", v.VideoID, variant)
		if e.prober.ProbeURLExists(ctx, url) {
			return url
		}
	}
	return ""
}

// downloadOnce fetches the image unless the target file already exists.
// File existence is the resume marker: reruns skip completed downloads, and a
// partial download never becomes visible thanks to the temp-file rename.
func (e *Enricher) downloadOnce(ctx context.Context, url, imagePath string) error {
	if _, err := os.Stat(imagePath); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(imagePath), 0o755); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := e.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(imagePath), ".download-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), imagePath)
}
