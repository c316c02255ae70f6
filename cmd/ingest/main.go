package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/razchen/youtube-ingest/internal/config"
	"github.com/razchen/youtube-ingest/internal/db"
	"github.com/razchen/youtube-ingest/internal/export"
	"github.com/razchen/youtube-ingest/internal/handler"
	"github.com/razchen/youtube-ingest/internal/middleware"
	"github.com/razchen/youtube-ingest/internal/model"
	"github.com/razchen/youtube-ingest/internal/repository"
	"github.com/razchen/youtube-ingest/internal/router"
	"github.com/razchen/youtube-ingest/internal/service"
	"github.com/razchen/youtube-ingest/internal/vision"
	"github.com/razchen/youtube-ingest/internal/ytapi"
)

const usage = `usage: ingest <command> [flags]

commands:
  migrate    apply database migrations and exit
  discover   resolve channel handles and upsert channel rows
  catalog    list and hydrate new videos for tracked channels
  enrich     download and analyze thumbnails for eligible videos
  export     write the thumbnail table to csv/jsonl files`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	middleware.InitLogger(cfg.LogLevel, "youtube-ingest")
	log := middleware.Logger

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	command := os.Args[1]
	args := os.Args[2:]
	if command == "migrate" {
		log.Info().Msg("migrations applied")
		return
	}

	handler.InitMetrics(pool)

	cache := ytapi.NewSnapshotCache(cfg.RedisURL)
	defer cache.Close()

	startStatusServer(cfg, pool, cache, log)

	channelRepo := repository.NewChannelRepo(pool)
	videoRepo := repository.NewVideoRepo(pool)
	thumbRepo := repository.NewThumbnailRepo(pool)

	var summary any
	switch command {
	case "discover":
		summary, err = runDiscover(ctx, cfg, cache, channelRepo, log, args)
	case "catalog":
		summary, err = runCatalog(ctx, cfg, cache, channelRepo, videoRepo, log, args)
	case "enrich":
		summary, err = runEnrich(ctx, cfg, cache, videoRepo, thumbRepo, log, args)
	case "export":
		summary, err = runExport(ctx, thumbRepo, log, args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Str("command", command).Err(err).Msg("pass failed")
	}

	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))
}

func newYouTubeClient(ctx context.Context, cfg *config.Config, cache *ytapi.SnapshotCache, log zerolog.Logger) (*ytapi.Client, error) {
	if cfg.YouTubeAPIKey == "" {
		return nil, errors.New("YOUTUBE_API_KEY is required")
	}
	svc, err := youtube.NewService(ctx, option.WithAPIKey(cfg.YouTubeAPIKey))
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return ytapi.New(svc, cache, log), nil
}

func runDiscover(ctx context.Context, cfg *config.Config, cache *ytapi.SnapshotCache, channels *repository.ChannelRepo, log zerolog.Logger, args []string) (any, error) {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	handles := fs.String("handles", "", "comma-separated channel handles")
	jsonPath := fs.String("json", "", "path to a JSON array of {handle, country, categories} rows")
	fs.Parse(args)

	yt, err := newYouTubeClient(ctx, cfg, cache, log)
	if err != nil {
		return nil, err
	}
	dir := service.NewDirectory(channels, yt, log)

	var summary *service.DiscoverSummary
	switch {
	case *jsonPath != "":
		summary, err = dir.DiscoverFromJSON(ctx, *jsonPath)
	case *handles != "":
		summary, err = dir.DiscoverFromHandles(ctx, strings.Split(*handles, ","))
	default:
		return nil, errors.New("discover requires -handles or -json")
	}
	if err != nil {
		return nil, err
	}
	handler.Metrics.PassDuration.WithLabelValues("discover").Observe(summary.Elapsed.Seconds())
	return summary, nil
}

func runCatalog(ctx context.Context, cfg *config.Config, cache *ytapi.SnapshotCache, channels *repository.ChannelRepo, videos *repository.VideoRepo, log zerolog.Logger, args []string) (any, error) {
	fs := flag.NewFlagSet("catalog", flag.ExitOnError)
	channelIDs := fs.String("channels", "", "comma-separated channel IDs (default: all)")
	statuses := fs.String("statuses", "", "comma-separated scrape statuses to select")
	limit := fs.Int("limit", 0, "max channels this run (0 = no cap)")
	maxVideos := fs.Int("max", 0, "max videos per channel (0 = config default)")
	after := fs.String("published-after", "", "override lower bound (RFC3339)")
	fs.Parse(args)

	yt, err := newYouTubeClient(ctx, cfg, cache, log)
	if err != nil {
		return nil, err
	}

	opts := service.RunOptions{
		Limit:               *limit,
		MaxVideosPerChannel: *maxVideos,
	}
	if *channelIDs != "" {
		opts.ChannelIDs = strings.Split(*channelIDs, ",")
	}
	for _, s := range strings.Split(*statuses, ",") {
		if s = strings.TrimSpace(s); s != "" {
			opts.Statuses = append(opts.Statuses, model.ScrapeStatus(s))
		}
	}
	if *after != "" {
		t, err := time.Parse(time.RFC3339, *after)
		if err != nil {
			return nil, fmt.Errorf("invalid -published-after: %w", err)
		}
		opts.PublishedAfter = &t
	}

	catalog := service.NewCatalog(channels, videos, yt, service.CatalogConfig{
		DefaultLookback:     cfg.DefaultLookback,
		WatermarkOverlap:    cfg.WatermarkOverlap,
		ChannelWorkers:      cfg.ChannelWorkers,
		ChunkWorkers:        cfg.ChunkWorkers,
		VideoWorkers:        cfg.VideoWorkers,
		MaxVideosPerChannel: cfg.MaxVideosPerRun,
	}, log)

	summary, err := catalog.RunFromDB(ctx, opts)
	if err != nil {
		return nil, err
	}
	handler.Metrics.ChannelsProcessed.Add(float64(summary.ChannelsProcessed))
	handler.Metrics.ChannelsFailed.Add(float64(summary.ChannelsFailed))
	handler.Metrics.VideosUpserted.Add(float64(summary.VideosUpserted))
	handler.Metrics.PassDuration.WithLabelValues("catalog").Observe(summary.Elapsed.Seconds())
	return summary, nil
}

func runEnrich(ctx context.Context, cfg *config.Config, cache *ytapi.SnapshotCache, videos *repository.VideoRepo, thumbs *repository.ThumbnailRepo, log zerolog.Logger, args []string) (any, error) {
	fs := flag.NewFlagSet("enrich", flag.ExitOnError)
	sinceDays := fs.Int("since-days", 0, "only videos published within this many days (0 = config default)")
	pageSize := fs.Int("page-size", 0, "eligibility page size (0 = config default)")
	concurrency := fs.Int("concurrency", 0, "per-page worker count (0 = config default)")
	fs.Parse(args)

	yt, err := newYouTubeClient(ctx, cfg, cache, log)
	if err != nil {
		return nil, err
	}

	enricher := service.NewEnricher(
		videos, thumbs, yt,
		vision.NewOCRClient(cfg.OCRURL),
		vision.NewClient(cfg.VisionURL),
		service.EnrichConfig{
			SinceDays:           cfg.EnrichSinceDays,
			PageSize:            cfg.EnrichPageSize,
			Workers:             cfg.EnrichWorkers,
			EngagementThreshold: cfg.EngagementThreshold,
			ImageDir:            cfg.ImageDir,
		}, log)

	summary, err := enricher.RunEligible(ctx, *sinceDays, *pageSize, *concurrency)
	if err != nil {
		return nil, err
	}
	handler.Metrics.ThumbnailsEnriched.Add(float64(summary.Enriched))
	handler.Metrics.EnrichFailures.Add(float64(summary.Failed))
	handler.Metrics.PassDuration.WithLabelValues("enrich").Observe(summary.Elapsed.Seconds())
	return summary, nil
}

func runExport(ctx context.Context, thumbs *repository.ThumbnailRepo, log zerolog.Logger, args []string) (any, error) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	csvPath := fs.String("csv", "", "write CSV export to this path")
	jsonlPath := fs.String("jsonl", "", "write JSONL export to this path")
	fs.Parse(args)

	if *csvPath == "" && *jsonlPath == "" {
		return nil, errors.New("export requires -csv and/or -jsonl")
	}

	exporter := export.NewExporter(thumbs, log)
	result := map[string]int{}
	if *csvPath != "" {
		n, err := exporter.WriteCSV(ctx, *csvPath)
		if err != nil {
			return nil, err
		}
		result["csv"] = n
	}
	if *jsonlPath != "" {
		n, err := exporter.WriteJSONL(ctx, *jsonlPath)
		if err != nil {
			return nil, err
		}
		result["jsonl"] = n
	}
	return result, nil
}

// startStatusServer exposes health probes and Prometheus metrics for the
// duration of the run.
func startStatusServer(cfg *config.Config, pool *pgxpool.Pool, cache *ytapi.SnapshotCache, log zerolog.Logger) {
	app := fiber.New(fiber.Config{
		AppName:      "youtube-ingest",
		ServerHeader: "youtube-ingest",
	})
	router.Setup(app, handler.NewHealthHandler(pool, cache.Client()))

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Warn().Err(err).Msg("status server stopped")
		}
	}()
}
