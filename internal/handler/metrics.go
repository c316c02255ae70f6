package handler

import (
	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Metrics holds all Prometheus collectors for the ingestion pipeline.
var Metrics = struct {
	ChannelsProcessed  prometheus.Counter
	ChannelsFailed     prometheus.Counter
	VideosUpserted     prometheus.Counter
	ThumbnailsEnriched prometheus.Counter
	EnrichFailures     prometheus.Counter
	APIRequests        *prometheus.CounterVec
	PassDuration       *prometheus.HistogramVec
	DBPoolActive       prometheus.GaugeFunc
	DBPoolIdle         prometheus.GaugeFunc
}{}

// InitMetrics registers all Prometheus metrics. Call once at startup.
func InitMetrics(pool *pgxpool.Pool) {
	Metrics.ChannelsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_channels_processed_total",
		Help: "Channels successfully cataloged.",
	})

	Metrics.ChannelsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_channels_failed_total",
		Help: "Channels whose catalog pass ended in error.",
	})

	Metrics.VideosUpserted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_videos_upserted_total",
		Help: "Video rows written by the catalog pass.",
	})

	Metrics.ThumbnailsEnriched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_thumbnails_enriched_total",
		Help: "Thumbnail records written by the enrichment pass.",
	})

	Metrics.EnrichFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_enrich_failures_total",
		Help: "Per-video enrichment failures left for a future run.",
	})

	Metrics.APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_api_requests_total",
			Help: "YouTube Data API requests by call.",
		},
		[]string{"call"},
	)

	Metrics.PassDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_pass_duration_seconds",
			Help:    "Wall-clock duration of pipeline passes.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"pass"},
	)

	// DB pool gauges — read live stats from pgxpool
	if pool != nil {
		Metrics.DBPoolActive = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "ingest_db_connection_pool_active",
				Help: "Number of active database connections.",
			},
			func() float64 {
				return float64(pool.Stat().AcquiredConns())
			},
		)

		Metrics.DBPoolIdle = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "ingest_db_connection_pool_idle",
				Help: "Number of idle database connections.",
			},
			func() float64 {
				return float64(pool.Stat().IdleConns())
			},
		)

		prometheus.MustRegister(Metrics.DBPoolActive)
		prometheus.MustRegister(Metrics.DBPoolIdle)
	}

	prometheus.MustRegister(
		Metrics.ChannelsProcessed,
		Metrics.ChannelsFailed,
		Metrics.VideosUpserted,
		Metrics.ThumbnailsEnriched,
		Metrics.EnrichFailures,
		Metrics.APIRequests,
		Metrics.PassDuration,
	)
}

// MetricsHandler serves the Prometheus /metrics endpoint via Fiber.
func MetricsHandler() fiber.Handler {
	httpHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c fiber.Ctx) error {
		httpHandler(c.RequestCtx())
		return nil
	}
}
