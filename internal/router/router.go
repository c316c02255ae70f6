package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/razchen/youtube-ingest/internal/handler"
	"github.com/razchen/youtube-ingest/internal/middleware"
)

// Setup wires the status-server routes: health probes and Prometheus metrics.
// The pipeline has no other inbound surface.
func Setup(app *fiber.App, health *handler.HealthHandler) {
	app.Use(middleware.NewRequestLogger())

	app.Get("/health/live", health.Live)
	app.Get("/health/ready", health.Ready)
	app.Get("/metrics", handler.MetricsHandler())
}
