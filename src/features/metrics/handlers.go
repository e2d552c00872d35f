package metrics

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler handles HTTP requests for the metrics feature.
type Handler struct {
	collector *Collector
	exporter  fiber.Handler
}

// NewHandler creates a new metrics handler.
func NewHandler(collector *Collector) *Handler {
	return &Handler{
		collector: collector,
		exporter:  adaptor.HTTPHandler(promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{})),
	}
}

// GetMetrics serves the Prometheus exposition format.
func (h *Handler) GetMetrics(c *fiber.Ctx) error {
	slog.Debug("GetMetrics handler called")
	return h.exporter(c)
}
