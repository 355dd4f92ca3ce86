// Package exporters provides HTTP and SSE exporters for metrics.
package exporters

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smazurov/lcrnode/internal/logging"
)

// HTTPHandler serves the promauto-registered device and sequencer metrics.
// OpenMetrics is negotiated when the scraper asks for it. A failing
// collector is logged and the remaining series are still served.
func HTTPHandler() http.Handler {
	logger := logging.GetLogger("metrics")
	handler := promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		ErrorHandling:     promhttp.ContinueOnError,
		EnableOpenMetrics: true,
	})
	return promhttp.InstrumentMetricHandler(prometheus.DefaultRegisterer, handler)
}
