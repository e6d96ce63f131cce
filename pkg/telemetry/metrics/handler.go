package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns an HTTP handler exposing the collector's registry in the
// Prometheus exposition format. It is mounted on the admin server at
// MetricsConfig.Path.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(
		c.registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
			// Keep scrapes from piling up on a slow disk
			MaxRequestsInFlight: 4,
		},
	)
}
