package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the prometheus registry for a service and serves it.
type Collector struct {
	serviceName string
	registry    *prometheus.Registry
	handler     http.Handler
	verifier    *VerifierMetrics
}

// NewCollector creates a new metrics collector for a service.
func NewCollector(serviceName string) *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		serviceName: serviceName,
		registry:    registry,
		handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{
			Registry: registry,
		}),
		verifier: NewVerifierMetrics(registry),
	}
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return c.handler
}

// Verifier returns the engine-facing metric set.
func (c *Collector) Verifier() *VerifierMetrics {
	return c.verifier
}
