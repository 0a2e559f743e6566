package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Handler returns an HTTP handler exposing the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(
		c.registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
		},
	)
}

// Push sends the registry to the configured Pushgateway. One-shot runs
// use it since nothing scrapes them. It is a no-op without a URL.
func (c *Collector) Push(ctx context.Context) error {
	if !c.config.Enabled || c.config.PushgatewayURL == "" {
		return nil
	}
	if err := push.New(c.config.PushgatewayURL, c.config.Job).
		Gatherer(c.registry).
		PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", c.config.PushgatewayURL, err)
	}
	return nil
}
