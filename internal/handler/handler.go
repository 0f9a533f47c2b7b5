package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler serves the metrics of gatherer. A nil gatherer serves the
// default registry.
func MetricsHandler(gatherer prometheus.Gatherer) gin.HandlerFunc {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
