// Package telemetry exposes Prometheus metrics. Every gateway fetch attempt is
// observable here, whether it succeeds or not.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for gateway requests.
const (
	OutcomeOK             = "ok"
	OutcomeShapeError     = "shape_error"
	OutcomeTransportError = "transport_error"
)

var (
	gatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_requests_total",
		Help: "Requests issued to the remote data gateway, by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	gatewayDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Latency of remote data gateway requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)

// ObserveGatewayRequest records one gateway call attempt.
func ObserveGatewayRequest(endpoint, outcome string, d time.Duration) {
	gatewayRequests.WithLabelValues(endpoint, outcome).Inc()
	gatewayDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}
