// SPDX-License-Identifier: BSD-3-Clause

package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lux_api_requests_total",
		Help: "Outcome of API client requests",
	}, []string{
		"method",  // GET|POST|PUT|DELETE|...
		"outcome", // success|transport_error|application_error|resolve_error
	})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lux_api_request_duration_seconds",
		Help:    "Duration of API client requests from dispatch to settlement",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
)

const (
	outcomeSuccess          = "success"
	outcomeTransportError   = "transport_error"
	outcomeApplicationError = "application_error"
	outcomeResolveError     = "resolve_error"
)

func observeRequest(method, outcome string, start time.Time) {
	requestsTotal.WithLabelValues(method, outcome).Inc()
	requestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
