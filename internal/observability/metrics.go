package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	submissionsIngested   *prometheus.CounterVec
	broadcastEventsTotal  *prometheus.CounterVec
	realtimeConnections   prometheus.Gauge
	requestsTotal         *prometheus.CounterVec
	requestLatencySeconds *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		submissionsIngested = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codeshare_submissions_ingested_total",
			Help: "Submission ingestion attempts by outcome (accepted, duplicate, empty).",
		}, []string{"outcome"})

		broadcastEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codeshare_broadcast_events_total",
			Help: "Events published to the realtime fan-out by type.",
		}, []string{"type"})

		realtimeConnections = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "codeshare_realtime_connections",
			Help: "Currently attached realtime websocket clients.",
		})

		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codeshare_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		requestLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codeshare_request_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		prometheus.MustRegister(submissionsIngested, broadcastEventsTotal, realtimeConnections, requestsTotal, requestLatencySeconds)
	})
}

// SubmissionsIngested exposes the ingestion outcome counter.
func SubmissionsIngested() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsIngested
}

// BroadcastEvents exposes the fan-out event counter.
func BroadcastEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return broadcastEventsTotal
}

// RealtimeConnections exposes the attached-client gauge.
func RealtimeConnections() prometheus.Gauge {
	RegisterMetrics()
	return realtimeConnections
}

// Requests exposes the request counter.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// RequestLatency exposes the request latency histogram.
func RequestLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return requestLatencySeconds
}
