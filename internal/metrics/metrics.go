package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convo_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "convo_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)

	// Gateway metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "convo_ws_connections",
			Help: "Websocket connections currently joined to a room",
		},
	)

	WSRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convo_ws_rejected_total",
			Help: "Websocket connections refused or terminated",
		},
		[]string{"reason"}, // "unauthenticated", "room_not_found", "error", "slow_consumer"
	)

	MessagesBroadcast = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "convo_messages_broadcast_total",
			Help: "Messages fanned out to a room",
		},
	)

	PersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "convo_message_persist_failures_total",
			Help: "Broadcast messages that could not be stored",
		},
	)

	PersistLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "convo_message_persist_latency_seconds",
			Help:    "Latency of storing a broadcast message",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, 1},
		},
	)
)
