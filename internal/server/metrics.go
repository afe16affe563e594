package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hydrationRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "threadview",
		Subsystem: "server",
		Name:      "hydration_requests_total",
		Help:      "Total thread snapshot requests, by status.",
	}, []string{"status"})

	eventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "threadview",
		Subsystem: "server",
		Name:      "events_published_total",
		Help:      "Total events published to subscribers, by type.",
	}, []string{"type"})

	eventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "threadview",
		Subsystem: "server",
		Name:      "events_dropped_total",
		Help:      "Total events dropped for slow WebSocket subscribers.",
	})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "threadview",
		Subsystem: "server",
		Name:      "ws_connections_active",
		Help:      "Number of active WebSocket connections.",
	})

	activeThreads = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "threadview",
		Subsystem: "server",
		Name:      "active_threads",
		Help:      "Number of threads held by the store.",
	})
)
