// internal/utils/metrics.go
package utils

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every collector the service exposes on /metrics. It is kept
// separate from prometheus.DefaultRegisterer so tests can gather it directly.
var Registry = prometheus.NewRegistry()

var (
	guideRequests = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "artvistas_guide_requests_total",
			Help: "Guide chat requests sent to the text-generation provider, by persona and outcome.",
		},
		[]string{"persona", "status"},
	)
	guideRequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "artvistas_guide_request_duration_seconds",
			Help:    "Latency of guide chat provider calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"persona"},
	)
	guideInFlight = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "artvistas_guide_requests_in_flight",
			Help: "Guide chat provider calls currently awaiting a response.",
		},
	)
	guideRejected = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "artvistas_guide_submissions_rejected_total",
			Help: "Guide chat submissions refused before reaching the provider, by reason.",
		},
		[]string{"reason"},
	)
	guideSessions = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "artvistas_guide_sessions_active",
			Help: "Guide chat sessions currently held in memory.",
		},
	)
	cameraFocus = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "artvistas_camera_focus_total",
			Help: "Camera focus transitions started, by gallery.",
		},
		[]string{"gallery"},
	)
	wsConnections = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "artvistas_websocket_connections",
			Help: "Open WebSocket connections, by channel kind.",
		},
		[]string{"kind"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// MetricsGuideRequestStarted marks a provider call as in flight.
func MetricsGuideRequestStarted() {
	guideInFlight.Inc()
}

// MetricsGuideRequestFinished records the outcome of a provider call.
// status is "ok", "timeout", "cancelled" or "error".
func MetricsGuideRequestFinished(persona, status string, elapsed time.Duration) {
	guideInFlight.Dec()
	guideRequests.WithLabelValues(persona, status).Inc()
	guideRequestDuration.WithLabelValues(persona).Observe(elapsed.Seconds())
}

// MetricsGuideSubmissionRejected counts a submission refused locally.
func MetricsGuideSubmissionRejected(reason string) {
	guideRejected.WithLabelValues(reason).Inc()
}

// MetricsSetGuideSessions sets the number of live guide sessions.
func MetricsSetGuideSessions(n int) {
	guideSessions.Set(float64(n))
}

// MetricsCameraFocus counts a focus transition started in gallery.
func MetricsCameraFocus(gallery string) {
	cameraFocus.WithLabelValues(gallery).Inc()
}

// MetricsWebSocketOpened and MetricsWebSocketClosed track open sockets.
func MetricsWebSocketOpened(kind string) {
	wsConnections.WithLabelValues(kind).Inc()
}

func MetricsWebSocketClosed(kind string) {
	wsConnections.WithLabelValues(kind).Dec()
}
