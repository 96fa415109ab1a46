package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "alertroute"

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "panics_total",
			Help:      "Total number of handler panics recovered",
		},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	// Resolution metrics
	eventsResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "events_total",
			Help:      "Total number of events resolved to destinations",
		},
		[]string{"event_type"},
	)

	destinationsResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "destinations_total",
			Help:      "Total number of destinations selected by resolution",
		},
		[]string{"medium"},
	)

	resolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "duration_seconds",
			Help:      "Duration of one resolution pass in seconds",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	mediaNotInstalledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "media_not_installed_total",
			Help:      "Times a medium was flagged as not installed during resolution",
		},
		[]string{"medium"},
	)

	// Delivery metrics
	deliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "deliveries_total",
			Help:      "Total number of delivery attempts by outcome",
		},
		[]string{"medium", "status"},
	)

	deliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "delivery_duration_seconds",
			Help:      "Duration of a delivery including retries in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"medium"},
	)

	queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "queue_depth",
			Help:      "Number of events waiting for a dispatch worker",
		},
	)

	// Ingestion metrics
	eventsConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "consumer",
			Name:      "messages_total",
			Help:      "Total number of stream messages consumed by outcome",
		},
		[]string{"status"},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns a middleware that records Prometheus metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()

		routePattern := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			routePattern = rctx.RoutePattern()
		}

		status := strconv.Itoa(wrapped.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, routePattern, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, routePattern, status).Observe(duration)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordPanic counts a recovered handler panic
func RecordPanic() {
	httpPanicsTotal.Inc()
}

// RecordResolution records one resolution pass over a batch of events
func RecordResolution(eventTypes []string, duration time.Duration) {
	for _, t := range eventTypes {
		eventsResolvedTotal.WithLabelValues(t).Inc()
	}
	resolutionDuration.Observe(duration.Seconds())
}

// RecordDestinationResolved counts a destination selected for an event
func RecordDestinationResolved(medium string) {
	destinationsResolvedTotal.WithLabelValues(medium).Inc()
}

// RecordMediumNotInstalled counts an installed flag flip
func RecordMediumNotInstalled(medium string) {
	mediaNotInstalledTotal.WithLabelValues(medium).Inc()
}

// RecordDelivery records the outcome of a delivery
func RecordDelivery(medium, status string, duration time.Duration) {
	deliveriesTotal.WithLabelValues(medium, status).Inc()
	deliveryDuration.WithLabelValues(medium).Observe(duration.Seconds())
}

// SetQueueDepth sets the dispatch queue gauge
func SetQueueDepth(n int) {
	queueDepth.Set(float64(n))
}

// RecordConsumedMessage counts a stream message by outcome
func RecordConsumedMessage(status string) {
	eventsConsumedTotal.WithLabelValues(status).Inc()
}
