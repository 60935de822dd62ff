package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geofleet",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "geofleet",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "geofleet",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Evaluation engine metrics
	ReportsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geofleet",
		Subsystem: "engine",
		Name:      "reports_ingested_total",
		Help:      "Total position reports accepted for evaluation",
	}, []string{"source"})

	ReportsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geofleet",
		Subsystem: "engine",
		Name:      "reports_rejected_total",
		Help:      "Total position reports rejected before evaluation",
	}, []string{"reason"})

	ViolationsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geofleet",
		Subsystem: "engine",
		Name:      "violations_detected_total",
		Help:      "Total geofence violations detected",
	}, []string{"kind", "severity"})

	EvaluationSkips = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "geofleet",
		Subsystem: "engine",
		Name:      "evaluation_skips_total",
		Help:      "Total fences skipped during evaluation due to malformed data",
	})

	EvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "geofleet",
		Subsystem: "engine",
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of a single report's evaluation against all fences",
		Buckets:   []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05},
	})

	TrackedVehicles = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geofleet",
		Subsystem: "engine",
		Name:      "tracked_vehicles",
		Help:      "Current number of vehicles with a known position",
	})

	ActiveFences = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geofleet",
		Subsystem: "engine",
		Name:      "active_fences",
		Help:      "Current number of active fences in the evaluation snapshot",
	})

	SubscriberErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geofleet",
		Subsystem: "events",
		Name:      "subscriber_errors_total",
		Help:      "Total event handler failures, panics included",
	}, []string{"channel"})

	// Feed metrics
	FeedConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geofleet",
		Subsystem: "feed",
		Name:      "connected",
		Help:      "Whether the live position feed is currently connected (0 or 1)",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geofleet",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geofleet",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geofleet",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
