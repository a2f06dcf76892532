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
		Namespace: "routesketch",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "routesketch",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "path"})

	// Oracle metrics
	OracleRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routesketch",
		Subsystem: "oracle",
		Name:      "requests_total",
		Help:      "Total road-oracle calls by operation",
	}, []string{"operation", "profile"})

	OracleErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routesketch",
		Subsystem: "oracle",
		Name:      "errors_total",
		Help:      "Oracle calls that fell back to a degraded result",
	}, []string{"operation", "reason"})

	OracleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "routesketch",
		Subsystem: "oracle",
		Name:      "request_duration_seconds",
		Help:      "Road-oracle call latency",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"operation"})

	SnapCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "routesketch",
		Subsystem: "oracle",
		Name:      "snap_cache_hits_total",
		Help:      "Nearest-road lookups answered from the snap cache",
	})

	SnapCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "routesketch",
		Subsystem: "oracle",
		Name:      "snap_cache_misses_total",
		Help:      "Nearest-road lookups that went to the network",
	})

	// Synthesis metrics
	SynthesisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "routesketch",
		Subsystem: "synthesis",
		Name:      "duration_seconds",
		Help:      "End-to-end synthesis pipeline duration",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"profile"})

	SynthesisRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routesketch",
		Subsystem: "synthesis",
		Name:      "runs_total",
		Help:      "Synthesis pipeline runs by outcome",
	}, []string{"outcome"})

	StraightLineFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "routesketch",
		Subsystem: "synthesis",
		Name:      "straight_line_fallbacks_total",
		Help:      "Route segments that fell back to straight-line geometry",
	})

	// Cache metrics (saved-route read-through cache)
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routesketch",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routesketch",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "routesketch",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "routesketch",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "routesketch",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "routesketch",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
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

// UpdateDBPoolMetrics updates database pool metrics from pgx pool stats.
// Accepts an interface so this package does not import pgxpool.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
