package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lipia",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lipia",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	gatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lipia",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Calls made to the remote accounts API.",
		},
		[]string{"operation", "outcome"},
	)

	gatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lipia",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Duration of calls to the remote accounts API.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"operation"},
	)

	wordsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lipia",
			Subsystem: "content",
			Name:      "words_processed_total",
			Help:      "Words sent through the humanizer.",
		},
		[]string{"plan"},
	)

	paymentsInitiated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lipia",
			Subsystem: "payments",
			Name:      "initiated_total",
			Help:      "Payments started from the web front end.",
		},
		[]string{"plan", "status"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		gatewayRequests,
		gatewayDuration,
		wordsProcessed,
		paymentsInitiated,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records one sample per request, labelled by the matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func ObserveGateway(operation, outcome string, elapsed time.Duration) {
	gatewayRequests.WithLabelValues(operation, outcome).Inc()
	gatewayDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func AddWordsProcessed(plan string, words int) {
	wordsProcessed.WithLabelValues(plan).Add(float64(words))
}

func IncPaymentsInitiated(plan, status string) {
	paymentsInitiated.WithLabelValues(plan, status).Inc()
}
