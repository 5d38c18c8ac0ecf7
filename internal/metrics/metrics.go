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
	// Registry holds the application collectors; it is served on /metrics.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "moodshop",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "moodshop",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "moodshop",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"method", "path"},
	)

	ordersPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "moodshop",
			Subsystem: "checkout",
			Name:      "orders_placed_total",
			Help:      "Orders completed, by payment method.",
		},
		[]string{"payment_method"},
	)

	checkoutFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "moodshop",
			Subsystem: "checkout",
			Name:      "failures_total",
			Help:      "Checkout submissions that did not complete, by reason.",
		},
		[]string{"reason"},
	)

	otpEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "moodshop",
			Subsystem: "auth",
			Name:      "otp_events_total",
			Help:      "OTP codes sent and verification outcomes.",
		},
		[]string{"event"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpInFlight, httpRequests, httpDuration,
		ordersPlaced, checkoutFailures, otpEvents,
	)
}

// Middleware records request counts and latencies keyed by route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		httpInFlight.Inc()
		start := time.Now()
		c.Next()
		httpInFlight.Dec()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordOrderPlaced(paymentMethod string) {
	ordersPlaced.WithLabelValues(paymentMethod).Inc()
}

func RecordCheckoutFailure(reason string) {
	checkoutFailures.WithLabelValues(reason).Inc()
}

func RecordOTP(event string) {
	otpEvents.WithLabelValues(event).Inc()
}
