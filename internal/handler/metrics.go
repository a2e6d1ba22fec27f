package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	phRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photohunt_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	phRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "photohunt_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	phConnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photohunt_connects_total",
		Help: "Total connect attempts by result.",
	}, []string{"result"})

	phVotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photohunt_votes_total",
		Help: "Total vote attempts by result.",
	}, []string{"result"})

	phDisconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photohunt_disconnects_total",
		Help: "Total disconnects by result.",
	}, []string{"result"})

	phPhotosTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "photohunt_photos_submitted_total",
		Help: "Total photos submitted.",
	})

	phDependencyChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photohunt_dependency_checks_total",
		Help: "Total dependency health probes by dependency and result.",
	}, []string{"dependency", "result"})

	phThrottledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photohunt_throttled_requests_total",
		Help: "Total requests rejected by the rate limiter, by limit bucket.",
	}, []string{"bucket"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		phRequestsTotal.WithLabelValues(method, path, status).Inc()
		phRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordConnect records a connect attempt result.
func RecordConnect(result string) {
	phConnectsTotal.WithLabelValues(result).Inc()
}

// RecordVote records a vote attempt result.
func RecordVote(result string) {
	phVotesTotal.WithLabelValues(result).Inc()
}

// RecordDisconnect records a disconnect result.
func RecordDisconnect(success bool) {
	if success {
		phDisconnectsTotal.WithLabelValues("success").Inc()
	} else {
		phDisconnectsTotal.WithLabelValues("failure").Inc()
	}
}

// RecordPhotoSubmitted records a stored photo.
func RecordPhotoSubmitted() {
	phPhotosTotal.Inc()
}

// RecordHealthCheck records a dependency probe result.
func RecordHealthCheck(dependency string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	phDependencyChecksTotal.WithLabelValues(dependency, result).Inc()
}
