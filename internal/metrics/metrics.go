package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce sync.Once

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "filedrop_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "filedrop_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	uploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "filedrop_uploads_total",
		Help: "Upload attempts by result.",
	}, []string{"result"})

	uploadedBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "filedrop_uploaded_bytes_total",
		Help: "Bytes accepted by successful uploads.",
	})

	sweptBlobs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "filedrop_swept_blobs_total",
		Help: "Blobs removed by the orphan sweep by kind.",
	}, []string{"kind"})
)

// InitMetrics registers collectors with the default registry. Safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, uploads, uploadedBytes, sweptBlobs)
	})
}

// Middleware records request counts and latency per route.
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

// ObserveUpload counts an upload outcome; size is added only for "ok".
func ObserveUpload(result string, size int64) {
	uploads.WithLabelValues(result).Inc()
	if result == "ok" && size > 0 {
		uploadedBytes.Add(float64(size))
	}
}

// ObserveSweep counts blobs removed by the sweep.
func ObserveSweep(kind string, n int) {
	if n > 0 {
		sweptBlobs.WithLabelValues(kind).Add(float64(n))
	}
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}
