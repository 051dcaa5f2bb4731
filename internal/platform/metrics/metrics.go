package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ItemsConsumedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_items_consumed_total",
			Help: "Buy attempts by outcome",
		},
		[]string{"result"},
	)

	EventsEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_events_emitted_total",
			Help: "Consumption events handed to the task queue by outcome",
		},
		[]string{"result"},
	)

	TasksDeliveredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_tasks_delivered_total",
			Help: "Task deliveries to the task endpoint by outcome",
		},
		[]string{"result"},
	)

	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cache_lookups_total",
			Help: "Analytics cache lookups by key and outcome",
		},
		[]string{"key", "result"},
	)
)

// Register registers all Prometheus metrics with the default registry
func Register() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(ItemsConsumedTotal)
	prometheus.MustRegister(EventsEmittedTotal)
	prometheus.MustRegister(TasksDeliveredTotal)
	prometheus.MustRegister(CacheLookupsTotal)
}

// Instrument records request count and latency per matched route.
func Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
