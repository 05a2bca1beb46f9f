// Package metrics holds the Prometheus collectors shared by the engine and the HTTP layer.
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
	SLAClassificationDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sla_classification_degraded_total",
			Help: "Degraded SLA classification observations. Every queue computation observes each degraded order again, so this grows with refresh volume",
		},
		[]string{"status"},
	)

	SLADegradedOrders = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sla_degraded_orders",
			Help: "Active orders whose last SLA classification fell back to created_at",
		},
		[]string{"status"},
	)

	ActionEmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "action_emissions_total",
			Help: "Action notifications emitted, by type and whether a new row was created",
		},
		[]string{"type", "outcome"},
	)

	ActionResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "action_resolutions_total",
			Help: "Action notifications transitioned to resolved, by resolution path",
		},
		[]string{"path"},
	)

	SideChannelFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "side_channel_failures_total",
			Help: "Push and email deliveries that failed",
		},
		[]string{"channel"},
	)

	OutboxDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_outbox_deliveries_total",
			Help: "Outbox side-channel deliveries processed by the scheduler",
		},
		[]string{"channel", "outcome"},
	)

	BulkAssignmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulk_assignment_orders_total",
			Help: "Orders processed by bulk assignment, by outcome",
		},
		[]string{"outcome"},
	)

	QueueRefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "operations_queue_refresh_duration_seconds",
			Help:    "Time spent loading and routing the active order snapshot",
			Buckets: prometheus.DefBuckets,
		},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

var registerOnce sync.Once

// Register registers all collectors with the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			SLAClassificationDegradedTotal,
			SLADegradedOrders,
			ActionEmissionsTotal,
			ActionResolutionsTotal,
			SideChannelFailuresTotal,
			OutboxDeliveriesTotal,
			BulkAssignmentsTotal,
			QueueRefreshDuration,
			HTTPRequestDuration,
		)
	})
}

// Handler exposes the default registry.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Middleware records request latency keyed by the matched route pattern.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
