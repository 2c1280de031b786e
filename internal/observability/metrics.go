package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	bridgeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatamata_bridge_http_requests_total",
			Help: "Total number of HTTP requests served by the bridge.",
		},
		[]string{"method", "route", "status"},
	)
	bridgeRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatamata_bridge_http_request_duration_seconds",
			Help:    "Bridge request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	gatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatamata_gateway_requests_total",
			Help: "Total number of remote gateway calls.",
		},
		[]string{"operation", "status"},
	)
	gatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatamata_gateway_request_duration_seconds",
			Help:    "Remote gateway call latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	realtimeEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatamata_realtime_events_total",
			Help: "Total number of realtime change-feed events received.",
		},
		[]string{"table", "action"},
	)
	sendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatamata_message_sends_total",
			Help: "Total number of message send attempts by outcome.",
		},
		[]string{"kind", "outcome"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatamata_bridge_ws_active_connections",
			Help: "Number of presentation-layer websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatamata_bridge_ws_events_total",
			Help: "Total number of bridge websocket events.",
		},
		[]string{"event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatamata_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		bridgeRequestsTotal,
		bridgeRequestDuration,
		gatewayRequestsTotal,
		gatewayRequestDuration,
		realtimeEventsTotal,
		sendsTotal,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
	)
}

// HTTPMetricsMiddleware records per-route counters and latencies for the
// bridge router.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		bridgeRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		bridgeRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// ObserveGatewayRequest records one remote gateway call.
func ObserveGatewayRequest(operation string, status int, elapsed time.Duration) {
	gatewayRequestsTotal.WithLabelValues(operation, strconv.Itoa(status)).Inc()
	gatewayRequestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// IncRealtimeEvent counts a decoded change-feed event.
func IncRealtimeEvent(table, action string) {
	realtimeEventsTotal.WithLabelValues(table, action).Inc()
}

// IncSend counts a message send attempt outcome.
func IncSend(kind, outcome string) {
	sendsTotal.WithLabelValues(kind, outcome).Inc()
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
