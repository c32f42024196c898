package metrics

import "github.com/prometheus/client_golang/prometheus"

// Reasons a connection was closed.
const (
	ReasonEOF         = "eof"
	ReasonError       = "error"
	ReasonParseError  = "parse_error"
	ReasonIdleTimeout = "idle_timeout"
	ReasonShutdown    = "shutdown"
	ReasonDone        = "done"
)

var (
	connectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "luarest_connections_total", Help: "accepted connections"},
	)

	connectionsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "luarest_connections_closed_total", Help: "closed connections by reason"},
		[]string{"reason"},
	)

	openConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "luarest_open_connections", Help: "connections currently open"},
	)

	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "luarest_requests_total", Help: "answered requests by app and status code"},
		[]string{"app", "code"},
	)

	invocationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "luarest_invocation_errors_total", Help: "failed handler invocations"},
		[]string{"app"},
	)

	invokeTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "luarest_invoke_seconds",
			Help:    "handler execution time.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"app"},
	)

	responseTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "luarest_admin_response_seconds",
			Help:    "admin http response time.",
			Buckets: []float64{0.005, 0.05, 0.5, 1, 5},
		},
	)

	totalHttpRequestsFromRole = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "luarest_admin_requests_from_role_total", Help: "admin requests from role"},
		[]string{"role"},
	)

	totalHttpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "luarest_admin_requests_total", Help: "admin requests by code, uri and method"},
		[]string{"code", "uri", "method"},
	)
)

func init() {
	prometheus.MustRegister(
		connectionsTotal,
		connectionsClosed,
		openConnections,
		requestsTotal,
		invocationErrors,
		invokeTime,
		responseTime,
		totalHttpRequestsFromRole,
		totalHttpRequests,
	)
}
