package metrics

import (
	"strconv"
	"time"
)

func ConnectionOpened() {
	connectionsTotal.Inc()
	openConnections.Inc()
}

func ConnectionClosed(reason string) {
	connectionsClosed.WithLabelValues(reason).Inc()
	openConnections.Dec()
}

// RequestAnswered counts a response written for app. Requests that never
// resolved to an application are counted under app "".
func RequestAnswered(app string, code int) {
	requestsTotal.WithLabelValues(app, strconv.Itoa(code)).Inc()
}

func InvocationFailed(app string) {
	invocationErrors.WithLabelValues(app).Inc()
}

func ObserveInvoke(app string, d time.Duration) {
	invokeTime.WithLabelValues(app).Observe(d.Seconds())
}
