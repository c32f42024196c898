package metrics

import (
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joeydtaylor/luarest/pkg/middleware/auth"
)

// Collect produces the admin HTTP middleware that records the counters/histogram.
func Collect(ca *auth.Middleware) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			startTime := time.Now()

			defer func() {
				if isSkipPath(r) {
					return
				}

				role := ""
				if ca != nil {
					role = ca.GetUser(r.Context()).Role.Name
				}

				totalHttpRequestsFromRole.WithLabelValues(role).Inc()
				totalHttpRequests.WithLabelValues(strconv.Itoa(ww.Status()), r.URL.Path, r.Method).Inc()
				responseTime.Observe(time.Since(startTime).Seconds())
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
