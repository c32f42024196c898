package logger

import (
	"net/http"
	"time"

	chimd "github.com/go-chi/chi/v5/middleware"
	"github.com/joeydtaylor/luarest/pkg/middleware/auth"
	"go.uber.org/zap"
)

// Middleware logs admin surface requests to the access log.
type Middleware struct {
	access AccessLogger
}

func (m *Middleware) Middleware(ca *auth.Middleware) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimd.NewWrapResponseWriter(w, r.ProtoMajor)

			start := time.Now()
			defer func() {
				username, authenticated := "", false
				if ca != nil {
					username = ca.GetUser(r.Context()).Username
					authenticated = ca.IsAuthenticated(r.Context())
				}
				m.access.Info("admin request",
					zap.String("dateTime", start.UTC().Format(time.RFC1123)),
					zap.String("requestId", chimd.GetReqID(r.Context())),
					zap.String("username", username),
					zap.Bool("authenticated", authenticated),
					zap.String("httpProto", r.Proto),
					zap.String("httpMethod", r.Method),
					zap.String("remoteAddr", r.RemoteAddr),
					zap.String("uri", r.URL.Path),
					zap.Duration("lat", time.Since(start)),
					zap.Int("responseSize", ww.BytesWritten()),
					zap.Int("status", ww.Status()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
