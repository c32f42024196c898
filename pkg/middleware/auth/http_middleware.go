package auth

import (
	"context"
	"net/http"
	"strings"
)

// Middleware rejects requests without a valid bearer token with 401. When the
// guard is disabled requests pass through unauthenticated.
func (m *Middleware) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.Enabled() {
				next.ServeHTTP(w, r)
				return
			}
			u, err := m.authenticate(r)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="luarest"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), userCtxKey, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (m *Middleware) authenticate(r *http.Request) (User, error) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, raw, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
		return User{}, ErrNoToken
	}
	return m.validateToken(strings.TrimSpace(raw))
}
