package auth

import "time"

// Middleware guards the admin surface with HS256 bearer tokens. A zero
// secret disables the guard.
type Middleware struct {
	secret []byte
	issuer string
	leeway time.Duration
}

type contextKey struct{ name string }

var userCtxKey = &contextKey{"user"}

func New(secret, issuer string) *Middleware {
	return &Middleware{secret: []byte(secret), issuer: issuer, leeway: 60 * time.Second}
}

// Enabled reports whether requests must carry a valid token.
func (m *Middleware) Enabled() bool { return m != nil && len(m.secret) > 0 }
