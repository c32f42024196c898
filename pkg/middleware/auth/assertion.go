package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken        = errors.New("auth: missing bearer token")
	ErrInvalidToken   = errors.New("auth: invalid token")
	ErrBadIssuer      = errors.New("auth: bad issuer")
	ErrMissingSubject = errors.New("auth: missing subject")
)

type claims struct {
	jwt.RegisteredClaims
	UID   string   `json:"uid"`
	Roles []string `json:"roles"`
	Role  string   `json:"role"`
}

func (m *Middleware) validateToken(raw string) (User, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(m.leeway),
	)

	var c claims
	tok, err := parser.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil || !tok.Valid {
		return User{}, ErrInvalidToken
	}
	if m.issuer != "" && c.Issuer != m.issuer {
		return User{}, ErrBadIssuer
	}

	username := firstNonEmpty(c.UID, c.Subject)
	if username == "" {
		return User{}, ErrMissingSubject
	}
	return User{
		Username:             username,
		AuthenticationSource: AuthenticationSource{Provider: "bearer", Issuer: c.Issuer},
		Role:                 Role{Name: firstNonEmpty(c.Role, first(c.Roles...))},
	}, nil
}
