package auth

import "github.com/joeydtaylor/luarest/pkg/manifest"

// ProvideAuthentication builds the admin guard from the [admin] section.
func ProvideAuthentication(cfg manifest.Config) *Middleware {
	return New(cfg.Admin.JWTSecret, cfg.Admin.JWTIssuer)
}
