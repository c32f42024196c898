package server

import (
	"errors"

	"github.com/joeydtaylor/luarest/pkg/app"
)

var (
	// ErrMalformedURL is reported for request targets without a segment
	// after the application name.
	ErrMalformedURL       = errors.New("server: malformed url")
	ErrAppNotFound        = app.ErrAppNotFound
	ErrRouteNotFound      = errors.New("server: route not found")
	ErrMethodNotSupported = errors.New("server: method not supported")
	// ErrInvocation wraps every handler failure, including out of range
	// status or content type codes.
	ErrInvocation   = errors.New("server: handler invocation failed")
	ErrServerClosed = errors.New("server: closed")
)
