package script

import (
	"errors"
	"fmt"

	"github.com/joeydtaylor/luarest/pkg/route"
)

var (
	ErrInitMissing        = errors.New("script: luarest_init is not defined or not a function")
	ErrHandlerNotFunction = errors.New("script: manifest handler is not a global function")
	ErrUnknownHandler     = errors.New("script: unknown handler reference")
	ErrBadResult          = errors.New("script: handler returned an invalid result")
)

// InvocationError is returned when a handler raised an error, timed out or
// returned something that is not (status, content type, body).
type InvocationError struct {
	App     string
	Handler route.HandlerRef
	Err     error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("invoke %s handler %d: %v", e.App, e.Handler, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }
