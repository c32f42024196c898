package app

import (
	"errors"
	"fmt"
)

var (
	ErrAppNotFound       = errors.New("app: application not found")
	ErrNoApplications    = errors.New("app: no applications could be loaded")
	ErrDuplicateApp      = errors.New("app: duplicate application name")
	ErrEntryPointMissing = errors.New("app: entry point missing")
)

// LoadError reports why one application was skipped at startup.
type LoadError struct {
	App  string
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("application %s couldn't be loaded (%s): %v", e.App, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
