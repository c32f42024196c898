package app

import (
	"errors"
	"fmt"
	"sort"

	"github.com/joeydtaylor/luarest/pkg/route"
)

// Application is one hosted script bundle.
type Application struct {
	Name   string
	Dir    string
	Env    Environment
	Routes *route.Table
}

// Registry maps application names to applications. It is built once at
// startup and only read afterwards.
type Registry struct {
	apps map[string]*Application
}

func NewRegistry(apps ...*Application) (*Registry, error) {
	r := &Registry{apps: make(map[string]*Application, len(apps))}
	for _, a := range apps {
		if _, dup := r.apps[a.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateApp, a.Name)
		}
		r.apps[a.Name] = a
	}
	return r, nil
}

// Resolve returns the application named name.
func (r *Registry) Resolve(name string) (*Application, error) {
	a, ok := r.apps[name]
	if !ok {
		return nil, ErrAppNotFound
	}
	return a, nil
}

func (r *Registry) Len() int { return len(r.apps) }

// Names lists application names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.apps))
	for n := range r.apps {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Close tears down every scripting environment.
func (r *Registry) Close() error {
	var errs []error
	for _, n := range r.Names() {
		if a := r.apps[n]; a.Env != nil {
			if err := a.Env.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", n, err))
			}
		}
	}
	return errors.Join(errs...)
}
