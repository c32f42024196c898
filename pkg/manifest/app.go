package manifest

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/joeydtaylor/luarest/pkg/route"
)

// AppFile is the optional per-application manifest next to main.lua.
const AppFile = "app.toml"

// App declares routes bound to global Lua functions by name.
type App struct {
	Routes []Route `toml:"route"`
}

// Route describes a single HTTP route.
type Route struct {
	Method  string `toml:"method"`
	Path    string `toml:"path"`
	Handler string `toml:"handler"`
}

func (a *App) Validate() error {
	seen := make(map[string]int, len(a.Routes))
	for i := range a.Routes {
		if err := a.Routes[i].normalize(); err != nil {
			return fmt.Errorf("route %d: %w", i, err)
		}
		if err := a.Routes[i].validate(); err != nil {
			return fmt.Errorf("route %d (%s %s): %w", i, a.Routes[i].Method, a.Routes[i].Path, err)
		}
		key := a.Routes[i].Method + " " + a.Routes[i].Path
		if j, dup := seen[key]; dup {
			return fmt.Errorf("route %d duplicates route %d (%s)", i, j, key)
		}
		seen[key] = i
	}
	return nil
}

// RouteMethod is the validated method of r.
func (r Route) RouteMethod() route.Method {
	m, _ := route.ParseMethod(r.Method)
	return m
}

func (r *Route) normalize() error {
	if r.Path == "" {
		return errors.New("path is required")
	}
	if !strings.HasPrefix(r.Path, "/") {
		r.Path = "/" + r.Path
	}
	if r.Path != "/" {
		r.Path = path.Clean(r.Path)
	}
	r.Method = strings.ToUpper(strings.TrimSpace(r.Method))
	if r.Method == "" {
		r.Method = "GET"
	}
	r.Handler = strings.TrimSpace(r.Handler)
	return nil
}

func (r *Route) validate() error {
	if _, ok := route.ParseMethod(r.Method); !ok {
		return fmt.Errorf("unsupported method %q", r.Method)
	}
	if r.Handler == "" {
		return errors.New("handler is required")
	}
	return nil
}
