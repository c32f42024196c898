// Package script runs application bundles on gopher-lua.
package script

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joeydtaylor/luarest/pkg/app"
	"github.com/joeydtaylor/luarest/pkg/codec"
	"github.com/joeydtaylor/luarest/pkg/protocol"
	"github.com/joeydtaylor/luarest/pkg/route"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Loader creates one Lua state per application.
type Loader struct {
	// Timeout bounds each handler invocation. Zero disables it.
	Timeout time.Duration
	Log     *zap.Logger
}

func NewLoader(timeout time.Duration, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{Timeout: timeout, Log: log}
}

// Runtime is the Environment of one loaded application. It is not safe for
// concurrent use; the server only invokes it from its event loop.
type Runtime struct {
	name     string
	L        *lua.LState
	handlers []*lua.LFunction
	timeout  time.Duration
}

var _ app.Loader = (*Loader)(nil)
var _ app.Environment = (*Runtime)(nil)

// Load executes the bundle's main.lua, calls luarest_init with the service
// object and then binds the manifest routes to global functions. Manifest
// routes are registered last and overwrite script registrations.
func (l *Loader) Load(b app.Bundle, table *route.Table) (app.Environment, error) {
	if _, err := os.Stat(b.EntryPoint); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &app.LoadError{App: b.Name, Path: b.EntryPoint, Err: app.ErrEntryPointMissing}
		}
		return nil, err
	}

	L := lua.NewState()
	rt := &Runtime{name: b.Name, L: L, timeout: l.Timeout}
	if err := rt.boot(b, table, l.Log.With(zap.String("app", b.Name))); err != nil {
		L.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) boot(b app.Bundle, table *route.Table, log *zap.Logger) error {
	L := rt.L
	openLuarest(L, log)

	fn, err := L.LoadFile(b.EntryPoint)
	if err != nil {
		return fmt.Errorf("compile %s: %w", b.EntryPoint, err)
	}
	L.Push(fn)
	if err := L.PCall(0, 0, nil); err != nil {
		return fmt.Errorf("run %s: %w", b.EntryPoint, err)
	}

	init, ok := L.GetGlobal(InitFunction).(*lua.LFunction)
	if !ok {
		return ErrInitMissing
	}
	svc := &service{rt: rt, table: table}
	err = L.CallByParam(lua.P{Fn: init, NRet: 0, Protect: true}, newService(L, svc))
	svc.sealed = true
	if err != nil {
		return fmt.Errorf("%s: %w", InitFunction, err)
	}

	for _, r := range b.Manifest.Routes {
		fn, ok := L.GetGlobal(r.Handler).(*lua.LFunction)
		if !ok {
			return fmt.Errorf("%w: %q", ErrHandlerNotFunction, r.Handler)
		}
		table.Register(r.RouteMethod(), r.Path, rt.add(fn))
	}
	return nil
}

func (rt *Runtime) add(fn *lua.LFunction) route.HandlerRef {
	rt.handlers = append(rt.handlers, fn)
	return route.HandlerRef(len(rt.handlers) - 1)
}

// Invoke calls the handler behind ref with the request table and converts
// its three return values. Status and content type codes are returned raw;
// range checking is left to the caller.
func (rt *Runtime) Invoke(ctx context.Context, ref route.HandlerRef, req *app.Request) (app.Result, error) {
	if int(ref) >= len(rt.handlers) {
		return app.Result{}, rt.fail(ref, ErrUnknownHandler)
	}
	if rt.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rt.timeout)
		defer cancel()
	}
	if ctx.Done() != nil {
		rt.L.SetContext(ctx)
		defer rt.L.RemoveContext()
	}

	L := rt.L
	top := L.GetTop()
	defer L.SetTop(top)

	if err := L.CallByParam(lua.P{Fn: rt.handlers[ref], NRet: 3, Protect: true}, requestTable(L, req)); err != nil {
		if cerr := ctx.Err(); cerr != nil {
			err = fmt.Errorf("%w: %v", cerr, err)
		}
		return app.Result{}, rt.fail(ref, err)
	}

	status, ok := toInt(L.Get(-3))
	if !ok {
		return app.Result{}, rt.fail(ref, fmt.Errorf("%w: status must be an integer, got %s", ErrBadResult, L.Get(-3).Type()))
	}
	ctype, ok := toInt(L.Get(-2))
	if !ok {
		return app.Result{}, rt.fail(ref, fmt.Errorf("%w: content type must be an integer, got %s", ErrBadResult, L.Get(-2).Type()))
	}
	body, err := bodyBytes(L.Get(-1), ctype)
	if err != nil {
		return app.Result{}, rt.fail(ref, err)
	}
	return app.Result{StatusCode: status, ContentTypeCode: ctype, Body: body}, nil
}

func bodyBytes(v lua.LValue, ctype int) ([]byte, error) {
	switch v := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LString:
		return []byte(string(v)), nil
	case *lua.LTable:
		if ct, ok := protocol.ContentTypeFromCode(ctype); !ok || ct != protocol.ContentTypeJSON {
			return nil, fmt.Errorf("%w: table body requires CONTENT_TYPE_JSON", ErrBadResult)
		}
		doc, err := toGo(v, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadResult, err)
		}
		return codec.JSONStrict.Marshal(doc)
	}
	return nil, fmt.Errorf("%w: body must be a string, table or nil, got %s", ErrBadResult, v.Type())
}

func (rt *Runtime) fail(ref route.HandlerRef, err error) error {
	return &InvocationError{App: rt.name, Handler: ref, Err: err}
}

// Handlers is the number of handler references issued so far.
func (rt *Runtime) Handlers() int { return len(rt.handlers) }

func (rt *Runtime) Close() error {
	rt.L.Close()
	return nil
}
