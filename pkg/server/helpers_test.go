package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/joeydtaylor/luarest/pkg/app"
	"github.com/joeydtaylor/luarest/pkg/route"
)

type handlerFunc func(req *app.Request) (app.Result, error)

type fakeEnv struct {
	handlers []handlerFunc
	calls    int
	last     *app.Request
}

func (e *fakeEnv) register(t *route.Table, m route.Method, path string, h handlerFunc) {
	e.handlers = append(e.handlers, h)
	t.Register(m, path, route.HandlerRef(len(e.handlers)-1))
}

func (e *fakeEnv) Invoke(_ context.Context, ref route.HandlerRef, req *app.Request) (app.Result, error) {
	e.calls++
	e.last = req
	return e.handlers[ref](req)
}

func (e *fakeEnv) Close() error { return nil }

var errBoom = errors.New("boom")

func newBillingRegistry(t *testing.T) (*app.Registry, *fakeEnv) {
	t.Helper()
	env := &fakeEnv{}
	table := route.NewTable()
	env.register(table, route.MethodGet, "/invoices", func(*app.Request) (app.Result, error) {
		return app.Result{StatusCode: 1, ContentTypeCode: 3, Body: []byte(`{"ok":true}`)}, nil
	})
	env.register(table, route.MethodPost, "/echo", func(r *app.Request) (app.Result, error) {
		return app.Result{StatusCode: 2, ContentTypeCode: 1, Body: r.Body}, nil
	})
	env.register(table, route.MethodGet, "/", func(*app.Request) (app.Result, error) {
		return app.Result{StatusCode: 1, ContentTypeCode: 2, Body: []byte("<p>root</p>")}, nil
	})
	env.register(table, route.MethodGet, "/boom", func(*app.Request) (app.Result, error) {
		return app.Result{}, errBoom
	})
	env.register(table, route.MethodGet, "/badstatus", func(*app.Request) (app.Result, error) {
		return app.Result{StatusCode: 42, ContentTypeCode: 1}, nil
	})
	env.register(table, route.MethodGet, "/badtype", func(*app.Request) (app.Result, error) {
		return app.Result{StatusCode: 1, ContentTypeCode: 0}, nil
	})
	env.register(table, route.MethodGet, "/slow", func(*app.Request) (app.Result, error) {
		time.Sleep(20 * time.Millisecond)
		return app.Result{StatusCode: 3, ContentTypeCode: 1}, nil
	})

	env.register(table, route.MethodGet, "/stall", func(*app.Request) (app.Result, error) {
		time.Sleep(150 * time.Millisecond)
		return app.Result{StatusCode: 3, ContentTypeCode: 1}, nil
	})

	reg, err := app.NewRegistry(&app.Application{Name: "billing", Env: env, Routes: table})
	if err != nil {
		t.Fatal(err)
	}
	return reg, env
}

// parseOne feeds raw through a fresh connection's parser and returns the
// completed request.
func parseOne(t *testing.T, raw string) *request {
	t.Helper()
	c := newConn(1, nil, 0, time.Now())
	n, err := c.parser.Execute([]byte(raw))
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	if n != len(raw) {
		t.Fatalf("parse %q consumed %d of %d", raw, n, len(raw))
	}
	if c.req == nil || !c.req.complete {
		t.Fatalf("parse %q: message not complete", raw)
	}
	return c.req
}
