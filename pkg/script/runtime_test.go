package script

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joeydtaylor/luarest/pkg/app"
	"github.com/joeydtaylor/luarest/pkg/manifest"
	"github.com/joeydtaylor/luarest/pkg/route"
	"go.uber.org/zap/zaptest"
)

const billingScript = `
function list(req)
  return luarest.HTTP_RESPONSE_OK, luarest.CONTENT_TYPE_JSON, "[]"
end

function echo(req)
  return luarest.HTTP_RESPONSE_CREATED, luarest.CONTENT_TYPE_PLAIN,
    req.method .. " " .. req.path .. " " .. (req.query.year or "") .. " " .. (req.headers["x-id"] or "") .. " " .. req.body
end

function doc(req)
  return luarest.HTTP_RESPONSE_OK, luarest.CONTENT_TYPE_JSON, { ok = true, items = { 1, 2, 3 } }
end

function luarest_init(service)
  service:register(luarest.HTTP_METHOD_GET, "/invoices", list)
  service:register(luarest.HTTP_METHOD_POST, "/echo", echo)
  service:register(luarest.HTTP_METHOD_GET, "/doc", doc)
end
`

func writeBundle(t *testing.T, name, src string, m manifest.App) app.Bundle {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	entry := filepath.Join(dir, app.EntryPoint)
	if err := os.WriteFile(entry, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return app.Bundle{Name: name, Dir: dir, EntryPoint: entry, Manifest: m}
}

func load(t *testing.T, b app.Bundle, timeout time.Duration) (*Runtime, *route.Table) {
	t.Helper()
	table := route.NewTable()
	env, err := NewLoader(timeout, zaptest.NewLogger(t)).Load(b, table)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rt := env.(*Runtime)
	t.Cleanup(func() { _ = rt.Close() })
	return rt, table
}

func TestLoadRegistersRoutes(t *testing.T) {
	rt, table := load(t, writeBundle(t, "billing", billingScript, manifest.App{}), 0)

	if table.Len() != 3 || rt.Handlers() != 3 {
		t.Fatalf("routes = %d handlers = %d, want 3 and 3", table.Len(), rt.Handlers())
	}
	ref, err := table.Lookup(route.MethodGet, "/invoices")
	if err != nil {
		t.Fatal(err)
	}
	res, err := rt.Invoke(context.Background(), ref, &app.Request{Method: route.MethodGet, Path: "/invoices"})
	if err != nil {
		t.Fatal(err)
	}
	if res.StatusCode != 1 || res.ContentTypeCode != 3 || string(res.Body) != "[]" {
		t.Fatalf("result = %+v", res)
	}
	if _, err := table.Lookup(route.MethodPost, "/invoices"); !errors.Is(err, route.ErrNotFound) {
		t.Fatalf("POST /invoices err = %v", err)
	}
}

func TestInvokeRequestTable(t *testing.T) {
	rt, table := load(t, writeBundle(t, "billing", billingScript, manifest.App{}), 0)
	ref, _ := table.Lookup(route.MethodPost, "/echo")

	res, err := rt.Invoke(context.Background(), ref, &app.Request{
		Method: route.MethodPost,
		Path:   "/echo",
		Query:  map[string][]string{"year": {"2024", "2025"}},
		Header: []app.Header{{Name: "X-Id", Value: "a"}, {Name: "x-id", Value: "b"}},
		Body:   []byte("hello"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(res.Body), "POST /echo 2024 b hello"; got != want {
		t.Fatalf("body = %q, want %q", got, want)
	}
	if res.StatusCode != 2 || res.ContentTypeCode != 1 {
		t.Fatalf("codes = %d/%d", res.StatusCode, res.ContentTypeCode)
	}
}

func TestInvokeTableBodyEncodesJSON(t *testing.T) {
	rt, table := load(t, writeBundle(t, "billing", billingScript, manifest.App{}), 0)
	ref, _ := table.Lookup(route.MethodGet, "/doc")

	res, err := rt.Invoke(context.Background(), ref, &app.Request{Method: route.MethodGet, Path: "/doc"})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(res.Body), `{"items":[1,2,3],"ok":true}`; got != want {
		t.Fatalf("body = %s, want %s", got, want)
	}
}

func TestManifestRoutesBindGlobals(t *testing.T) {
	m := manifest.App{Routes: []manifest.Route{
		{Method: "GET", Path: "/invoices", Handler: "doc"},
		{Method: "DELETE", Path: "/echo", Handler: "echo"},
	}}
	rt, table := load(t, writeBundle(t, "billing", billingScript, m), 0)

	if table.Len() != 4 {
		t.Fatalf("routes = %d, want 4", table.Len())
	}
	ref, _ := table.Lookup(route.MethodGet, "/invoices")
	res, err := rt.Invoke(context.Background(), ref, &app.Request{Method: route.MethodGet})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(res.Body), "{") {
		t.Fatalf("manifest route did not overwrite script route: %s", res.Body)
	}
}

func TestLoadFailures(t *testing.T) {
	cases := []struct {
		name string
		src  string
		m    manifest.App
		want error
	}{
		{name: "syntax", src: "function luarest_init(", want: nil},
		{name: "runtime", src: "error('boom')", want: nil},
		{name: "no init", src: "x = 1", want: ErrInitMissing},
		{name: "init not function", src: "luarest_init = 3", want: ErrInitMissing},
		{name: "init raises", src: "function luarest_init(s) error('nope') end", want: nil},
		{name: "bad method", src: "function luarest_init(s) s:register(42, '/x', function() end) end", want: nil},
		{name: "bad path", src: "function luarest_init(s) s:register(1, 'x', function() end) end", want: nil},
		{name: "not a function", src: "function luarest_init(s) s:register(1, '/x', 'nope') end", want: nil},
		{
			name: "manifest handler missing",
			src:  "function luarest_init(s) end",
			m:    manifest.App{Routes: []manifest.Route{{Method: "GET", Path: "/x", Handler: "missing"}}},
			want: ErrHandlerNotFunction,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := writeBundle(t, "broken", tc.src, tc.m)
			_, err := NewLoader(0, zaptest.NewLogger(t)).Load(b, route.NewTable())
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestLoadMissingEntryPoint(t *testing.T) {
	b := app.Bundle{Name: "ghost", Dir: t.TempDir()}
	b.EntryPoint = filepath.Join(b.Dir, app.EntryPoint)
	_, err := NewLoader(0, nil).Load(b, route.NewTable())
	if !errors.Is(err, app.ErrEntryPointMissing) {
		t.Fatalf("err = %v", err)
	}
}

func TestRegisterAfterInitFails(t *testing.T) {
	src := `
saved = nil
function late(req)
  saved:register(luarest.HTTP_METHOD_GET, "/late", late)
  return 1, 1, "x"
end
function luarest_init(s)
  saved = s
  s:register(luarest.HTTP_METHOD_GET, "/", late)
end
`
	rt, table := load(t, writeBundle(t, "late", src, manifest.App{}), 0)
	ref, _ := table.Lookup(route.MethodGet, "/")
	_, err := rt.Invoke(context.Background(), ref, &app.Request{Method: route.MethodGet, Path: "/"})
	var ie *InvocationError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want InvocationError", err)
	}
	if table.Len() != 1 {
		t.Fatalf("routes = %d, want 1", table.Len())
	}
}

func TestInvokeErrors(t *testing.T) {
	src := `
function raise(req) error("handler failed") end
function fraction(req) return 1.5, 1, "" end
function strstatus(req) return "ok", 1, "" end
function badbody(req) return 1, 1, 42 end
function plaintable(req) return 1, 1, { a = 1 } end
function nothing(req) end
function spin(req) while true do end end
function luarest_init(s)
  s:register(1, "/raise", raise)
  s:register(1, "/fraction", fraction)
  s:register(1, "/strstatus", strstatus)
  s:register(1, "/badbody", badbody)
  s:register(1, "/plaintable", plaintable)
  s:register(1, "/nothing", nothing)
  s:register(1, "/spin", spin)
end
`
	rt, table := load(t, writeBundle(t, "errs", src, manifest.App{}), 50*time.Millisecond)

	for _, p := range []string{"/raise", "/fraction", "/strstatus", "/badbody", "/plaintable", "/nothing", "/spin"} {
		t.Run(p, func(t *testing.T) {
			ref, err := table.Lookup(route.MethodGet, p)
			if err != nil {
				t.Fatal(err)
			}
			_, err = rt.Invoke(context.Background(), ref, &app.Request{Method: route.MethodGet, Path: p})
			var ie *InvocationError
			if !errors.As(err, &ie) {
				t.Fatalf("err = %v, want InvocationError", err)
			}
			if ie.App != "errs" || ie.Handler != ref {
				t.Fatalf("error = %+v", ie)
			}
			if p == "/spin" && !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("spin err = %v, want deadline exceeded", err)
			}
		})
	}

	if _, err := rt.Invoke(context.Background(), route.HandlerRef(99), nil); !errors.Is(err, ErrUnknownHandler) {
		t.Fatalf("unknown ref err = %v", err)
	}
}

func TestStateSurvivesFailures(t *testing.T) {
	src := `
count = 0
function bump(req)
  count = count + 1
  if req.path == "/fail" then error("fail") end
  return 1, 1, tostring(count)
end
function luarest_init(s)
  s:register(1, "/ok", bump)
  s:register(1, "/fail", bump)
end
`
	rt, table := load(t, writeBundle(t, "state", src, manifest.App{}), 0)
	okRef, _ := table.Lookup(route.MethodGet, "/ok")
	failRef, _ := table.Lookup(route.MethodGet, "/fail")

	ctx := context.Background()
	if _, err := rt.Invoke(ctx, failRef, &app.Request{Path: "/fail"}); err == nil {
		t.Fatal("expected failure")
	}
	res, err := rt.Invoke(ctx, okRef, &app.Request{Path: "/ok"})
	if err != nil {
		t.Fatal(err)
	}
	if string(res.Body) != "2" {
		t.Fatalf("count = %s, want 2", res.Body)
	}
}

func TestStateServesAfterTimeout(t *testing.T) {
	src := `
function spin(req) while true do end end
function fine(req) return 1, 1, "fine" end
function luarest_init(s)
  s:register(1, "/spin", spin)
  s:register(1, "/fine", fine)
end
`
	rt, table := load(t, writeBundle(t, "reuse", src, manifest.App{}), 50*time.Millisecond)
	spinRef, _ := table.Lookup(route.MethodGet, "/spin")
	fineRef, _ := table.Lookup(route.MethodGet, "/fine")

	ctx := context.Background()
	if _, err := rt.Invoke(ctx, spinRef, &app.Request{Path: "/spin"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("spin err = %v, want deadline exceeded", err)
	}
	for i := 0; i < 3; i++ {
		res, err := rt.Invoke(ctx, fineRef, &app.Request{Path: "/fine"})
		if err != nil {
			t.Fatalf("call %d after timeout: %v", i, err)
		}
		if string(res.Body) != "fine" {
			t.Fatalf("call %d body = %q", i, res.Body)
		}
		if top := rt.L.GetTop(); top != 0 {
			t.Fatalf("call %d left %d values on the stack", i, top)
		}
	}
}
