package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/joeydtaylor/luarest/pkg/route"
	"go.uber.org/zap/zaptest"
)

type fakeEnv struct{ closed bool }

func (e *fakeEnv) Invoke(context.Context, route.HandlerRef, *Request) (Result, error) {
	return Result{StatusCode: 1, ContentTypeCode: 1}, nil
}

func (e *fakeEnv) Close() error {
	e.closed = true
	return nil
}

// fakeLoader registers GET /<app> for every bundle and fails bundles named in fail.
type fakeLoader struct {
	fail map[string]error
	envs map[string]*fakeEnv
}

func (l *fakeLoader) Load(b Bundle, table *route.Table) (Environment, error) {
	if err := l.fail[b.Name]; err != nil {
		return nil, err
	}
	table.Register(route.MethodGet, "/"+b.Name, 1)
	for _, r := range b.Manifest.Routes {
		table.Register(r.RouteMethod(), r.Path, 2)
	}
	env := &fakeEnv{}
	if l.envs == nil {
		l.envs = map[string]*fakeEnv{}
	}
	l.envs[b.Name] = env
	return env, nil
}

func mkBundle(t *testing.T, root, name string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for f, body := range files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDiscoverLoadsBundlesAndSkipsFailures(t *testing.T) {
	root := t.TempDir()
	mkBundle(t, root, "billing", map[string]string{EntryPoint: "-- billing"})
	mkBundle(t, root, "users", map[string]string{
		EntryPoint: "-- users",
		"app.toml": "[[route]]\nmethod = \"POST\"\npath = \"/signup\"\nhandler = \"signup\"\n",
	})
	mkBundle(t, root, "broken", map[string]string{EntryPoint: "-- broken"})
	mkBundle(t, root, "badmanifest", map[string]string{EntryPoint: "--", "app.toml": "[[route]]\n"})
	mkBundle(t, root, "assets", map[string]string{"index.html": "<html>"})
	if err := os.WriteFile(filepath.Join(root, "README"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := &fakeLoader{fail: map[string]error{"broken": errors.New("luarest_init missing")}}
	reg, err := Discover(root, l, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	if got := reg.Names(); len(got) != 2 || got[0] != "billing" || got[1] != "users" {
		t.Fatalf("apps = %v", got)
	}
	users, err := reg.Resolve("users")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := users.Routes.Lookup(route.MethodPost, "/signup"); err != nil {
		t.Fatalf("manifest route not registered: %v", err)
	}
	if _, err := reg.Resolve("broken"); !errors.Is(err, ErrAppNotFound) {
		t.Fatalf("broken app resolved: %v", err)
	}

	if err := reg.Close(); err != nil {
		t.Fatal(err)
	}
	for name, env := range l.envs {
		if !env.closed {
			t.Fatalf("%s environment not closed", name)
		}
	}
}

func TestDiscoverNoApplications(t *testing.T) {
	root := t.TempDir()
	mkBundle(t, root, "broken", map[string]string{EntryPoint: "--"})
	l := &fakeLoader{fail: map[string]error{"broken": errors.New("boom")}}

	if _, err := Discover(root, l, zaptest.NewLogger(t)); !errors.Is(err, ErrNoApplications) {
		t.Fatalf("err = %v, want ErrNoApplications", err)
	}
	if _, err := Discover(filepath.Join(root, "missing"), l, zaptest.NewLogger(t)); err == nil {
		t.Fatal("missing directory accepted")
	}
}

func TestLoadWrapsLoaderErrors(t *testing.T) {
	root := t.TempDir()
	mkBundle(t, root, "billing", map[string]string{EntryPoint: "--"})
	b, err := NewBundle("billing", filepath.Join(root, "billing"))
	if err != nil {
		t.Fatal(err)
	}

	cause := errors.New("compile error")
	_, err = Load(b, &fakeLoader{fail: map[string]error{"billing": cause}})
	var le *LoadError
	if !errors.As(err, &le) || le.App != "billing" || !errors.Is(err, cause) {
		t.Fatalf("err = %#v", err)
	}
}

func TestNewBundleEntryPointMissing(t *testing.T) {
	root := t.TempDir()
	mkBundle(t, root, "empty", nil)
	_, err := NewBundle("empty", filepath.Join(root, "empty"))
	if !errors.Is(err, ErrEntryPointMissing) {
		t.Fatalf("err = %v", err)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	a := &Application{Name: "billing", Routes: route.NewTable()}
	b := &Application{Name: "billing", Routes: route.NewTable()}
	if _, err := NewRegistry(a, b); !errors.Is(err, ErrDuplicateApp) {
		t.Fatalf("err = %v", err)
	}
}

func TestRegistryKeepsRoutelessApps(t *testing.T) {
	reg, err := NewRegistry(&Application{Name: "quiet", Routes: route.NewTable()})
	if err != nil {
		t.Fatal(err)
	}
	a, err := reg.Resolve("quiet")
	if err != nil || a.Routes.Len() != 0 {
		t.Fatalf("Resolve = %+v, %v", a, err)
	}
}
