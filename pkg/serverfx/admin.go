package serverfx

import (
	"net/http"

	chimd "github.com/go-chi/chi/v5/middleware"
	"github.com/joeydtaylor/luarest/pkg/app"
	"github.com/joeydtaylor/luarest/pkg/codec"
	"github.com/joeydtaylor/luarest/pkg/middleware/auth"
	"github.com/joeydtaylor/luarest/pkg/middleware/logger"
	"github.com/joeydtaylor/luarest/pkg/middleware/metrics"
	"github.com/joeydtaylor/luarest/pkg/transport/httpx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type adminDeps struct {
	fx.In

	AuthMW  *auth.Middleware
	LogMW   *logger.Middleware
	Metrics http.Handler `name:"metrics"`
	Apps    *app.Registry
	R       httpx.Router
	Log     *zap.Logger
}

type routeInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

type appInfo struct {
	Name   string      `json:"name"`
	Dir    string      `json:"dir"`
	Routes []routeInfo `json:"routes"`
}

// buildAdmin serves /ping, /metrics and /apps. Everything but /ping sits
// behind the bearer guard when one is configured.
func buildAdmin(d adminDeps) http.Handler {
	r := d.R
	r.Use(chimd.RequestID, chimd.Recoverer, chimd.Heartbeat("/ping"))
	r.Use(d.AuthMW.Middleware())
	r.Use(d.LogMW.Middleware(d.AuthMW))
	r.Use(metrics.Collect(d.AuthMW))

	r.Handle(http.MethodGet, "/metrics", d.Metrics)
	r.Get("/apps", appsHandler(d.Apps, d.Log))
	r.NotFound(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	}))
	return r.Mux()
}

func appsHandler(reg *app.Registry, log *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		out := make([]appInfo, 0, reg.Len())
		for _, name := range reg.Names() {
			a, err := reg.Resolve(name)
			if err != nil {
				continue
			}
			info := appInfo{Name: a.Name, Dir: a.Dir, Routes: []routeInfo{}}
			for _, k := range a.Routes.Keys() {
				info.Routes = append(info.Routes, routeInfo{Method: k.Method.String(), Path: k.Path})
			}
			out = append(out, info)
		}

		b, err := codec.JSONStrict.Marshal(out)
		if err != nil {
			log.Error("encode app listing", zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", codec.JSONStrict.ContentType())
		_, _ = w.Write(b)
	})
}
