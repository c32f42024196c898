package serverfx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/joeydtaylor/luarest/pkg/manifest"
	"github.com/joeydtaylor/luarest/pkg/middleware/auth"
	"github.com/joeydtaylor/luarest/pkg/middleware/logger"
	"github.com/joeydtaylor/luarest/pkg/middleware/metrics"
	"github.com/joeydtaylor/luarest/pkg/server"
	"github.com/joeydtaylor/luarest/pkg/transport/httpx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module returns the complete fx option set for one luarest process.
func Module(opts Options) fx.Option {
	return fx.Options(
		fx.Supply(opts),

		// Middleware modules
		logger.Module,
		metrics.Module,
		fx.Provide(auth.ProvideAuthentication),

		// Router implementation for the admin surface
		fx.Provide(httpx.NewChi),

		fx.Provide(provideConfig),
		fx.Provide(provideRegistry),
		fx.Provide(provideServer),
		fx.Provide(fx.Annotate(buildAdmin, fx.ResultTags(`name:"admin"`))),

		fx.Invoke(registerHooks),
	)
}

type hookDeps struct {
	fx.In

	Opts       Options
	Config     manifest.Config
	Server     *server.Server
	Admin      http.Handler `name:"admin"`
	Logger     *zap.Logger
	Shutdowner fx.Shutdowner
}

func registerHooks(lc fx.Lifecycle, d hookDeps) {
	var admin *http.Server
	if d.Config.Admin.Listen != "" {
		admin = &http.Server{
			Addr:         d.Config.Admin.Listen,
			Handler:      d.Admin,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", d.Config.Server.Listen)
			if err != nil {
				return fmt.Errorf("listen %s: %w", d.Config.Server.Listen, err)
			}
			var aln net.Listener
			if admin != nil {
				if aln, err = net.Listen("tcp", admin.Addr); err != nil {
					_ = ln.Close()
					return fmt.Errorf("listen admin %s: %w", admin.Addr, err)
				}
			}

			d.Logger.Info("server starting",
				zap.String("service", d.Opts.Service),
				zap.String("addr", ln.Addr().String()),
			)
			go func() {
				if err := d.Server.Serve(ln); err != nil && !errors.Is(err, server.ErrServerClosed) {
					d.Logger.Error("server failed", zap.Error(err))
					_ = d.Shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()

			if aln != nil {
				d.Logger.Info("admin starting", zap.String("addr", aln.Addr().String()))
				go func() {
					if err := admin.Serve(aln); err != nil && !errors.Is(err, http.ErrServerClosed) {
						d.Logger.Error("admin server failed", zap.Error(err))
					}
				}()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			d.Logger.Info("server stopping", zap.String("service", d.Opts.Service))
			var errs []error
			if admin != nil {
				errs = append(errs, admin.Shutdown(ctx))
			}
			errs = append(errs, d.Server.Shutdown(ctx))
			return errors.Join(errs...)
		},
	})
}
