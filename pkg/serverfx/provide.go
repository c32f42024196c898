package serverfx

import (
	"context"
	"path/filepath"

	"github.com/joeydtaylor/luarest/pkg/app"
	"github.com/joeydtaylor/luarest/pkg/manifest"
	"github.com/joeydtaylor/luarest/pkg/middleware/logger"
	"github.com/joeydtaylor/luarest/pkg/script"
	"github.com/joeydtaylor/luarest/pkg/server"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func provideConfig(opts Options) (manifest.Config, error) {
	return manifest.LoadConfig(filepath.Join(opts.BundleDir, manifest.ServerFile))
}

func provideRegistry(lc fx.Lifecycle, opts Options, cfg manifest.Config, log *zap.Logger) (*app.Registry, error) {
	loader := script.NewLoader(cfg.Server.InvokeTimeout(), log)
	reg, err := app.Discover(opts.BundleDir, loader, log)
	if err != nil {
		log.Error("no application could be loaded", zap.String("dir", opts.BundleDir), zap.Error(err))
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return reg.Close() },
	})
	return reg, nil
}

func provideServer(cfg manifest.Config, reg *app.Registry, log *zap.Logger, access logger.AccessLogger) *server.Server {
	return server.New(server.ConfigFrom(cfg.Server), reg, log, access)
}
