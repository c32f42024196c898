package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joeydtaylor/luarest/pkg/manifest"
	"github.com/joeydtaylor/luarest/pkg/route"
	"go.uber.org/zap"
)

// Discover loads every immediate subdirectory of dir that contains main.lua.
// Applications that fail to load are logged and skipped; finding none at all
// is ErrNoApplications.
func Discover(dir string, l Loader, log *zap.Logger) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read application directory: %w", err)
	}

	var apps []*Application
	for _, e := range entries {
		appDir := filepath.Join(dir, e.Name())
		if st, err := os.Stat(appDir); err != nil || !st.IsDir() {
			continue
		}
		b, err := NewBundle(e.Name(), appDir)
		if errors.Is(err, ErrEntryPointMissing) {
			log.Debug("directory has no entry point, skipping",
				zap.String("dir", appDir), zap.String("entryPoint", EntryPoint))
			continue
		}
		if err == nil {
			var a *Application
			if a, err = Load(b, l); err == nil {
				log.Info("application loaded",
					zap.String("app", a.Name),
					zap.String("dir", a.Dir),
					zap.Int("routes", a.Routes.Len()),
				)
				apps = append(apps, a)
				continue
			}
		}
		log.Error("application couldn't be loaded", zap.String("app", e.Name()), zap.Error(err))
	}

	if len(apps) == 0 {
		return nil, ErrNoApplications
	}
	return NewRegistry(apps...)
}

// NewBundle checks dir for an entry point and reads its optional app.toml.
func NewBundle(name, dir string) (Bundle, error) {
	entry := filepath.Join(dir, EntryPoint)
	if _, err := os.Stat(entry); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Bundle{}, &LoadError{App: name, Path: entry, Err: ErrEntryPointMissing}
		}
		return Bundle{}, &LoadError{App: name, Path: entry, Err: err}
	}
	m, err := manifest.LoadApp(filepath.Join(dir, manifest.AppFile))
	if err != nil {
		return Bundle{}, &LoadError{App: name, Path: filepath.Join(dir, manifest.AppFile), Err: err}
	}
	return Bundle{Name: name, Dir: dir, EntryPoint: entry, Manifest: m}, nil
}

// Load initialises one application through l.
func Load(b Bundle, l Loader) (*Application, error) {
	table := route.NewTable()
	env, err := l.Load(b, table)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			return nil, err
		}
		return nil, &LoadError{App: b.Name, Path: b.EntryPoint, Err: err}
	}
	return &Application{Name: b.Name, Dir: b.Dir, Env: env, Routes: table}, nil
}
