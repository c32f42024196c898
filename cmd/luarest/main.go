// Command luarest serves every Lua application found under a bundle directory.
package main

import (
	"fmt"
	"os"

	"github.com/joeydtaylor/luarest/pkg/serverfx"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: luarest <app-dir>")
		os.Exit(1)
	}

	app := fx.New(
		serverfx.Module(serverfx.Options{Service: "luarest", BundleDir: os.Args[1]}),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
	)
	if err := app.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	app.Run()
}
