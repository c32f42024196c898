package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewPromHttpHandler serves the default registry. Collection errors are
// logged and the remaining metrics are still written.
func NewPromHttpHandler(log *zap.Logger) http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorLog:      zap.NewStdLog(log.Named("metrics")),
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// ProvideMetrics is the fx provider for the admin /metrics handler.
func ProvideMetrics(log *zap.Logger) http.Handler { return NewPromHttpHandler(log) }

var Module = fx.Options(
	fx.Provide(fx.Annotate(ProvideMetrics, fx.ResultTags(`name:"metrics"`))),
)
