package observability

import (
	"context"
	"log/slog"

	"github.com/nikhere-creator/brainrocket-data-pipeline/internal/infrastructure/observability"
)

// Setup initialises logging, metrics and tracing in one call and returns
// the logger plus a tracer shutdown func for deferred cleanup.
func Setup(serviceName, metricsAddr string) (*slog.Logger, func(context.Context) error) {
	logger := observability.InitLogger()
	observability.InitMetrics(metricsAddr)
	tracerShutdown := observability.InitTracing(serviceName)
	return logger, tracerShutdown
}
