package telemetry

import (
	"fmt"

	"github.com/erp/bomengine/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingOption configures RegisterDBTracing
type DBTracingOption func(*[]otelgorm.Option)

// WithDBTracerProvider overrides the global tracer provider, mainly for tests
func WithDBTracerProvider(tp trace.TracerProvider) DBTracingOption {
	return func(opts *[]otelgorm.Option) {
		*opts = append(*opts, otelgorm.WithTracerProvider(tp))
	}
}

// RegisterDBTracing adds otelgorm spans to every query on db. Bound query
// variables stay out of spans unless DBLogFullSQL is set.
func RegisterDBTracing(db *gorm.DB, cfg config.TelemetryConfig, logger *zap.Logger, extra ...DBTracingOption) error {
	if !cfg.DBTraceEnabled {
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(db.Dialector.Name())}
	if !cfg.DBLogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	for _, o := range extra {
		o(&opts)
	}

	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return fmt.Errorf("register otelgorm: %w", err)
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.DBLogFullSQL),
		zap.String("dialect", db.Dialector.Name()),
	)
	return nil
}
