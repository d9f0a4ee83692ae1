package observability

import (
	"context"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/abhisek/atomastery/internal/logger"
)

type TracingConfig struct {
	ServiceName string
	Version     string
	// Writer receives spans as JSON. Nil disables tracing.
	Writer io.Writer
}

// InitTracing installs a global tracer provider exporting to cfg.Writer.
// The returned shutdown flushes pending spans; it is a no-op when tracing
// is disabled.
func InitTracing(log *logger.Logger, cfg TracingConfig) (func(context.Context) error, error) {
	if cfg.Writer == nil {
		return func(context.Context) error { return nil }, nil
	}
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "atomastery"
	}

	exp, err := stdouttrace.New(stdouttrace.WithWriter(cfg.Writer))
	if err != nil {
		return nil, err
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", name),
		attribute.String("service.version", strings.TrimSpace(cfg.Version)),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	if log != nil {
		log.Info("otel tracing initialized", "service", name, "exporter", "stdout")
	}
	return tp.Shutdown, nil
}
