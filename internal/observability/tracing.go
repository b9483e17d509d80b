// Package observability provides OpenTelemetry integration for distributed
// tracing.
//
// Traces are exported over OTLP HTTP to a local collector agent. Setup is
// best-effort: a missing or unreachable agent disables tracing with a
// warning instead of failing startup, since tracing is never worth an
// outage.
//
// # Configuration
//
//	otlp_agent_host: "localhost:4318"
//	environment: "dev"
//	service_name: "magebot"
//	tracing_on: true
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/alebed/magebot/internal/log"
)

// Config for the OTLP trace exporter.
type Config struct {
	// AgentHost is the collector OTLP HTTP endpoint (default: localhost:4318)
	AgentHost string
	// Environment is the deployment environment (dev, staging, prod)
	Environment string
	// ServiceName is the service name attached to exported spans
	ServiceName string
}

// DefaultAgentHost is the default collector OTLP HTTP endpoint.
const DefaultAgentHost = "localhost:4318"

// Setup installs a tracer provider exporting to the configured agent and
// registers it globally, so otel.Tracer calls anywhere in the process pick
// it up.
//
// Returns a shutdown function that flushes pending spans. On exporter
// construction failure the returned shutdown is a no-op and err is nil.
func Setup(ctx context.Context, cfg Config, logger log.Logger) (shutdown func(context.Context) error, err error) {
	if logger == nil {
		logger = log.NewNop()
	}

	agentHost := cfg.AgentHost
	if agentHost == "" {
		agentHost = DefaultAgentHost
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(agentHost),
		otlptracehttp.WithInsecure(), // local agent, no TLS
	)
	if err != nil {
		logger.Warn("failed to create trace exporter, tracing disabled", "error", err)
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("building trace resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	logger.Debug("tracing enabled",
		"agent", agentHost,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	return provider.Shutdown, nil
}
