// Package observability provides OpenTelemetry integration for distributed tracing.
//
// # Architecture Decision: Datadog Agent Mode
//
// Traces go to a local Datadog Agent over OTLP HTTP instead of the direct
// API endpoint:
//
//   - Agent buffers and retries locally, so a flaky uplink never blocks vesper
//   - localhost roundtrip instead of internet roundtrip
//   - Agent owns authentication - DD_API_KEY never has to reach the app
//   - One agent carries metrics, logs, and traces together
//
// # Enable the OTLP Receiver
//
// Add to the agent's datadog.yaml:
//
//	otlp_config:
//	  receiver:
//	    protocols:
//	      http:
//	        endpoint: "localhost:4318"
//	  traces:
//	    enabled: true
//	    span_name_as_resource_name: true
//
// then restart the agent and check `datadog-agent status` for an enabled OTLP
// section. Spans appear under APM → Traces for the configured service name,
// typically within a minute or two of the batch flush.
//
// # Configuration
//
// Config file (~/.vesper/config.yaml):
//
//	datadog:
//	  agent_host: "localhost:4318"
//	  environment: "dev"
//	  service_name: "vesper"
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config for Datadog OTEL setup.
type Config struct {
	// AgentHost is the Datadog Agent OTLP endpoint (default: localhost:4318)
	AgentHost string
	// Environment is the deployment environment (dev, staging, prod)
	Environment string
	// ServiceName is the service name shown in Datadog APM
	ServiceName string
}

// DefaultAgentHost is the default Datadog Agent OTLP HTTP endpoint.
const DefaultAgentHost = "localhost:4318"

// SetupDatadog registers a Datadog Agent exporter with Genkit's TracerProvider,
// so engine spans (indexing, embedding, search) ship via OTLP HTTP.
//
// An unreachable or misconfigured agent disables tracing with a warning rather
// than failing startup. Returns a shutdown function that flushes pending spans.
func SetupDatadog(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	agentHost := cfg.AgentHost
	if agentHost == "" {
		agentHost = DefaultAgentHost
	}

	// Genkit builds its TracerProvider resource from the OTEL_* environment,
	// so the service identity has to be in place before spans are created.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(agentHost),
		otlptracehttp.WithInsecure(), // agent speaks plaintext on localhost
	)
	if err != nil {
		slog.Warn("failed to create datadog exporter, tracing disabled", "error", err)
		return func(context.Context) error { return nil }, nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	slog.Debug("datadog tracing enabled",
		"agent", agentHost,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	// One throwaway span proves the export pipeline end to end.
	tracer := tracing.TracerProvider().Tracer("vesper-init")
	_, span := tracer.Start(ctx, "vesper.init")
	span.End()
	slog.Debug("test span created for datadog verification")

	return tracing.TracerProvider().Shutdown, nil
}
