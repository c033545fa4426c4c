package config

// DatadogConfig holds Datadog APM tracing configuration.
//
// Traces flow through a local Datadog Agent speaking OTLP; see
// internal/observability for the exporter setup.
type DatadogConfig struct {
	// APIKey is the Datadog API key (optional; the local Agent usually
	// handles authentication itself).
	APIKey string `mapstructure:"api_key" json:"api_key"`
	// AgentHost is the Agent OTLP endpoint (default: localhost:4318).
	AgentHost string `mapstructure:"agent_host" json:"agent_host"`
	// Environment is the deployment environment tag (default: dev).
	Environment string `mapstructure:"environment" json:"environment"`
	// ServiceName is the service name in APM (default: vesper).
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}
