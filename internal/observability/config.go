package observability

import (
	"net/http"

	"cvforge/internal/config"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// GetObservabilityConfig creates observability config from provided config
func GetObservabilityConfig(cfg *config.Config, version string) ObservabilityConfig {
	if cfg == nil {
		// Fallback to defaults if config not available
		return ObservabilityConfig{
			ServiceName:     "cvforge",
			ServiceVersion:  version,
			ServiceInstance: "cvforge-1",
			Enabled:         true,
			ConsoleOutput:   true,
			PrettyPrint:     true,
			SampleRate:      1.0,
			AIMetrics:       true,
			BusinessMetrics: true,
			RateLimits:      true,
			Prometheus:      GetPrometheusConfig(cfg),
		}
	}

	obsConfig := cfg.Observability

	// Use app version if service version not specified
	serviceVersion := obsConfig.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}

	return ObservabilityConfig{
		ServiceName:        obsConfig.ServiceName,
		ServiceVersion:     serviceVersion,
		ServiceInstance:    obsConfig.ServiceInstance,
		Enabled:            obsConfig.Enabled,
		ConsoleOutput:      obsConfig.ConsoleOutput,
		PrettyPrint:        obsConfig.Console.PrettyPrint,
		SampleRate:         obsConfig.SampleRate,
		CollectionInterval: obsConfig.Metrics.CollectionInterval,
		AIMetrics:          obsConfig.CustomMetrics.AIOperations,
		BusinessMetrics:    obsConfig.CustomMetrics.BusinessMetrics,
		RateLimits:         obsConfig.CustomMetrics.RateLimits,
		Prometheus:         GetPrometheusConfig(cfg),
		OTLP: OTLPConfig{
			Enabled:  obsConfig.OTLP.Enabled,
			Endpoint: obsConfig.OTLP.Endpoint,
			Insecure: obsConfig.OTLP.Insecure,
			Headers:  obsConfig.OTLP.Headers,
		},
	}
}

// RequestIDHeader carries the id assigned to each API request.
const RequestIDHeader = "X-Request-ID"

// ObservabilityMiddleware tags the active request span with the route and
// request id. It expects to run inside HTTPMiddleware.
func ObservabilityMiddleware(om *ObservabilityManager) func(next http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if om != nil && om.config.Enabled {
				span := oteltrace.SpanFromContext(r.Context())
				span.SetAttributes(
					attribute.String("http.route", r.URL.Path),
					attribute.String("cvforge.request_id", r.Header.Get(RequestIDHeader)),
					attribute.String("http.user_agent", r.UserAgent()),
				)
			}
			next(w, r)
		}
	}
}
