package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Business metric types accepted by RecordBusinessMetric.
const (
	MetricCVAnalyzed        = "cv_analyzed"
	MetricDocumentExtracted = "document_extracted"
	MetricDocumentExported  = "document_exported"
	MetricTextSanitized     = "text_sanitized"
	MetricRateLimitHit      = "rate_limit_hit"
)

// ObservabilityConfig holds configuration for observability
type ObservabilityConfig struct {
	ServiceName        string
	ServiceVersion     string
	ServiceInstance    string
	Enabled            bool
	ConsoleOutput      bool
	PrettyPrint        bool
	SampleRate         float64
	CollectionInterval time.Duration

	AIMetrics       bool
	BusinessMetrics bool
	RateLimits      bool

	Prometheus PrometheusConfig
	OTLP       OTLPConfig
}

// OTLPConfig holds the OTLP/HTTP exporter settings shared by traces and metrics.
type OTLPConfig struct {
	Enabled  bool
	Endpoint string
	Insecure bool
	Headers  map[string]string
}

// Metrics holds all custom metrics for cvforge
type Metrics struct {
	// AI operation metrics
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AIFallbackCount  metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	// Business metrics
	CVsAnalyzed        metric.Int64Counter
	DocumentsExtracted metric.Int64Counter
	DocumentsExported  metric.Int64Counter
	TextsSanitized     metric.Int64Counter

	// Rate limiting metrics
	RateLimitHits metric.Int64Counter
}

// ObservabilityManager manages OpenTelemetry setup
type ObservabilityManager struct {
	config           ObservabilityConfig
	resource         *resource.Resource
	tracerProvider   *trace.TracerProvider
	meterProvider    *sdkmetric.MeterProvider
	metrics          *Metrics
	extraReaders     []sdkmetric.Reader
	shutdownFuncs    []func(context.Context) error
	prometheusServer *http.Server
}

// Option customizes an ObservabilityManager.
type Option func(*ObservabilityManager)

// WithMetricReader registers an additional metric reader.
func WithMetricReader(reader sdkmetric.Reader) Option {
	return func(om *ObservabilityManager) {
		om.extraReaders = append(om.extraReaders, reader)
	}
}

// NewObservabilityManager installs the tracer and meter providers described
// by obsConfig. A disabled config yields a manager whose tracer and metrics
// are no-ops.
func NewObservabilityManager(obsConfig ObservabilityConfig, opts ...Option) (*ObservabilityManager, error) {
	om := &ObservabilityManager{config: obsConfig}
	if !obsConfig.Enabled {
		return om, nil
	}
	for _, opt := range opts {
		opt(om)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(obsConfig.ServiceName),
		semconv.ServiceVersion(obsConfig.ServiceVersion),
		attribute.String("service.instance.id", om.instanceID()),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	om.resource = res

	if err := om.initTracing(); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := om.initMetrics(); err != nil {
		_ = om.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	return om, nil
}

func (om *ObservabilityManager) initTracing() error {
	exporter, err := om.spanExporter()
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(om.resource),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(om.config.SampleRate))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	om.tracerProvider = tp
	om.shutdownFuncs = append(om.shutdownFuncs, tp.Shutdown)
	return nil
}

// spanExporter prefers the console over OTLP. Spans are dropped when neither
// is configured.
func (om *ObservabilityManager) spanExporter() (trace.SpanExporter, error) {
	switch {
	case om.config.ConsoleOutput:
		var opts []stdouttrace.Option
		if om.config.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		return stdouttrace.New(opts...)
	case om.config.OTLP.Enabled:
		return om.otlpSpanExporter()
	default:
		return discardSpans{}, nil
	}
}

func (om *ObservabilityManager) initMetrics() error {
	readers, err := om.metricReaders()
	if err != nil {
		return err
	}

	providerOpts := []sdkmetric.Option{sdkmetric.WithResource(om.resource)}
	for _, reader := range readers {
		providerOpts = append(providerOpts, sdkmetric.WithReader(reader))
	}
	mp := sdkmetric.NewMeterProvider(providerOpts...)
	otel.SetMeterProvider(mp)

	om.meterProvider = mp
	om.shutdownFuncs = append(om.shutdownFuncs, mp.Shutdown)

	metrics, err := newMetrics(mp.Meter(om.config.ServiceName))
	if err != nil {
		return err
	}
	om.metrics = metrics
	return nil
}

// metricReaders collects the readers registered with WithMetricReader and
// those enabled in the config. A manual reader stands in when there are none.
func (om *ObservabilityManager) metricReaders() ([]sdkmetric.Reader, error) {
	readers := append([]sdkmetric.Reader{}, om.extraReaders...)

	sources := []struct {
		name    string
		enabled bool
		build   func() (sdkmetric.Reader, error)
	}{
		{"console", om.config.ConsoleOutput, om.consoleMetricReader},
		{"OTLP", om.config.OTLP.Enabled, om.otlpMetricReader},
		{"Prometheus", om.config.Prometheus.Enabled, om.prometheusMetricReader},
	}
	for _, src := range sources {
		if !src.enabled {
			continue
		}
		reader, err := src.build()
		if err != nil {
			return nil, fmt.Errorf("failed to create %s metric reader: %w", src.name, err)
		}
		readers = append(readers, reader)
	}

	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewManualReader())
	}
	return readers, nil
}

func (om *ObservabilityManager) consoleMetricReader() (sdkmetric.Reader, error) {
	exporter, err := stdoutmetric.New()
	if err != nil {
		return nil, err
	}
	return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(om.collectionInterval())), nil
}

// prometheusMetricReader also starts the scrape server, which is stopped on
// Shutdown.
func (om *ObservabilityManager) prometheusMetricReader() (sdkmetric.Reader, error) {
	reader, mux, err := SetupPrometheusExporter(om.config.Prometheus)
	if err != nil {
		return nil, err
	}
	server, err := StartPrometheusServer(mux, om.config.Prometheus.Port)
	if err != nil {
		return nil, fmt.Errorf("failed to start Prometheus server: %w", err)
	}
	om.prometheusServer = server
	om.shutdownFuncs = append(om.shutdownFuncs, server.Shutdown)
	return reader, nil
}

// newMetrics creates the cvforge instruments on meter.
func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.AIProcessingTime, err = meter.Float64Histogram(
		"cvforge_ai_processing_duration_seconds",
		metric.WithDescription("Time spent processing AI requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI processing time metric: %w", err)
	}

	m.AITokenUsage, err = meter.Int64Histogram(
		"cvforge_ai_token_usage_total",
		metric.WithDescription("Token usage for AI requests (input, output, total)"),
		metric.WithUnit("tokens"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI token usage metric: %w", err)
	}

	counters := []struct {
		dst         *metric.Int64Counter
		name        string
		description string
	}{
		{&m.AIRequestCount, "cvforge_ai_requests_total", "Total number of AI requests"},
		{&m.AIErrorCount, "cvforge_ai_errors_total", "Total number of AI request errors"},
		{&m.AIFallbackCount, "cvforge_ai_fallbacks_total", "Analyses answered by the rule engine instead of the configured provider"},
		{&m.CVsAnalyzed, "cvforge_cvs_analyzed_total", "Total number of CV analyses"},
		{&m.DocumentsExtracted, "cvforge_documents_extracted_total", "Total number of uploaded documents extracted"},
		{&m.DocumentsExported, "cvforge_documents_exported_total", "Total number of PDF and DOCX exports"},
		{&m.TextsSanitized, "cvforge_texts_sanitized_total", "Total number of sanitize requests"},
		{&m.RateLimitHits, "cvforge_rate_limit_hits_total", "Total number of rate limit hits"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.description))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s metric: %w", c.name, err)
		}
	}

	return m, nil
}

// GetMetrics returns the metrics instance
func (om *ObservabilityManager) GetMetrics() *Metrics {
	if om == nil || om.metrics == nil {
		return &Metrics{} // Return empty metrics if not initialized
	}
	return om.metrics
}

// Enabled reports whether telemetry providers were installed.
func (om *ObservabilityManager) Enabled() bool {
	return om != nil && om.config.Enabled
}

// HTTPMiddleware returns HTTP middleware with OpenTelemetry instrumentation
func (om *ObservabilityManager) HTTPMiddleware() func(http.Handler) http.Handler {
	if !om.Enabled() {
		return func(h http.Handler) http.Handler { return h }
	}

	return otelhttp.NewMiddleware(
		om.config.ServiceName,
		otelhttp.WithTracerProvider(om.tracerProvider),
		otelhttp.WithMeterProvider(om.meterProvider),
	)
}

// Tracer returns a tracer for the service
func (om *ObservabilityManager) Tracer(name string) oteltrace.Tracer {
	if !om.Enabled() {
		return noop.NewTracerProvider().Tracer(name)
	}
	return om.tracerProvider.Tracer(name)
}

// Shutdown gracefully shuts down all observability components. Every
// component is shut down; the first error is returned.
func (om *ObservabilityManager) Shutdown(ctx context.Context) error {
	if om == nil {
		return nil
	}
	var first error
	for i := len(om.shutdownFuncs) - 1; i >= 0; i-- {
		if err := om.shutdownFuncs[i](ctx); err != nil && first == nil {
			first = err
		}
	}
	om.shutdownFuncs = nil
	return first
}

// AIOperationResult holds the result of an AI operation including token usage
type AIOperationResult struct {
	Error      error
	Provider   string
	Fallback   bool
	TokenUsage *TokenUsage
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// TrackAIOperationWithTokens instruments an AI operation with tracing, metrics, and token usage
func (m *Metrics) TrackAIOperationWithTokens(ctx context.Context, operation string, fn func(context.Context) *AIOperationResult, om *ObservabilityManager) error {
	if m.AIProcessingTime == nil {
		// Metrics not initialized, just run the function
		result := fn(ctx)
		if result != nil {
			return result.Error
		}
		return nil
	}

	ctx, span := om.Tracer("cvforge.ai").Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	var err error
	if result != nil {
		err = result.Error
	}

	if om.config.AIMetrics {
		m.recordAIMetrics(ctx, operation, err, duration, result, span)
	}

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}

	return err
}

// recordAIMetrics records all AI-related metrics
func (m *Metrics) recordAIMetrics(ctx context.Context, operation string, err error, duration float64, result *AIOperationResult, span oteltrace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	}
	if result != nil && result.Provider != "" {
		attrs = append(attrs, attribute.String("provider", result.Provider))
	}

	m.AIProcessingTime.Record(ctx, duration, metric.WithAttributes(attrs...))
	m.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	if err != nil {
		m.AIErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if result != nil && result.Fallback {
		m.AIFallbackCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	m.recordTokenUsage(ctx, result, attrs, span)

	span.SetAttributes(attrs...)
	if result != nil {
		span.SetAttributes(attribute.Bool("ai.fallback", result.Fallback))
	}
}

// recordTokenUsage records token usage metrics and span attributes
func (m *Metrics) recordTokenUsage(ctx context.Context, result *AIOperationResult, attrs []attribute.KeyValue, span oteltrace.Span) {
	if result == nil || result.TokenUsage == nil || m.AITokenUsage == nil {
		return
	}

	tokenTypes := []struct {
		tokenType string
		value     int64
	}{
		{"input", result.TokenUsage.InputTokens},
		{"output", result.TokenUsage.OutputTokens},
		{"total", result.TokenUsage.TotalTokens},
	}
	for _, tt := range tokenTypes {
		tokenAttrs := append(append([]attribute.KeyValue{}, attrs...), attribute.String("token_type", tt.tokenType))
		m.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(tokenAttrs...))
	}

	// Token counts always go on the span for debugging.
	span.SetAttributes(
		attribute.Int64("ai.tokens.input", result.TokenUsage.InputTokens),
		attribute.Int64("ai.tokens.output", result.TokenUsage.OutputTokens),
		attribute.Int64("ai.tokens.total", result.TokenUsage.TotalTokens),
	)
}

// RecordBusinessMetric records business-specific metrics
func (m *Metrics) RecordBusinessMetric(ctx context.Context, metricType string, success bool, om *ObservabilityManager, attributes ...attribute.KeyValue) {
	if !om.Enabled() {
		return
	}

	attrs := append([]attribute.KeyValue{
		attribute.Bool("success", success),
	}, attributes...)

	var counter metric.Int64Counter
	switch metricType {
	case MetricCVAnalyzed:
		counter = m.CVsAnalyzed
	case MetricDocumentExtracted:
		counter = m.DocumentsExtracted
	case MetricDocumentExported:
		counter = m.DocumentsExported
	case MetricTextSanitized:
		counter = m.TextsSanitized
	case MetricRateLimitHit:
		if !om.config.RateLimits {
			return
		}
		counter = m.RateLimitHits
	}

	if metricType != MetricRateLimitHit && !om.config.BusinessMetrics {
		return
	}
	if counter != nil {
		counter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// discardSpans drops every span.
type discardSpans struct{}

func (discardSpans) ExportSpans(context.Context, []trace.ReadOnlySpan) error { return nil }
func (discardSpans) Shutdown(context.Context) error { return nil }

func (om *ObservabilityManager) otlpSpanExporter() (trace.SpanExporter, error) {
	cfg := om.config.OTLP
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	return otlptracehttp.New(context.Background(), opts...)
}

func (om *ObservabilityManager) otlpMetricReader() (sdkmetric.Reader, error) {
	cfg := om.config.OTLP
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(cfg.Headers))
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, err
	}
	return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(om.collectionInterval())), nil
}

func (om *ObservabilityManager) instanceID() string {
	if om.config.ServiceInstance != "" {
		return om.config.ServiceInstance
	}
	return om.config.ServiceName + "-1"
}

func (om *ObservabilityManager) collectionInterval() time.Duration {
	if om.config.CollectionInterval > 0 {
		return om.config.CollectionInterval
	}
	return 15 * time.Second
}
