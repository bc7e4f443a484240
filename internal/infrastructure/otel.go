package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/config"
)

const (
	ServiceName = "eselector"
	MeterName   = "github.com/NIKPRIN6598/Cleaner-Selector"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	SampleRatio    float64
	// Registry receives the Prometheus collector. Nil uses the default
	// registerer and gatherer.
	Registry *prometheus.Registry
}

// NewOTelConfig maps the telemetry section of the application config.
func NewOTelConfig(cfg config.TelemetryConfig) *OTelConfig {
	if !cfg.Enabled {
		return &OTelConfig{
			ServiceName:    ServiceName,
			ServiceVersion: config.AppVersion,
			Environment:    cfg.Environment,
			TraceExporter:  "none",
			MetricExporter: "none",
		}
	}
	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: config.AppVersion,
		Environment:    cfg.Environment,
		TraceExporter:  cfg.TraceExporter,
		MetricExporter: cfg.MetricExporter,
		SampleRatio:    cfg.SampleRatio,
	}
}

// OTelProviders holds the OpenTelemetry providers. Tracer and Meter are
// always usable; they fall back to no-op implementations when an exporter
// is disabled.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// InitializeOTel sets up tracing and metrics according to cfg.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	ctx := context.Background()

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{
		Tracer: otel.Tracer(MeterName),
		Meter:  noop.NewMeterProvider().Meter(MeterName),
		Logger: logger,
	}

	if err := initializeTracing(ctx, cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.String("metric_exporter", cfg.MetricExporter))

	return providers, nil
}

func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	switch cfg.TraceExporter {
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		exporter = exp
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)
	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)

	providers.Logger.DebugContext(ctx, "Tracing initialized", slog.Float64("sample_ratio", cfg.SampleRatio))
	return nil
}

func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	var opts []otelprom.Option
	providers.PrometheusHTTP = promhttp.Handler()
	if cfg.Registry != nil {
		opts = append(opts, otelprom.WithRegisterer(cfg.Registry))
		providers.PrometheusHTTP = promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})
	}

	exporter, err := otelprom.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	providers.MeterProvider = mp
	providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetMeterProvider(mp)

	providers.Logger.DebugContext(ctx, "Metrics initialized", slog.String("exporter", cfg.MetricExporter))
	return nil
}

// Shutdown flushes and stops the providers.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

// BusinessMetrics holds the application instruments.
type BusinessMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	FilterChanges    metric.Int64Counter
	FilterRejections metric.Int64Counter
	ViewRows         metric.Int64Histogram
	ExportsTotal     metric.Int64Counter
	ExportDuration   metric.Float64Histogram
	ActiveSessions   metric.Int64UpDownCounter
	WebSocketClients metric.Int64UpDownCounter
}

// CreateBusinessMetrics registers the application instruments on meter.
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	var (
		m   BusinessMetrics
		err error
	)
	counter := func(dst *metric.Int64Counter, name, desc string) {
		if err == nil {
			*dst, err = meter.Int64Counter(name, metric.WithDescription(desc))
		}
	}
	updown := func(dst *metric.Int64UpDownCounter, name, desc string) {
		if err == nil {
			*dst, err = meter.Int64UpDownCounter(name, metric.WithDescription(desc))
		}
	}
	seconds := func(dst *metric.Float64Histogram, name, desc string) {
		if err == nil {
			*dst, err = meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
		}
	}

	counter(&m.HTTPRequestsTotal, "http_requests_total", "Total number of HTTP requests")
	seconds(&m.HTTPRequestDuration, "http_request_duration_seconds", "HTTP request duration in seconds")
	updown(&m.HTTPActiveRequests, "http_active_requests", "Number of active HTTP requests")

	counter(&m.FilterChanges, "selector_filter_changes_total", "Filter updates that changed the selection")
	counter(&m.FilterRejections, "selector_filter_rejections_total", "Filter updates rejected as invalid")
	if err == nil {
		m.ViewRows, err = meter.Int64Histogram("selector_view_rows",
			metric.WithDescription("Rows in computed views"),
			metric.WithExplicitBucketBoundaries(0, 1, 5, 10, 25, 50, 100, 250, 500, 1000))
	}
	counter(&m.ExportsTotal, "selector_exports_total", "Export downloads by format and status")
	seconds(&m.ExportDuration, "selector_export_duration_seconds", "Export generation time")
	updown(&m.ActiveSessions, "selector_active_sessions", "Filter sessions held in memory")
	updown(&m.WebSocketClients, "selector_websocket_clients", "Connected websocket clients")

	if err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordFilterChange counts a selection change on field.
func (m *BusinessMetrics) RecordFilterChange(ctx context.Context, field string) {
	if m == nil {
		return
	}
	m.FilterChanges.Add(ctx, 1, metric.WithAttributes(attribute.String("field", field)))
}

// RecordFilterRejection counts an invalid filter update.
func (m *BusinessMetrics) RecordFilterRejection(ctx context.Context, field string) {
	if m == nil {
		return
	}
	m.FilterRejections.Add(ctx, 1, metric.WithAttributes(attribute.String("field", field)))
}

// RecordView records the size of a computed view.
func (m *BusinessMetrics) RecordView(ctx context.Context, rows int) {
	if m == nil {
		return
	}
	m.ViewRows.Record(ctx, int64(rows))
}

// RecordExport counts an export attempt and its duration.
func (m *BusinessMetrics) RecordExport(ctx context.Context, format string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	attrs := metric.WithAttributes(attribute.String("format", format), attribute.String("status", status))
	m.ExportsTotal.Add(ctx, 1, attrs)
	m.ExportDuration.Record(ctx, duration.Seconds(), attrs)
}

// AddSessions adjusts the active session gauge.
func (m *BusinessMetrics) AddSessions(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, delta)
}

// AddWebSocketClients adjusts the connected client gauge.
func (m *BusinessMetrics) AddWebSocketClients(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.WebSocketClients.Add(ctx, delta)
}

func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// AddSpanEvent adds an event with attributes to the span in ctx.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
