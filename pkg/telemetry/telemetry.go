// Package telemetry wires OpenTelemetry tracing and Prometheus metrics.
// Traces go to an OTLP collector; metrics are exposed in the Prometheus
// text format, either on the main router or on a dedicated port.
package telemetry

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/verustcode/glance/consts"
	"github.com/verustcode/glance/pkg/logger"
)

const (
	exporterDialTimeout = 10 * time.Second
	metricsIOTimeout    = 10 * time.Second
)

// Config holds the telemetry configuration
type Config struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	// OTLP trace export
	OTLP OTLPConfig `yaml:"otlp"`
	// Prometheus metrics export
	Prometheus PrometheusConfig `yaml:"prometheus"`
}

// OTLPConfig configures the OTLP gRPC trace exporter
type OTLPConfig struct {
	Enabled bool `yaml:"enabled"`
	// Endpoint is host:port of the collector, e.g. "localhost:4317"
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// PrometheusConfig configures metrics export
type PrometheusConfig struct {
	Enabled bool `yaml:"enabled"`
	// Port of a dedicated metrics listener. With 0 the metrics are served
	// by the main router under /metrics.
	Port int `yaml:"port"`
}

// exportsTraces reports whether spans leave the process
func (c OTLPConfig) exportsTraces() bool {
	return c.Enabled && c.Endpoint != ""
}

// Telemetry owns the OpenTelemetry providers and the metrics registry
type Telemetry struct {
	config        Config
	registry      *prometheus.Registry
	shutdowns     []func(context.Context) error
	metricsServer *http.Server
}

// New sets up the global tracer and meter providers from cfg. With
// telemetry disabled it returns an inert instance whose registry still
// accepts collectors.
func New(cfg Config) (*Telemetry, error) {
	t := &Telemetry{config: cfg, registry: prometheus.NewRegistry()}
	if !cfg.Enabled {
		logger.Info("Telemetry is disabled")
		return t, nil
	}
	if t.config.ServiceName == "" {
		t.config.ServiceName = consts.ServiceName
	}

	// resource.New avoids schema URL conflicts between semconv versions
	res, err := resource.New(context.Background(),
		resource.WithAttributes(semconv.ServiceName(t.config.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp, err := newTracerProvider(res, t.config.OTLP)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)
	t.shutdowns = append(t.shutdowns, tp.Shutdown)

	mp, err := newMeterProvider(res, t.registry, t.config.Prometheus.Enabled)
	if err != nil {
		return nil, multierr.Append(err, tp.Shutdown(context.Background()))
	}
	otel.SetMeterProvider(mp)
	t.shutdowns = append(t.shutdowns, mp.Shutdown)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	if t.config.Prometheus.Enabled && t.config.Prometheus.Port > 0 {
		t.serveMetrics(t.config.Prometheus.Port)
	}

	logger.Info("Telemetry initialized",
		zap.String("service_name", t.config.ServiceName),
		zap.Bool("otlp", t.config.OTLP.exportsTraces()),
		zap.Bool("prometheus", t.config.Prometheus.Enabled),
	)
	return t, nil
}

func newTracerProvider(res *resource.Resource, cfg OTLPConfig) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.exportsTraces() {
		ctx, cancel := context.WithTimeout(context.Background(), exporterDialTimeout)
		defer cancel()

		clientOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
		logger.Info("Exporting traces", zap.String("endpoint", cfg.Endpoint))
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

func newMeterProvider(res *resource.Resource, reg prometheus.Registerer, export bool) (*sdkmetric.MeterProvider, error) {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if export {
		reader, err := otelprom.New(otelprom.WithRegisterer(reg))
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(reader))
	}
	return sdkmetric.NewMeterProvider(opts...), nil
}

// serveMetrics starts the dedicated metrics listener
func (t *Telemetry) serveMetrics(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", t.Handler())
	t.metricsServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  metricsIOTimeout,
		WriteTimeout: metricsIOTimeout,
	}
	t.shutdowns = append(t.shutdowns, t.metricsServer.Shutdown)

	go func() {
		logger.Info("Serving metrics", zap.Int("port", port))
		if err := t.metricsServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server stopped", zap.Error(err))
		}
	}()
}

// Register adds collectors, such as the report status collector, to the
// registry served by Handler
func (t *Telemetry) Register(cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := t.registry.Register(c); err != nil {
			return fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return nil
}

// Handler serves the registry in the Prometheus text format
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{Registry: t.registry})
}

// ServesOnRouter reports whether /metrics belongs on the main router
func (t *Telemetry) ServesOnRouter() bool {
	return t.config.Enabled && t.config.Prometheus.Enabled && t.config.Prometheus.Port == 0
}

// IsEnabled reports whether telemetry is enabled
func (t *Telemetry) IsEnabled() bool {
	return t.config.Enabled
}

// Shutdown flushes pending spans and stops the providers and the metrics
// listener. Every step runs; their errors are combined.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if len(t.shutdowns) == 0 {
		return nil
	}
	logger.Info("Shutting down telemetry")

	var errs error
	for i := len(t.shutdowns) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, t.shutdowns[i](ctx))
	}
	t.shutdowns = nil
	return errs
}
