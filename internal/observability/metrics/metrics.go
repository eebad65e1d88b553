package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes OTLP counters for sync outcomes.
type Metrics struct {
	domainSyncs   metric.Int64Counter
	priceSyncs    metric.Int64Counter
	rosterSyncs   metric.Int64Counter
	notifications metric.Int64Counter
	syncDenied    metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}
	return provider, nil
}

// New creates the sync instruments on the given provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "domainledger"
	}
	meter := provider.Meter(name)

	counters := map[string]*metric.Int64Counter{}
	m := &Metrics{}
	counters["domainledger_domain_syncs_total"] = &m.domainSyncs
	counters["domainledger_price_syncs_total"] = &m.priceSyncs
	counters["domainledger_roster_syncs_total"] = &m.rosterSyncs
	counters["domainledger_notifications_total"] = &m.notifications
	counters["domainledger_sync_denied_total"] = &m.syncDenied
	for instrument, dst := range counters {
		counter, err := meter.Int64Counter(instrument)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", instrument, err)
		}
		*dst = counter
	}
	return m, nil
}

// RecordDomainSync counts a finished domain sync by terminal status.
func (m *Metrics) RecordDomainSync(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.domainSyncs.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("outcome", strings.ToLower(strings.TrimSpace(status))),
	)...))
}

// RecordPriceSync counts a registrar price sync run.
func (m *Metrics) RecordPriceSync(ctx context.Context, registrar, outcome string) {
	if m == nil {
		return
	}
	m.priceSyncs.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("registrar", strings.TrimSpace(registrar)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)...))
}

// RecordRosterSync counts a registrar domain roster sync run.
func (m *Metrics) RecordRosterSync(ctx context.Context, registrar, outcome string) {
	if m == nil {
		return
	}
	m.rosterSyncs.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("registrar", strings.TrimSpace(registrar)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)...))
}

// RecordNotification counts emitted notifications by level.
func (m *Metrics) RecordNotification(ctx context.Context, level string) {
	if m == nil {
		return
	}
	m.notifications.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("level", strings.TrimSpace(level)),
	)...))
}

// RecordSyncDenied counts manual sync triggers rejected by the rate limiter.
func (m *Metrics) RecordSyncDenied(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	m.syncDenied.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
	)...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"registrar": {},
	"outcome":   {},
	"level":     {},
	"endpoint":  {},
	"stage":     {},
	"tier":      {},
	"kind":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
