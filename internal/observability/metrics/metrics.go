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

// Views name the read paths that project schedules.
const (
	ViewDashboard  = "dashboard"
	ViewProduction = "production"
	ViewUpcoming   = "upcoming"
)

// Metrics exposes engine-level instruments.
type Metrics struct {
	occurrences      metric.Int64Counter
	skippedItems     metric.Int64Counter
	placeholders     metric.Int64Counter
	recalculations   metric.Int64Counter
	priceUpdates     metric.Int64Counter
	notifications    metric.Int64Counter
	rateLimited      metric.Int64Counter
	projectionLength metric.Float64Histogram
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

// New configures the engine instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "recurra"
	}
	meter := provider.Meter(name)

	occurrences, err := meter.Int64Counter("recurra_occurrences_projected_total")
	if err != nil {
		return nil, err
	}
	skippedItems, err := meter.Int64Counter("recurra_items_skipped_total")
	if err != nil {
		return nil, err
	}
	placeholders, err := meter.Int64Counter("recurra_placeholders_total")
	if err != nil {
		return nil, err
	}
	recalculations, err := meter.Int64Counter("recurra_price_recalculations_total")
	if err != nil {
		return nil, err
	}
	priceUpdates, err := meter.Int64Counter("recurra_price_updates_applied_total")
	if err != nil {
		return nil, err
	}
	notifications, err := meter.Int64Counter("recurra_notifications_queued_total")
	if err != nil {
		return nil, err
	}
	rateLimited, err := meter.Int64Counter("recurra_rate_limited_total")
	if err != nil {
		return nil, err
	}
	projectionLength, err := meter.Float64Histogram("recurra_projection_days",
		metric.WithDescription("Length in days of projected date ranges."),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		occurrences:      occurrences,
		skippedItems:     skippedItems,
		placeholders:     placeholders,
		recalculations:   recalculations,
		priceUpdates:     priceUpdates,
		notifications:    notifications,
		rateLimited:      rateLimited,
		projectionLength: projectionLength,
	}, nil
}

// RecordProjection records one projection pass for a read path.
func (m *Metrics) RecordProjection(ctx context.Context, view string, days, occurrences, placeholders int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(attribute.String("view", strings.TrimSpace(view)))...)
	m.occurrences.Add(ctx, int64(occurrences), attrs)
	m.projectionLength.Record(ctx, float64(days), attrs)
	if placeholders > 0 {
		m.placeholders.Add(ctx, int64(placeholders), attrs)
	}
}

// RecordSkippedItem counts an item left out because its data is malformed.
func (m *Metrics) RecordSkippedItem(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.skippedItems.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRecalculation counts a monthly price recalculation by outcome (changed, unchanged).
func (m *Metrics) RecordRecalculation(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.recalculations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPriceUpdateApplied counts price-update records the sweep applied.
func (m *Metrics) RecordPriceUpdateApplied(ctx context.Context) {
	if m == nil {
		return
	}
	m.priceUpdates.Add(ctx, 1)
}

// RecordNotification counts notifications written to the outbox.
func (m *Metrics) RecordNotification(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("kind", strings.TrimSpace(kind)))
	m.notifications.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
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
	"view":        {},
	"reason":      {},
	"outcome":     {},
	"kind":        {},
	"endpoint":    {},
	"status_code": {},
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

// RecordRateLimitDenied counts requests rejected by a per-team limiter.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("endpoint", strings.TrimSpace(endpoint)))
	m.rateLimited.Add(ctx, 1, metric.WithAttributes(attrs...))
}
