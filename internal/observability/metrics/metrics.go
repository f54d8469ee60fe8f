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

// Metrics exposes application-level instruments.
type Metrics struct {
	statementsComputed metric.Int64Counter
	sessionsIngested   metric.Int64Counter
	creditsGranted     metric.Int64Counter
	subscriptionEvents metric.Int64Counter
	reconcileDuration  metric.Float64Histogram
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

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "creditledger"
	}
	meter := provider.Meter(name)

	statementsComputed, err := meter.Int64Counter("creditledger_statements_computed_total")
	if err != nil {
		return nil, err
	}
	sessionsIngested, err := meter.Int64Counter("creditledger_sessions_ingested_total")
	if err != nil {
		return nil, err
	}
	creditsGranted, err := meter.Int64Counter("creditledger_credits_granted_total")
	if err != nil {
		return nil, err
	}
	subscriptionEvents, err := meter.Int64Counter("creditledger_subscription_events_total")
	if err != nil {
		return nil, err
	}
	reconcileDuration, err := meter.Float64Histogram("creditledger_reconcile_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		statementsComputed: statementsComputed,
		sessionsIngested:   sessionsIngested,
		creditsGranted:     creditsGranted,
		subscriptionEvents: subscriptionEvents,
		reconcileDuration:  reconcileDuration,
	}, nil
}

// RecordStatementComputed increments statement computation counts.
func (m *Metrics) RecordStatementComputed(ctx context.Context, trigger string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("trigger", strings.TrimSpace(trigger)))
	m.statementsComputed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSessionIngested increments workspace session ingest counts.
func (m *Metrics) RecordSessionIngested(ctx context.Context, workspaceType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("workspace_type", strings.TrimSpace(workspaceType)))
	m.sessionsIngested.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCreditGranted increments extra-credit grant counts.
func (m *Metrics) RecordCreditGranted(ctx context.Context) {
	if m == nil {
		return
	}
	m.creditsGranted.Add(ctx, 1)
}

// RecordSubscriptionEvent increments subscription lifecycle counts.
func (m *Metrics) RecordSubscriptionEvent(ctx context.Context, eventType, planID string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("event_type", strings.TrimSpace(eventType)),
		attribute.String("plan_id", strings.TrimSpace(planID)),
	)
	m.subscriptionEvents.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordReconcileDuration records how long one statement reconciliation took.
func (m *Metrics) RecordReconcileDuration(ctx context.Context, trigger string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("trigger", strings.TrimSpace(trigger)))
	m.reconcileDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
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
	"trigger":        {},
	"workspace_type": {},
	"plan_id":        {},
	"event_type":     {},
	"endpoint":       {},
	"status_code":    {},
	"reason":         {},
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
