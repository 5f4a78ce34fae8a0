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
	messagesSent      metric.Int64Counter
	sendFailures      metric.Int64Counter
	webhookEvents     metric.Int64Counter
	reconcileFailures metric.Int64Counter
	conversations     metric.Int64Counter
	ledgerEntries     metric.Int64Counter
	rateLimitDenied   metric.Int64Counter
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
		name = "blastwave"
	}
	meter := provider.Meter(name)

	messagesSent, err := meter.Int64Counter("blastwave_messages_sent_total")
	if err != nil {
		return nil, err
	}
	sendFailures, err := meter.Int64Counter("blastwave_send_failures_total")
	if err != nil {
		return nil, err
	}
	webhookEvents, err := meter.Int64Counter("blastwave_webhook_events_total")
	if err != nil {
		return nil, err
	}
	reconcileFailures, err := meter.Int64Counter("blastwave_reconcile_failures_total")
	if err != nil {
		return nil, err
	}
	conversations, err := meter.Int64Counter("blastwave_conversations_tracked_total")
	if err != nil {
		return nil, err
	}
	ledgerEntries, err := meter.Int64Counter("blastwave_ledger_entries_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("blastwave_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		messagesSent:      messagesSent,
		sendFailures:      sendFailures,
		webhookEvents:     webhookEvents,
		reconcileFailures: reconcileFailures,
		conversations:     conversations,
		ledgerEntries:     ledgerEntries,
		rateLimitDenied:   rateLimitDenied,
	}, nil
}

// RecordMessageSent increments outbound send counts.
func (m *Metrics) RecordMessageSent(ctx context.Context, tenantID string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("tenant_id", strings.TrimSpace(tenantID)))
	m.messagesSent.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSendFailure increments send failure counts.
func (m *Metrics) RecordSendFailure(ctx context.Context, tenantID string, throttled bool) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("tenant_id", strings.TrimSpace(tenantID)),
		attribute.Bool("throttled", throttled),
	)
	m.sendFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordWebhookEvent increments processed webhook status counts.
func (m *Metrics) RecordWebhookEvent(ctx context.Context, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("status", strings.TrimSpace(status)))
	m.webhookEvents.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordReconcileFailure increments swallowed reconcile error counts.
// Repeated growth here is the alerting signal that events are being dropped.
func (m *Metrics) RecordReconcileFailure(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("stage", strings.TrimSpace(stage)))
	m.reconcileFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordConversation increments tracked conversation counts.
func (m *Metrics) RecordConversation(ctx context.Context, category string, billable bool) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("category", strings.TrimSpace(category)),
		attribute.Bool("billable", billable),
	)
	m.conversations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordLedgerEntry increments ledger entry counts.
func (m *Metrics) RecordLedgerEntry(ctx context.Context, referenceType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source_type", strings.TrimSpace(referenceType)))
	m.ledgerEntries.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, tenantID, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("tenant_id", strings.TrimSpace(tenantID)),
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
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
	"tenant_id":   {},
	"endpoint":    {},
	"status":      {},
	"status_code": {},
	"stage":       {},
	"category":    {},
	"billable":    {},
	"throttled":   {},
	"source_type": {},
	"reason":      {},
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
