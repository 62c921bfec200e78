package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the pipeline instruments. A nil *Metrics records nothing.
type Metrics struct {
	meter              metric.Meter
	readingsIngested   metric.Int64Counter
	dispatchOutcomes   metric.Int64Counter
	offlineTransitions metric.Int64Counter
}

// NewMetrics creates the instruments on provider's meter.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(instrumentationName)
	readings, err := meter.Int64Counter("queyk.readings.ingested",
		metric.WithDescription("Sensor readings persisted."),
		metric.WithUnit("{reading}"))
	if err != nil {
		return nil, err
	}
	outcomes, err := meter.Int64Counter("queyk.dispatch.outcomes",
		metric.WithDescription("Per-channel notification outcomes."),
		metric.WithUnit("{outcome}"))
	if err != nil {
		return nil, err
	}
	offline, err := meter.Int64Counter("queyk.device.offline_transitions",
		metric.WithDescription("Online to offline transitions of the seismic device."),
		metric.WithUnit("{transition}"))
	if err != nil {
		return nil, err
	}
	return &Metrics{
		meter:              meter,
		readingsIngested:   readings,
		dispatchOutcomes:   outcomes,
		offlineTransitions: offline,
	}, nil
}

// ReadingIngested counts one stored reading, labelled with its risk level.
func (m *Metrics) ReadingIngested(ctx context.Context, riskLevel string) {
	if m == nil {
		return
	}
	m.readingsIngested.Add(ctx, 1, metric.WithAttributes(attribute.String("risk_level", riskLevel)))
}

// DispatchOutcome counts one channel outcome.
func (m *Metrics) DispatchOutcome(ctx context.Context, channel string, success bool) {
	if m == nil {
		return
	}
	m.dispatchOutcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.Bool("success", success),
	))
}

// OfflineTransition counts one online to offline edge.
func (m *Metrics) OfflineTransition(ctx context.Context) {
	if m == nil {
		return
	}
	m.offlineTransitions.Add(ctx, 1)
}

// ObserveDeviceOnline registers queyk.device.online, reporting 1 while online() is true and 0 otherwise.
func (m *Metrics) ObserveDeviceOnline(online func() bool) error {
	if m == nil || online == nil {
		return nil
	}
	_, err := m.meter.Int64ObservableGauge("queyk.device.online",
		metric.WithDescription("1 when the seismic device is reporting, 0 when offline."),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			var v int64
			if online() {
				v = 1
			}
			o.Observe(v)
			return nil
		}))
	return err
}
