package outbox

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type relayMetrics struct {
	published  metric.Int64Counter
	deadLetter metric.Int64Counter
	duration   metric.Float64Histogram
}

func newRelayMetrics(meter metric.Meter) (*relayMetrics, error) {
	published, err := meter.Int64Counter("outbox.events.published",
		metric.WithDescription("Outbox publish attempts by result"))
	if err != nil {
		return nil, fmt.Errorf("create published counter: %w", err)
	}
	deadLetter, err := meter.Int64Counter("outbox.events.dead_letter",
		metric.WithDescription("Outbox events quarantined after exhausting retries"))
	if err != nil {
		return nil, fmt.Errorf("create dead letter counter: %w", err)
	}
	duration, err := meter.Float64Histogram("outbox.processing.duration",
		metric.WithDescription("Outbox relay cycle duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}
	return &relayMetrics{
		published:  published,
		deadLetter: deadLetter,
		duration:   duration,
	}, nil
}

func (m *relayMetrics) publishResult(ctx context.Context, status string) {
	m.published.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func (m *relayMetrics) observeCycle(ctx context.Context, elapsed time.Duration) {
	m.duration.Record(ctx, float64(elapsed.Microseconds())/1000) //nolint:mnd
}
