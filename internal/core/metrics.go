package core

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/JonMunkholm/roster/internal/core"

// Metrics records import and export activity. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	imports      metric.Int64Counter
	rows         metric.Int64Counter
	batchFailure metric.Int64Counter
	duration     metric.Float64Histogram
	exports      metric.Int64Counter
}

// NewMetrics creates the instruments on the given provider, or on the global
// provider when mp is nil.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	var (
		m   Metrics
		err error
	)
	if m.imports, err = meter.Int64Counter("roster.imports.total",
		metric.WithDescription("Import runs by kind, mode and status"),
		metric.WithUnit("{run}"),
	); err != nil {
		return nil, fmt.Errorf("create imports counter: %w", err)
	}
	if m.rows, err = meter.Int64Counter("roster.import.rows",
		metric.WithDescription("Rows seen by imports, split into imported and skipped"),
		metric.WithUnit("{row}"),
	); err != nil {
		return nil, fmt.Errorf("create rows counter: %w", err)
	}
	if m.batchFailure, err = meter.Int64Counter("roster.import.batch_failures",
		metric.WithDescription("Store calls that failed during commit"),
		metric.WithUnit("{batch}"),
	); err != nil {
		return nil, fmt.Errorf("create batch failure counter: %w", err)
	}
	if m.duration, err = meter.Float64Histogram("roster.import.duration",
		metric.WithDescription("Import run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300),
	); err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}
	if m.exports, err = meter.Int64Counter("roster.exports.total",
		metric.WithDescription("Export requests by target and format"),
		metric.WithUnit("{export}"),
	); err != nil {
		return nil, fmt.Errorf("create exports counter: %w", err)
	}
	return &m, nil
}

func (m *Metrics) recordImport(ctx context.Context, r ImportResult) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("kind", string(r.Kind)),
		attribute.String("mode", string(r.Mode)),
		attribute.String("status", string(r.Status)),
	)
	m.imports.Add(ctx, 1, attrs)
	m.duration.Record(ctx, r.Duration.Seconds(), attrs)
	m.rows.Add(ctx, int64(r.ImportedRecords), metric.WithAttributes(
		attribute.String("kind", string(r.Kind)),
		attribute.String("outcome", "imported"),
	))
	m.rows.Add(ctx, int64(r.SkippedRecords), metric.WithAttributes(
		attribute.String("kind", string(r.Kind)),
		attribute.String("outcome", "skipped"),
	))
}

func (m *Metrics) recordBatchFailure(ctx context.Context, kind Kind) {
	if m == nil {
		return
	}
	m.batchFailure.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
}

func (m *Metrics) recordExport(ctx context.Context, target, format string) {
	if m == nil {
		return
	}
	m.exports.Add(ctx, 1, metric.WithAttributes(
		attribute.String("target", target),
		attribute.String("format", format),
	))
}
