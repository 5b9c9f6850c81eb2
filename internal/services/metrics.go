package services

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"gridpulse/pkg/contracts/domain"
)

// PipelineMetrics counts what flows through the ingest and view stages
type PipelineMetrics struct {
	RowsParsed     metric.Int64Counter
	RowsSkipped    metric.Int64Counter
	Anomalies      metric.Int64Counter
	DatasetsLoaded metric.Int64Counter
	ParseDuration  metric.Float64Histogram
	ChartPoints    metric.Int64Histogram
}

// NewPipelineMetrics registers the pipeline instruments. A nil meter yields no-op instruments.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("gridpulse")
	}

	rowsParsed, err := meter.Int64Counter(
		"gridpulse_rows_parsed_total",
		metric.WithDescription("Rows accepted by the record parser"),
	)
	if err != nil {
		return nil, err
	}

	rowsSkipped, err := meter.Int64Counter(
		"gridpulse_rows_skipped_total",
		metric.WithDescription("Rows dropped for missing or out-of-range time fields"),
	)
	if err != nil {
		return nil, err
	}

	anomalies, err := meter.Int64Counter(
		"gridpulse_anomalies_total",
		metric.WithDescription("Advisory anomalies reported by the validator"),
	)
	if err != nil {
		return nil, err
	}

	loaded, err := meter.Int64Counter(
		"gridpulse_datasets_loaded_total",
		metric.WithDescription("Dataset ingest attempts by outcome"),
	)
	if err != nil {
		return nil, err
	}

	parseDuration, err := meter.Float64Histogram(
		"gridpulse_parse_duration_seconds",
		metric.WithDescription("Time to decode and parse one source file"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	chartPoints, err := meter.Int64Histogram(
		"gridpulse_chart_points",
		metric.WithDescription("X positions per built chart"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		RowsParsed:     rowsParsed,
		RowsSkipped:    rowsSkipped,
		Anomalies:      anomalies,
		DatasetsLoaded: loaded,
		ParseDuration:  parseDuration,
		ChartPoints:    chartPoints,
	}, nil
}

func (m *PipelineMetrics) recordIngest(ctx context.Context, meta domain.ParseMeta, anomalies int, seconds float64) {
	if m == nil {
		return
	}
	enc := metric.WithAttributes(attribute.String("encoding", meta.Encoding))
	m.RowsParsed.Add(ctx, int64(meta.ValidRows), enc)
	m.RowsSkipped.Add(ctx, int64(meta.SkippedRows), enc)
	m.Anomalies.Add(ctx, int64(anomalies))
	m.ParseDuration.Record(ctx, seconds, enc)
}

func (m *PipelineMetrics) recordOutcome(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.DatasetsLoaded.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *PipelineMetrics) recordChart(ctx context.Context, model domain.ChartModel) {
	if m == nil {
		return
	}
	m.ChartPoints.Record(ctx, int64(model.Points()),
		metric.WithAttributes(attribute.String("granularity", string(model.Granularity))))
}
