package services

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gridpulse/internal/chart"
	"gridpulse/internal/config"
	"gridpulse/internal/dataprocessing"
	"gridpulse/internal/decoding"
	"gridpulse/internal/timerange"
	"gridpulse/internal/validation"
	"gridpulse/pkg/contracts/domain"
)

// IngestResult is a parsed dataset together with its advisory reports
type IngestResult struct {
	Dataset  *domain.Dataset   `json:"-"`
	Report   validation.Report `json:"validation"`
	Forecast validation.Report `json:"forecast_validation"`
}

// ViewRequest selects a window, metrics and presentation
type ViewRequest struct {
	Window  domain.TimeWindow
	Metrics []string
	Theme   domain.Theme
}

// View is a filtered dataset and the chart built from it
type View struct {
	Window  domain.TimeWindow `json:"window"`
	Records int               `json:"records"`
	Chart   domain.ChartModel `json:"chart"`
	Dataset *domain.Dataset   `json:"-"`
}

// Pipeline runs Encoding Resolver -> Record Parser -> Validator on ingest and
// Time-Range Filter -> Series Builder on view, one span per stage.
type Pipeline struct {
	resolver  *decoding.Resolver
	parser    *dataprocessing.Parser
	validator *validation.DatasetValidator
	builder   *chart.Builder
	tracer    trace.Tracer
	metrics   *PipelineMetrics
	logger    *slog.Logger
}

// NewPipeline wires the stages from the pipeline configuration
func NewPipeline(cfg config.PipelineConfig, tracer trace.Tracer, metrics *PipelineMetrics, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = otel.Tracer("gridpulse")
	}

	resolver, err := decoding.NewResolverFromNames(cfg.EncodingCandidates, logger)
	if err != nil {
		return nil, err
	}

	pcfg := dataprocessing.DefaultParserConfig()
	if len(cfg.ForecastColumns) > 0 {
		pcfg.ForecastColumns = cfg.ForecastColumns
	}
	if cfg.MaxSkipLogs > 0 {
		pcfg.MaxSkipLogs = cfg.MaxSkipLogs
	}

	return &Pipeline{
		resolver:  resolver,
		parser:    dataprocessing.NewParser(pcfg, resolver, logger),
		validator: validation.NewDatasetValidator(cfg.MaxAnomalies, logger),
		builder:   chart.NewBuilder(logger),
		tracer:    tracer,
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "pipeline")),
	}, nil
}

// Ingest turns raw file bytes into a validated dataset. Fatal errors come
// from decoding or parsing; validation findings are advisory.
func (p *Pipeline) Ingest(ctx context.Context, raw []byte) (*IngestResult, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.ingest", trace.WithAttributes(attribute.Int("bytes", len(raw))))
	defer span.End()

	started := time.Now()
	ds, err := p.decodeAndParse(ctx, raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.metrics.recordOutcome(ctx, "failed")
		return nil, err
	}
	elapsed := time.Since(started)

	_, vspan := p.tracer.Start(ctx, "pipeline.validate")
	report := p.validator.Validate(ds)
	forecast := p.validator.ValidateForecast(ds)
	vspan.SetAttributes(
		attribute.Int("anomalies", report.Total),
		attribute.Int("forecast_anomalies", forecast.Total))
	vspan.End()

	p.metrics.recordIngest(ctx, ds.Meta, report.Total+forecast.Total, elapsed.Seconds())
	p.metrics.recordOutcome(ctx, "loaded")

	p.logger.InfoContext(ctx, "dataset ingested",
		slog.String("encoding", ds.Meta.Encoding),
		slog.Int("valid_rows", ds.Meta.ValidRows),
		slog.Int("skipped_rows", ds.Meta.SkippedRows),
		slog.Bool("has_forecast", ds.Meta.HasForecast),
		slog.Int("anomalies", report.Total),
		slog.Duration("parse_duration", elapsed))

	return &IngestResult{Dataset: ds, Report: report, Forecast: forecast}, nil
}

func (p *Pipeline) decodeAndParse(ctx context.Context, raw []byte) (*domain.Dataset, error) {
	if dataprocessing.IsWorkbook(raw) {
		_, span := p.tracer.Start(ctx, "pipeline.parse", trace.WithAttributes(attribute.String("source", "workbook")))
		defer span.End()
		ds, err := p.parser.ParseWorkbook(raw)
		annotateParse(span, ds, err)
		return ds, err
	}

	_, rspan := p.tracer.Start(ctx, "pipeline.resolve_encoding")
	res, err := p.resolver.ResolveDetailed(raw)
	if err != nil {
		rspan.RecordError(err)
		rspan.SetStatus(codes.Error, err.Error())
		rspan.End()
		return nil, err
	}
	rspan.SetAttributes(attribute.String("encoding", res.Encoding), attribute.Bool("bom", res.BOM))
	rspan.End()

	_, pspan := p.tracer.Start(ctx, "pipeline.parse", trace.WithAttributes(attribute.String("source", "text")))
	defer pspan.End()
	ds, err := p.parser.ParseText(res.Text)
	if err == nil {
		ds.Meta.Encoding = res.Encoding
	}
	annotateParse(pspan, ds, err)
	return ds, err
}

func annotateParse(span trace.Span, ds *domain.Dataset, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetAttributes(
		attribute.Int("total_rows", ds.Meta.TotalRows),
		attribute.Int("valid_rows", ds.Meta.ValidRows),
		attribute.Int("skipped_rows", ds.Meta.SkippedRows))
}

// View filters ds to the requested window and builds the chart. An empty
// window yields an empty chart, not an error.
func (p *Pipeline) View(ctx context.Context, ds *domain.Dataset, req ViewRequest) *View {
	ctx, span := p.tracer.Start(ctx, "pipeline.view",
		trace.WithAttributes(attribute.String("window", req.Window.String())))
	defer span.End()

	_, fspan := p.tracer.Start(ctx, "pipeline.filter")
	filtered := timerange.Filter(ds, req.Window)
	fspan.SetAttributes(attribute.Int("records", filtered.Len()))
	fspan.End()

	_, bspan := p.tracer.Start(ctx, "pipeline.build_series")
	model := p.builder.Build(filtered, req.Metrics, chart.Options{
		Granularity: req.Window.Granularity,
		Theme:       req.Theme,
	})
	bspan.SetAttributes(attribute.Int("points", model.Points()), attribute.Int("series", len(model.Series)))
	bspan.End()

	p.metrics.recordChart(ctx, model)

	return &View{Window: req.Window, Records: filtered.Len(), Chart: model, Dataset: filtered}
}

// Candidates reports the encoding candidate order in use
func (p *Pipeline) Candidates() []string {
	return p.resolver.Candidates()
}
