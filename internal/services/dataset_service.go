package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gridpulse/internal/dataprocessing"
	apperrors "gridpulse/internal/errors"
	"gridpulse/internal/exporter"
	"gridpulse/internal/timerange"
	"gridpulse/pkg/contracts/domain"
	"gridpulse/pkg/contracts/events"
)

// EventPublisher fans dataset events out to connected clients
type EventPublisher interface {
	Publish(eventType string, payload any)
}

// RangeInfo pairs the declared domain span with the span actually present
type RangeInfo struct {
	Domain  timerange.Range  `json:"domain"`
	Data    *timerange.Range `json:"data,omitempty"`
	Records int              `json:"records"`
}

// OptionsInfo lists the selectable calendar periods
type OptionsInfo struct {
	timerange.Options
	YearOptions []timerange.YearOption `json:"year_options"`
}

// ExportFormat selects the export encoding
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

// ParseExportFormat accepts "csv" or "xlsx", defaulting to csv
func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", ExportCSV:
		return ExportCSV, nil
	case ExportXLSX:
		return ExportXLSX, nil
	default:
		return "", apperrors.NewAppValidationError(fmt.Sprintf("unsupported export format %q", s))
	}
}

// DatasetService owns the in-memory datasets and runs the pipeline for callers
type DatasetService struct {
	store    *DatasetStore
	pipeline *Pipeline
	fetcher  *SourceFetcher
	events   EventPublisher
	logger   *slog.Logger

	defaultLocation string
}

// NewDatasetService creates a dataset service. publisher may be nil.
func NewDatasetService(store *DatasetStore, pipeline *Pipeline, fetcher *SourceFetcher, publisher EventPublisher, defaultLocation string, logger *slog.Logger) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetService{
		store:           store,
		pipeline:        pipeline,
		fetcher:         fetcher,
		events:          publisher,
		defaultLocation: defaultLocation,
		logger:          logger.With(slog.String("component", "dataset_service")),
	}
}

// Upload ingests raw bytes as a new dataset
func (s *DatasetService) Upload(ctx context.Context, name string, raw []byte) (*StoredDataset, error) {
	res, err := s.pipeline.Ingest(ctx, raw)
	if err != nil {
		s.publishFailure(ctx, name, "upload", err)
		return nil, err
	}
	entry := s.store.Add(name, "upload", res)
	s.publishLoaded(entry)
	return entry, nil
}

// LoadSource fetches location and stores it as the default dataset, replacing any previous one.
// A failed load keeps the previous default in place.
func (s *DatasetService) LoadSource(ctx context.Context, location string) (*StoredDataset, error) {
	raw, err := s.fetcher.Fetch(ctx, location)
	if err != nil {
		s.publishFailure(ctx, location, location, err)
		return nil, err
	}

	res, err := s.pipeline.Ingest(ctx, raw)
	if err != nil {
		s.publishFailure(ctx, location, location, err)
		return nil, err
	}

	entry := s.store.Put(DefaultDatasetID, sourceName(location), location, res)
	s.publishLoaded(entry)
	return entry, nil
}

// LoadDefault loads the configured default source
func (s *DatasetService) LoadDefault(ctx context.Context) (*StoredDataset, error) {
	if s.defaultLocation == "" {
		return nil, apperrors.NewConfigError("no default source configured", nil)
	}
	return s.LoadSource(ctx, s.defaultLocation)
}

// DefaultLocation returns the configured default source
func (s *DatasetService) DefaultLocation() string {
	return s.defaultLocation
}

// StatDefault reports on the default source without reading it
func (s *DatasetService) StatDefault(ctx context.Context) (SourceInfo, error) {
	if s.defaultLocation == "" {
		return SourceInfo{}, apperrors.NewConfigError("no default source configured", nil)
	}
	return s.fetcher.Stat(ctx, s.defaultLocation)
}

// Get returns a stored dataset
func (s *DatasetService) Get(id string) (*StoredDataset, error) {
	return s.store.Get(id)
}

// List returns stored dataset summaries
func (s *DatasetService) List() []DatasetSummary {
	return s.store.List()
}

// Delete drops a stored dataset
func (s *DatasetService) Delete(id string) error {
	return s.store.Delete(id)
}

// Count returns how many datasets are held
func (s *DatasetService) Count() int {
	return s.store.Len()
}

// Range reports the declared span and the span present in the dataset
func (s *DatasetService) Range(id string) (*RangeInfo, error) {
	entry, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	info := &RangeInfo{Domain: timerange.ComputeRange(entry.Dataset), Records: entry.Dataset.Len()}
	if bounds, ok := timerange.DataBounds(entry.Dataset); ok {
		info.Data = &bounds
	}
	return info, nil
}

// Options lists selectable years, months and quarters for the dataset
func (s *DatasetService) Options(id string) (*OptionsInfo, error) {
	entry, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return &OptionsInfo{
		Options:     timerange.AvailableOptions(entry.Dataset),
		YearOptions: timerange.YearOptions(entry.Dataset),
	}, nil
}

// View filters a stored dataset and builds its chart
func (s *DatasetService) View(ctx context.Context, id string, req ViewRequest) (*View, error) {
	entry, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return s.pipeline.View(ctx, entry.Dataset, req), nil
}

// Stats computes per-metric statistics, optionally over a window
func (s *DatasetService) Stats(id string, window *domain.TimeWindow) (*dataprocessing.DatasetStats, error) {
	ds, err := s.subset(id, window)
	if err != nil {
		return nil, err
	}
	stats := dataprocessing.CalculateStats(ds)
	return &stats, nil
}

// Export writes a stored dataset, optionally windowed, to out
func (s *DatasetService) Export(id string, window *domain.TimeWindow, format ExportFormat, out io.Writer) error {
	ds, err := s.subset(id, window)
	if err != nil {
		return err
	}
	switch format {
	case ExportXLSX:
		return exporter.WriteDatasetWorkbook(out, ds)
	default:
		return exporter.WriteDatasetCSV(out, ds)
	}
}

func (s *DatasetService) subset(id string, window *domain.TimeWindow) (*domain.Dataset, error) {
	entry, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if window == nil {
		return entry.Dataset, nil
	}
	return timerange.Filter(entry.Dataset, *window), nil
}

func (s *DatasetService) publishLoaded(entry *StoredDataset) {
	s.logger.Info("dataset stored",
		slog.String("dataset_id", entry.ID),
		slog.String("name", entry.Name),
		slog.Int("valid_rows", entry.Meta.ValidRows),
		slog.Int("anomalies", entry.Report.Total))

	if s.events == nil {
		return
	}
	s.events.Publish(events.TypeDatasetLoaded, events.DatasetEvent{
		ID:        entry.ID,
		Name:      entry.Name,
		Source:    entry.Source,
		ValidRows: entry.Meta.ValidRows,
		Encoding:  entry.Meta.Encoding,
		Anomalies: entry.Report.Total,
	})
}

func (s *DatasetService) publishFailure(ctx context.Context, name, source string, err error) {
	s.logger.WarnContext(ctx, "dataset load failed",
		slog.String("name", name),
		slog.String("source", source),
		slog.String("error_type", string(apperrors.TypeOf(err))),
		slog.String("error", err.Error()))

	if s.events == nil {
		return
	}
	s.events.Publish(events.TypeDatasetFailed, events.DatasetEvent{
		Name:      name,
		Source:    source,
		Error:     err.Error(),
		ErrorType: string(apperrors.TypeOf(err)),
	})
}

func sourceName(location string) string {
	if i := strings.LastIndexAny(location, `/\`); i >= 0 && i < len(location)-1 {
		return location[i+1:]
	}
	return location
}
