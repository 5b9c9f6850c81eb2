package exporter

import (
	"fmt"
	"io"
	"log/slog"

	"gridpulse/internal/config"
	"gridpulse/pkg/contracts/domain"
)

// TimeColumns lead every exported row.
var TimeColumns = []string{"年", "月", "日", "时"}

// Columns returns the export header for a dataset in canonical column order.
// Forecast columns are included only when the source carried them.
func Columns(ds *domain.Dataset) []string {
	metrics := exportMetrics(ds)
	header := make([]string, 0, len(TimeColumns)+len(metrics))
	header = append(header, TimeColumns...)
	for _, m := range metrics {
		header = append(header, m.Name)
	}
	return header
}

// Rows renders every record as a string row matching Columns.
func Rows(ds *domain.Dataset) [][]string {
	if ds.IsEmpty() {
		return [][]string{}
	}
	metrics := exportMetrics(ds)
	rows := make([][]string, 0, ds.Len())
	for i := range ds.Records {
		r := &ds.Records[i]
		row := make([]string, 0, len(TimeColumns)+len(metrics))
		row = append(row, formatInt(r.Year), formatInt(r.Month), formatInt(r.Day), formatInt(r.Hour))
		for _, m := range metrics {
			row = append(row, formatMetric(m.Name, m.Value(r)))
		}
		rows = append(rows, row)
	}
	return rows
}

func exportMetrics(ds *domain.Dataset) []domain.Metric {
	var out []domain.Metric
	for _, m := range domain.Metrics() {
		if m.Group == domain.GroupForecast && (ds == nil || !ds.Meta.HasForecast) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// WriteDatasetCSV writes ds as UTF-8 CSV with a BOM to out.
func WriteDatasetCSV(out io.Writer, ds *domain.Dataset) error {
	return writeRows(out, Columns(ds), Rows(ds), true, true)
}

// DatasetExporter writes datasets into the exports directory
type DatasetExporter struct {
	csv    *CSVWriter
	paths  *config.Paths
	logger *slog.Logger
}

// NewDatasetExporter creates an exporter rooted at paths.ExportsDir
func NewDatasetExporter(paths *config.Paths, logger *slog.Logger) *DatasetExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetExporter{
		csv:    NewCSVWriter(paths, logger),
		paths:  paths,
		logger: logger.With(slog.String("component", "dataset_exporter")),
	}
}

// ExportCSV writes ds to filename (relative to the exports directory) and returns the full path.
func (e *DatasetExporter) ExportCSV(filename string, ds *domain.Dataset) (string, error) {
	if ds == nil {
		return "", fmt.Errorf("nil dataset")
	}
	path, err := e.csv.WriteSimpleCSV(filename, Columns(ds), Rows(ds))
	if err != nil {
		return "", fmt.Errorf("export csv: %w", err)
	}
	e.logger.Info("Dataset exported",
		slog.String("format", "csv"),
		slog.String("path", path),
		slog.Int("records", ds.Len()),
		slog.String("source_encoding", ds.Meta.Encoding))
	return path, nil
}
