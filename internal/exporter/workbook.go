package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"gridpulse/pkg/contracts/domain"
)

// SheetName is the single worksheet written by workbook exports.
const SheetName = "电力数据"

// buildWorkbook lays ds out on one sheet using excelize's stream writer.
func buildWorkbook(ds *domain.Dataset) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open stream writer: %w", err)
	}

	header := Columns(ds)
	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := sw.SetRow("A1", headerRow); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}

	metrics := exportMetrics(ds)
	for i := range ds.Records {
		r := &ds.Records[i]
		row := make([]interface{}, 0, len(header))
		row = append(row, r.Year, r.Month, r.Day, r.Hour)
		for _, m := range metrics {
			v := m.Value(r)
			if m.Name == domain.MetricPriceDifference {
				v = decimal.NewFromFloat(v).Round(2).InexactFloat64()
			}
			row = append(row, v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := sw.SetRow(cell, row); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush sheet: %w", err)
	}
	return f, nil
}

// WriteDatasetWorkbook writes ds as an .xlsx workbook to out.
func WriteDatasetWorkbook(out io.Writer, ds *domain.Dataset) error {
	if ds == nil {
		return fmt.Errorf("nil dataset")
	}
	f, err := buildWorkbook(ds)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(out)
}

// ExportWorkbook writes ds to filename (relative to the exports directory) and returns the full path.
func (e *DatasetExporter) ExportWorkbook(filename string, ds *domain.Dataset) (string, error) {
	if ds == nil {
		return "", fmt.Errorf("nil dataset")
	}
	path := e.csv.resolvePath(filename)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := buildWorkbook(ds)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	e.logger.Info("Dataset exported",
		slog.String("format", "xlsx"),
		slog.String("path", path),
		slog.Int("records", ds.Len()))
	return path, nil
}
