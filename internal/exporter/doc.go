// Package exporter writes parsed datasets back out for downstream tools.
//
// CSV exports are UTF-8 with a BOM so spreadsheet software opens them without
// the encoding guesswork the source files needed. Columns follow the canonical
// metric order with 年/月/日/时 first; forecast columns appear only when the
// source carried them. Workbook exports put the same table on a single sheet.
//
//	exp := exporter.NewDatasetExporter(paths, logger)
//	path, err := exp.ExportCSV("power_utf8.csv", ds)
package exporter
