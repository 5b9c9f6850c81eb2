// Package dataprocessing turns report bytes into hourly power records and
// summarizes them.
//
// # Parsing
//
// A report is a header row followed by one row per hour. The time columns
// (年, 月, 日, 时 or year, month, day, hour) and the metric columns are located
// by header name, so column order does not matter. Forecast columns are
// matched by header fragment and are optional.
//
//	parser := dataprocessing.NewParser(dataprocessing.DefaultParserConfig(), nil, logger)
//	ds, err := parser.ParseAny(raw)
//
// ParseAny sends .xlsx containers to ParseWorkbook, which reads the first
// sheet, and everything else through the encoding resolver and ParseText.
// Rows with a missing or out-of-range month, day or hour are skipped and
// counted in the dataset's ParseMeta; blank metric cells read as 0 and a bad
// year is inferred from the row position. A header without the time columns
// is a FORMAT error and a report where no row survives is EMPTY_DATASET.
//
// # Statistics
//
// CalculateStats reports count, average, maximum, minimum and total for the
// metrics listed by StatsMetrics, typically after the dataset has been
// filtered to a time window.
package dataprocessing
