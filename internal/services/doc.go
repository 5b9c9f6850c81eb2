// Package services holds the application layer between transports and the
// ingest pipeline.
//
// A Pipeline wires the Encoding Resolver, Record Parser and Validator for
// ingest, and the Time-Range Filter and Series Builder for views, tracing
// each stage. DatasetService keeps parsed datasets in a DatasetStore,
// replacing entries wholesale on re-parse, and publishes "dataset:loaded" /
// "dataset:failed" events. SourceFetcher reads local files or http(s) URLs,
// and Refresher reloads the default source on a cron schedule.
package services
