// Package shared holds helpers used across gridpulse packages that belong to
// no single layer.
//
// The testutil subpackage provides a buffered slog handler for asserting on
// log output and builders for hourly CSV fixtures in the source file layout.
package shared
