// Package validation holds the advisory checks run over parsed datasets and
// the path checks used before reading or writing report files.
//
// Dataset checks never fail and never modify their input. They return a
// Report whose anomaly list is capped, while Report.Total still counts every
// finding.
package validation
