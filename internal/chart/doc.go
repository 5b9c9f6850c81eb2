// Package chart turns a filtered dataset and a metric selection into a
// ChartModel for the rendering shell.
//
// Large selections are bounded by taking a prefix of the records; the cap
// depends on the granularity and the record count (see PointCap). Quarter and
// year charts additionally carry month tick positions. Price-like metrics go
// on a second axis whenever they are mixed with load or generation metrics.
package chart
