package dataprocessing

import (
	"gridpulse/pkg/contracts/domain"
)

// MetricStats summarizes one metric over a dataset
type MetricStats struct {
	Metric  string  `json:"metric"`
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Maximum float64 `json:"maximum"`
	Minimum float64 `json:"minimum"`
	Total   float64 `json:"total"`
}

// DatasetStats is the summary shown alongside a chart
type DatasetStats struct {
	TotalRecords int           `json:"total_records"`
	DateRange    string        `json:"date_range"`
	Metrics      []MetricStats `json:"metrics"`
}

// StatsMetrics lists the metrics summarized by CalculateStats: every
// non-forecast metric in catalog order.
func StatsMetrics() []string {
	var names []string
	for _, m := range domain.Metrics() {
		if m.Group != domain.GroupForecast {
			names = append(names, m.Name)
		}
	}
	return names
}

// CalculateStats summarizes every non-forecast metric. Maximum and minimum
// are seeded with 0, so an all-positive metric reports a minimum of 0.
func CalculateStats(ds *domain.Dataset) DatasetStats {
	if ds.IsEmpty() {
		return DatasetStats{Metrics: []MetricStats{}}
	}

	first, last := ds.Records[0], ds.Records[len(ds.Records)-1]
	stats := DatasetStats{
		TotalRecords: ds.Len(),
		DateRange:    first.Timestamp + " 至 " + last.Timestamp,
	}

	for _, name := range StatsMetrics() {
		m, _ := domain.LookupMetric(name)
		s := MetricStats{Metric: name, Count: ds.Len()}
		for i := range ds.Records {
			v := m.Value(&ds.Records[i])
			s.Total += v
			s.Maximum = max(s.Maximum, v)
			s.Minimum = min(s.Minimum, v)
		}
		s.Average = s.Total / float64(s.Count)
		stats.Metrics = append(stats.Metrics, s)
	}
	return stats
}
