package domain

import (
	"fmt"
	"time"
)

const (
	// MinYear and MaxYear bound the years a record may carry.
	MinYear = 2022
	MaxYear = 2025
	// HoursPerYear is used to infer a missing year from row position.
	HoursPerYear = 8760
	// TimestampLayout is the fixed composite format of PowerRecord.Timestamp.
	TimestampLayout = "2006-01-02 15:04:05"
	// DateLayout is the calendar date format used by windows and ranges.
	DateLayout = "2006-01-02"
)

// ActualMetrics holds the measured values for one hour
type ActualMetrics struct {
	DirectLoad    float64 `json:"direct_load"`
	TieLineLoad   float64 `json:"tie_line_load"`
	Wind          float64 `json:"wind"`
	Solar         float64 `json:"solar"`
	Nuclear       float64 `json:"nuclear"`
	SelfOwned     float64 `json:"self_owned"`
	LocalPlant    float64 `json:"local_plant"`
	PumpedStorage float64 `json:"pumped_storage"`
	Thermal       float64 `json:"thermal"`
}

// DayAheadMetrics holds the day-ahead schedule for one hour
type DayAheadMetrics struct {
	DirectLoad  float64 `json:"direct_load"`
	TieLineLoad float64 `json:"tie_line_load"`
	Wind        float64 `json:"wind"`
	Solar       float64 `json:"solar"`
	Nuclear     float64 `json:"nuclear"`
	SelfOwned   float64 `json:"self_owned"`
	LocalPlant  float64 `json:"local_plant"`
	Thermal     float64 `json:"thermal"`
}

// PriceMetrics holds the spot and day-ahead clearing prices
type PriceMetrics struct {
	Spot     float64 `json:"spot"`
	DayAhead float64 `json:"day_ahead"`
}

// DifferenceMetrics holds actual minus day-ahead deltas.
// Price is always Spot - DayAhead and is never read from the source file.
type DifferenceMetrics struct {
	DirectLoad  float64 `json:"direct_load"`
	TieLineLoad float64 `json:"tie_line_load"`
	Wind        float64 `json:"wind"`
	Solar       float64 `json:"solar"`
	Nuclear     float64 `json:"nuclear"`
	SelfOwned   float64 `json:"self_owned"`
	LocalPlant  float64 `json:"local_plant"`
	Thermal     float64 `json:"thermal"`
	Price       float64 `json:"price"`
}

// ForecastMetrics holds the optional forecast columns
type ForecastMetrics struct {
	PriceDifference float64 `json:"price_difference"`
	DayAheadPrice   float64 `json:"day_ahead_price"`
}

// PowerRecord is one hourly observation
type PowerRecord struct {
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	Day       int    `json:"day"`
	Hour      int    `json:"hour"`
	Timestamp string `json:"timestamp"`

	Actual     ActualMetrics     `json:"actual"`
	DayAhead   DayAheadMetrics   `json:"day_ahead"`
	Price      PriceMetrics      `json:"price"`
	Difference DifferenceMetrics `json:"difference"`
	Forecast   ForecastMetrics   `json:"forecast"`
}

// FormatTimestamp builds the composite timestamp for the given time fields.
func FormatTimestamp(year, month, day, hour int) string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:00:00", year, month, day, hour)
}

// ValidTimeFields reports whether month, day and hour are within calendar bounds.
func ValidTimeFields(month, day, hour int) bool {
	return month >= 1 && month <= 12 && day >= 1 && day <= 31 && hour >= 0 && hour <= 23
}

// Date returns the record's calendar date at UTC midnight.
// Out-of-month days (e.g. Feb 30) normalize forward, matching time.Date.
func (r PowerRecord) Date() time.Time {
	return time.Date(r.Year, time.Month(r.Month), r.Day, 0, 0, 0, 0, time.UTC)
}

// Time returns the record's hour as a UTC instant.
func (r PowerRecord) Time() time.Time {
	return time.Date(r.Year, time.Month(r.Month), r.Day, r.Hour, 0, 0, 0, time.UTC)
}

// RecomputePriceDifference enforces Difference.Price == Spot - DayAhead.
func (r *PowerRecord) RecomputePriceDifference() {
	r.Difference.Price = r.Price.Spot - r.Price.DayAhead
}

// HasForecast reports whether any forecast metric is non-zero.
func (r PowerRecord) HasForecast() bool {
	return r.Forecast.PriceDifference != 0 || r.Forecast.DayAheadPrice != 0
}

// ParseMeta carries the row accounting of one parse
type ParseMeta struct {
	TotalRows       int      `json:"total_rows"`
	ValidRows       int      `json:"valid_rows"`
	SkippedRows     int      `json:"skipped_rows"`
	Encoding        string   `json:"encoding,omitempty"`
	HasForecast     bool     `json:"has_forecast"`
	ForecastColumns []string `json:"forecast_columns,omitempty"`
}

// Dataset is an ordered sequence of records in construction order.
// A Dataset is never mutated after it is returned; derive a new one instead.
type Dataset struct {
	Records []PowerRecord `json:"records"`
	Meta    ParseMeta     `json:"meta"`
}

// Len returns the number of records
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// IsEmpty reports whether the dataset has no records
func (d *Dataset) IsEmpty() bool {
	return d.Len() == 0
}

// Years returns the distinct years present, in first-seen order.
func (d *Dataset) Years() []int {
	if d == nil {
		return nil
	}
	seen := make(map[int]bool)
	var years []int
	for _, r := range d.Records {
		if !seen[r.Year] {
			seen[r.Year] = true
			years = append(years, r.Year)
		}
	}
	return years
}
