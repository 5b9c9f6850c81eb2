package validation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gridpulse/pkg/contracts/domain"
)

// Thresholds for dataset plausibility checks
const (
	MaxAbsPrice         = 100000.0
	MinDirectLoad       = 0.0
	MaxDirectLoad       = 1000000.0
	MaxGapHours         = 24
	GapCheckRows        = 10
	MaxAbsForecastDiff  = 10000.0
	MinForecastDayAhead = -1000.0
	MaxForecastDayAhead = 10000.0
	DefaultMaxAnomalies = 100
)

// AnomalyKind classifies a RowAnomaly
type AnomalyKind string

const (
	KindPriceOutOfRange    AnomalyKind = "price_out_of_range"
	KindLoadOutOfRange     AnomalyKind = "load_out_of_range"
	KindTimeGap            AnomalyKind = "time_gap"
	KindForecastMissing    AnomalyKind = "forecast_missing"
	KindForecastOutOfRange AnomalyKind = "forecast_out_of_range"
)

// RowAnomaly is an advisory finding about one row, or about the whole
// dataset when Row is 0. Rows are numbered from 1.
type RowAnomaly struct {
	Row     int         `json:"row"`
	Kind    AnomalyKind `json:"kind"`
	Metric  string      `json:"metric,omitempty"`
	Value   float64     `json:"value"`
	Message string      `json:"message"`
}

// Report is the outcome of a validation pass
type Report struct {
	IsValid   bool         `json:"is_valid"`
	Total     int          `json:"total"`
	Anomalies []RowAnomaly `json:"anomalies"`
}

// DatasetValidator checks a parsed dataset for implausible values. It never
// modifies the dataset and never fails.
type DatasetValidator struct {
	maxAnomalies int
	logger       *slog.Logger
}

// NewDatasetValidator creates a validator keeping at most maxAnomalies
// findings per report. Non-positive values select DefaultMaxAnomalies.
func NewDatasetValidator(maxAnomalies int, logger *slog.Logger) *DatasetValidator {
	if maxAnomalies <= 0 {
		maxAnomalies = DefaultMaxAnomalies
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetValidator{
		maxAnomalies: maxAnomalies,
		logger:       logger.With(slog.String("component", "dataset_validator")),
	}
}

type collector struct {
	limit     int
	total     int
	anomalies []RowAnomaly
}

func (c *collector) add(a RowAnomaly) {
	c.total++
	if len(c.anomalies) < c.limit {
		c.anomalies = append(c.anomalies, a)
	}
}

func (c *collector) report() Report {
	anomalies := c.anomalies
	if anomalies == nil {
		anomalies = []RowAnomaly{}
	}
	return Report{IsValid: c.total == 0, Total: c.total, Anomalies: anomalies}
}

// Validate checks prices, direct load and the time continuity of the first rows.
func (v *DatasetValidator) Validate(ds *domain.Dataset) Report {
	c := &collector{limit: v.maxAnomalies}
	if ds == nil {
		return c.report()
	}

	for i := range ds.Records {
		r := &ds.Records[i]
		row := i + 1

		if math.Abs(r.Price.Spot) > MaxAbsPrice {
			c.add(RowAnomaly{Row: row, Kind: KindPriceOutOfRange, Metric: domain.MetricSpotPrice, Value: r.Price.Spot,
				Message: fmt.Sprintf("row %d: %s %g exceeds ±%g", row, domain.MetricSpotPrice, r.Price.Spot, MaxAbsPrice)})
		}
		if math.Abs(r.Price.DayAhead) > MaxAbsPrice {
			c.add(RowAnomaly{Row: row, Kind: KindPriceOutOfRange, Metric: domain.MetricDayAheadPrice, Value: r.Price.DayAhead,
				Message: fmt.Sprintf("row %d: %s %g exceeds ±%g", row, domain.MetricDayAheadPrice, r.Price.DayAhead, MaxAbsPrice)})
		}
		if r.Actual.DirectLoad < MinDirectLoad || r.Actual.DirectLoad > MaxDirectLoad {
			c.add(RowAnomaly{Row: row, Kind: KindLoadOutOfRange, Metric: domain.MetricActualDirectLoad, Value: r.Actual.DirectLoad,
				Message: fmt.Sprintf("row %d: %s %g outside [%g, %g]", row, domain.MetricActualDirectLoad, r.Actual.DirectLoad, MinDirectLoad, MaxDirectLoad)})
		}

		// continuity is only sampled over the leading rows
		if i > 0 && i < GapCheckRows {
			prev := ds.Records[i-1].Time()
			gap := int(r.Time().Sub(prev) / time.Hour)
			if gap > MaxGapHours {
				c.add(RowAnomaly{Row: row, Kind: KindTimeGap, Value: float64(gap),
					Message: fmt.Sprintf("row %d: time jumps %s -> %s", row, prev.Format("2006-01-02 15:04"), r.Time().Format("2006-01-02 15:04"))})
			}
		}
	}

	rep := c.report()
	v.log("dataset validated", ds, rep)
	return rep
}

// ValidateForecast checks that forecast columns were found and that their
// values fall within plausible bounds. Only rows carrying a non-zero forecast
// contribute to the bounds.
func (v *DatasetValidator) ValidateForecast(ds *domain.Dataset) Report {
	c := &collector{limit: v.maxAnomalies}

	var withForecast []*domain.PowerRecord
	if ds != nil {
		for i := range ds.Records {
			if ds.Records[i].HasForecast() {
				withForecast = append(withForecast, &ds.Records[i])
			}
		}
	}

	if len(withForecast) == 0 {
		c.add(RowAnomaly{Kind: KindForecastMissing,
			Message: "no forecast values found, check the forecast column names"})
		rep := c.report()
		v.log("forecast validated", ds, rep)
		return rep
	}

	diffMin, diffMax := forecastRange(withForecast, func(r *domain.PowerRecord) float64 { return r.Forecast.PriceDifference })
	if math.Abs(diffMin) > MaxAbsForecastDiff || math.Abs(diffMax) > MaxAbsForecastDiff {
		c.add(RowAnomaly{Kind: KindForecastOutOfRange, Metric: domain.MetricForecastPriceDifference,
			Value:   extreme(diffMin, diffMax, -MaxAbsForecastDiff, MaxAbsForecastDiff),
			Message: fmt.Sprintf("%s range abnormal: %g ~ %g", domain.MetricForecastPriceDifference, diffMin, diffMax)})
	}

	daMin, daMax := forecastRange(withForecast, func(r *domain.PowerRecord) float64 { return r.Forecast.DayAheadPrice })
	if daMin < MinForecastDayAhead || daMax > MaxForecastDayAhead {
		c.add(RowAnomaly{Kind: KindForecastOutOfRange, Metric: domain.MetricForecastDayAheadPrice,
			Value:   extreme(daMin, daMax, MinForecastDayAhead, MaxForecastDayAhead),
			Message: fmt.Sprintf("%s range abnormal: %g ~ %g", domain.MetricForecastDayAheadPrice, daMin, daMax)})
	}

	rep := c.report()
	v.log("forecast validated", ds, rep)
	return rep
}

func (v *DatasetValidator) log(msg string, ds *domain.Dataset, rep Report) {
	level := slog.LevelInfo
	if !rep.IsValid {
		level = slog.LevelWarn
	}
	v.logger.Log(context.Background(), level, msg,
		slog.Int("records", ds.Len()),
		slog.Int("anomalies", rep.Total),
		slog.Bool("valid", rep.IsValid))
}

func forecastRange(rows []*domain.PowerRecord, get func(*domain.PowerRecord) float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, r := range rows {
		v := get(r)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// extreme returns whichever of lo or hi breaks its bound, preferring lo.
func extreme(lo, hi, minBound, maxBound float64) float64 {
	if lo < minBound || lo > maxBound {
		return lo
	}
	return hi
}

var defaultValidator = NewDatasetValidator(DefaultMaxAnomalies, nil)

// Validate runs the default dataset checks.
func Validate(ds *domain.Dataset) Report {
	return defaultValidator.Validate(ds)
}

// ValidateForecast runs the default forecast checks.
func ValidateForecast(ds *domain.Dataset) Report {
	return defaultValidator.ValidateForecast(ds)
}
