package domain

// MetricGroup classifies a metric column
type MetricGroup string

const (
	GroupActual     MetricGroup = "actual"
	GroupDayAhead   MetricGroup = "day_ahead"
	GroupPrice      MetricGroup = "price"
	GroupDifference MetricGroup = "difference"
	GroupForecast   MetricGroup = "forecast"
)

// Metric names as they appear in source file headers.
const (
	MetricActualDirectLoad    = "实际直调负荷"
	MetricActualTieLineLoad   = "实际联络线受电负荷"
	MetricActualWind          = "实际风电总加"
	MetricActualSolar         = "实际光伏总加"
	MetricActualNuclear       = "实际非市场化核电总加"
	MetricActualSelfOwned     = "实际自备机组总加"
	MetricActualLocalPlant    = "实际地方电厂发电总加"
	MetricActualPumpedStorage = "实际抽蓄"
	MetricActualThermal       = "实际火力发电"

	MetricDayAheadDirectLoad  = "日前直调负荷"
	MetricDayAheadTieLineLoad = "日前联络线受电负荷"
	MetricDayAheadWind        = "日前风电总加"
	MetricDayAheadSolar       = "日前光伏总加"
	MetricDayAheadNuclear     = "日前非市场化核电总加"
	MetricDayAheadSelfOwned   = "日前自备机组总加"
	MetricDayAheadLocalPlant  = "日前地方电厂发电总加"
	MetricDayAheadThermal     = "日前火力发电"

	MetricSpotPrice     = "现货价格"
	MetricDayAheadPrice = "日前价格"

	MetricDiffDirectLoad  = "直调负荷差值"
	MetricDiffTieLineLoad = "联络线受电负荷差值"
	MetricDiffWind        = "风电总加差值"
	MetricDiffSolar       = "光伏总加差值"
	MetricDiffNuclear     = "非市场化核电总加差值"
	MetricDiffSelfOwned   = "自备机组总加差值"
	MetricDiffLocalPlant  = "地方电厂发电总加差值"
	MetricDiffThermal     = "火力发电差值"
	MetricPriceDifference = "价格差值"

	MetricForecastPriceDifference = "价格差值预测"
	MetricForecastDayAheadPrice   = "日前价格预测"
)

// DefaultSelection is the metric set shown before the user picks any.
func DefaultSelection() []string {
	return []string{
		MetricActualDirectLoad,
		MetricActualWind,
		MetricActualSolar,
		MetricDiffDirectLoad,
		MetricPriceDifference,
	}
}

// Metric describes one named numeric column of a PowerRecord
type Metric struct {
	Name      string      `json:"name"`
	Label     string      `json:"label"`
	Group     MetricGroup `json:"group"`
	PriceLike bool        `json:"price_like"`

	field func(*PowerRecord) *float64
}

// Value reads the metric from a record
func (m Metric) Value(r *PowerRecord) float64 {
	return *m.field(r)
}

// Set writes the metric into a record
func (m Metric) Set(r *PowerRecord, v float64) {
	*m.field(r) = v
}

func metric(name string, group MetricGroup, field func(*PowerRecord) *float64) Metric {
	return Metric{Name: name, Label: name, Group: group, field: field}
}

// catalog is the fixed schema, in canonical column order.
var catalog = []Metric{
	metric(MetricActualDirectLoad, GroupActual, func(r *PowerRecord) *float64 { return &r.Actual.DirectLoad }),
	metric(MetricActualTieLineLoad, GroupActual, func(r *PowerRecord) *float64 { return &r.Actual.TieLineLoad }),
	metric(MetricActualWind, GroupActual, func(r *PowerRecord) *float64 { return &r.Actual.Wind }),
	metric(MetricActualSolar, GroupActual, func(r *PowerRecord) *float64 { return &r.Actual.Solar }),
	metric(MetricActualNuclear, GroupActual, func(r *PowerRecord) *float64 { return &r.Actual.Nuclear }),
	metric(MetricActualSelfOwned, GroupActual, func(r *PowerRecord) *float64 { return &r.Actual.SelfOwned }),
	metric(MetricActualLocalPlant, GroupActual, func(r *PowerRecord) *float64 { return &r.Actual.LocalPlant }),
	metric(MetricActualPumpedStorage, GroupActual, func(r *PowerRecord) *float64 { return &r.Actual.PumpedStorage }),
	metric(MetricActualThermal, GroupActual, func(r *PowerRecord) *float64 { return &r.Actual.Thermal }),

	metric(MetricDayAheadDirectLoad, GroupDayAhead, func(r *PowerRecord) *float64 { return &r.DayAhead.DirectLoad }),
	metric(MetricDayAheadTieLineLoad, GroupDayAhead, func(r *PowerRecord) *float64 { return &r.DayAhead.TieLineLoad }),
	metric(MetricDayAheadWind, GroupDayAhead, func(r *PowerRecord) *float64 { return &r.DayAhead.Wind }),
	metric(MetricDayAheadSolar, GroupDayAhead, func(r *PowerRecord) *float64 { return &r.DayAhead.Solar }),
	metric(MetricDayAheadNuclear, GroupDayAhead, func(r *PowerRecord) *float64 { return &r.DayAhead.Nuclear }),
	metric(MetricDayAheadSelfOwned, GroupDayAhead, func(r *PowerRecord) *float64 { return &r.DayAhead.SelfOwned }),
	metric(MetricDayAheadLocalPlant, GroupDayAhead, func(r *PowerRecord) *float64 { return &r.DayAhead.LocalPlant }),
	metric(MetricDayAheadThermal, GroupDayAhead, func(r *PowerRecord) *float64 { return &r.DayAhead.Thermal }),

	priceLike(metric(MetricSpotPrice, GroupPrice, func(r *PowerRecord) *float64 { return &r.Price.Spot })),
	priceLike(metric(MetricDayAheadPrice, GroupPrice, func(r *PowerRecord) *float64 { return &r.Price.DayAhead })),

	priceLike(labelled(metric(MetricPriceDifference, GroupDifference, func(r *PowerRecord) *float64 { return &r.Difference.Price }), "价格差值（现货价格-日前价格）")),
	metric(MetricDiffDirectLoad, GroupDifference, func(r *PowerRecord) *float64 { return &r.Difference.DirectLoad }),
	metric(MetricDiffTieLineLoad, GroupDifference, func(r *PowerRecord) *float64 { return &r.Difference.TieLineLoad }),
	metric(MetricDiffWind, GroupDifference, func(r *PowerRecord) *float64 { return &r.Difference.Wind }),
	metric(MetricDiffSolar, GroupDifference, func(r *PowerRecord) *float64 { return &r.Difference.Solar }),
	metric(MetricDiffNuclear, GroupDifference, func(r *PowerRecord) *float64 { return &r.Difference.Nuclear }),
	metric(MetricDiffSelfOwned, GroupDifference, func(r *PowerRecord) *float64 { return &r.Difference.SelfOwned }),
	metric(MetricDiffLocalPlant, GroupDifference, func(r *PowerRecord) *float64 { return &r.Difference.LocalPlant }),
	metric(MetricDiffThermal, GroupDifference, func(r *PowerRecord) *float64 { return &r.Difference.Thermal }),

	priceLike(labelled(metric(MetricForecastPriceDifference, GroupForecast, func(r *PowerRecord) *float64 { return &r.Forecast.PriceDifference }), "价格差值预测（现货价格-日前价格）")),
	priceLike(metric(MetricForecastDayAheadPrice, GroupForecast, func(r *PowerRecord) *float64 { return &r.Forecast.DayAheadPrice })),
}

func priceLike(m Metric) Metric {
	m.PriceLike = true
	return m
}

func labelled(m Metric, label string) Metric {
	m.Label = label
	return m
}

var catalogIndex = func() map[string]Metric {
	idx := make(map[string]Metric, len(catalog))
	for _, m := range catalog {
		idx[m.Name] = m
	}
	return idx
}()

// Metrics returns the full catalog in canonical column order.
func Metrics() []Metric {
	out := make([]Metric, len(catalog))
	copy(out, catalog)
	return out
}

// LookupMetric finds a metric by its header name
func LookupMetric(name string) (Metric, bool) {
	m, ok := catalogIndex[name]
	return m, ok
}

// IsPriceLike reports whether the named metric belongs on the price axis.
func IsPriceLike(name string) bool {
	m, ok := catalogIndex[name]
	return ok && m.PriceLike
}

// Value returns the named metric of the record, or 0 for unknown names.
func (r PowerRecord) Value(name string) float64 {
	m, ok := catalogIndex[name]
	if !ok {
		return 0
	}
	return m.Value(&r)
}
