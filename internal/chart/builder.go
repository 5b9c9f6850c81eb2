package chart

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"gridpulse/pkg/contracts/domain"
)

// Title is the heading of every chart.
const Title = "电力数据可视化"

// Point caps
const (
	YearPointCap     = domain.HoursPerYear
	QuarterPointCap  = 2200
	SampleThreshold  = 5000
	SampleTarget     = 3000
	MidSizeThreshold = 2000
	MidSizeCap       = 3000
)

// Palette assigns series colours by selection index, wrapping around.
var Palette = []string{
	"#5470c6", "#91cc75", "#fac858", "#ee6666", "#73c0de",
	"#3ba272", "#fc8452", "#9a60b4", "#ea7ccc", "#1890ff",
	"#52c41a", "#faad14", "#f5222d", "#722ed1", "#13c2c2",
	"#eb2f96", "#fa8c16", "#a0d911", "#2f54eb", "#fa541c",
}

// Options control how a chart is built
type Options struct {
	Granularity domain.Granularity
	Theme       domain.Theme
}

// Builder produces chart models
type Builder struct {
	logger *slog.Logger
}

// NewBuilder creates a chart builder
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger.With(slog.String("component", "series_builder"))}
}

// PointCap returns how many leading records a chart of n records keeps.
func PointCap(n int, g domain.Granularity) int {
	limit := n
	switch {
	case g == domain.GranularityYear:
		limit = YearPointCap
	case g == domain.GranularityQuarter:
		limit = QuarterPointCap
	case n > SampleThreshold:
		stride := (n + SampleTarget - 1) / SampleTarget
		limit = n / stride
	case n > MidSizeThreshold:
		limit = MidSizeCap
	}
	return min(n, limit)
}

// Build assembles the chart for metrics over ds. An empty dataset or
// selection yields a model with a title and nothing else.
func (b *Builder) Build(ds *domain.Dataset, metrics []string, opts Options) domain.ChartModel {
	model := domain.ChartModel{
		Title:              Title,
		XAxis:              []string{},
		Series:             []domain.SeriesSpec{},
		LeftAxis:           []string{},
		RightAxis:          []string{},
		Granularity:        opts.Granularity,
		Theme:              opts.Theme,
		MonthTickPositions: []int{},
		MonthTickLabels:    []string{},
	}
	if ds.IsEmpty() || len(metrics) == 0 {
		return model
	}

	n := PointCap(ds.Len(), opts.Granularity)
	records := ds.Records[:n]

	model.XAxis = make([]string, n)
	for i := range records {
		r := &records[i]
		model.XAxis[i] = fmt.Sprintf("%02d-%02d %02d:00", r.Month, r.Day, r.Hour)
	}

	if opts.Granularity.UsesMonthTicks() {
		model.MonthTickPositions, model.MonthTickLabels = monthTicks(records)
	}

	var hasPrice, hasOther bool
	for _, name := range metrics {
		if domain.IsPriceLike(name) {
			hasPrice = true
		} else {
			hasOther = true
		}
	}
	model.DualAxis = hasPrice && hasOther

	for i, name := range metrics {
		priceLike := domain.IsPriceLike(name)
		axis := 0
		if model.DualAxis && priceLike {
			axis = 1
		}

		switch {
		case !model.DualAxis:
			model.LeftAxis = append(model.LeftAxis, name)
		case priceLike:
			model.RightAxis = append(model.RightAxis, name)
		default:
			model.LeftAxis = append(model.LeftAxis, name)
		}

		model.Series = append(model.Series, domain.SeriesSpec{
			Metric:    name,
			Label:     Label(name),
			Data:      seriesData(records, name),
			AxisIndex: axis,
			Color:     Palette[i%len(Palette)],
		})
	}

	b.logger.Debug("chart built",
		slog.Int("records", ds.Len()),
		slog.Int("points", n),
		slog.Int("series", len(model.Series)),
		slog.Bool("dual_axis", model.DualAxis),
		slog.String("granularity", string(opts.Granularity)))

	return model
}

// Label returns the display label of a metric, or the name itself.
func Label(name string) string {
	if m, ok := domain.LookupMetric(name); ok {
		return m.Label
	}
	return name
}

func seriesData(records []domain.PowerRecord, name string) []float64 {
	m, known := domain.LookupMetric(name)
	data := make([]float64, len(records))
	if !known {
		return data
	}
	for i := range records {
		v := m.Value(&records[i])
		if name == domain.MetricPriceDifference {
			v, _ = decimal.NewFromFloat(v).Round(2).Float64()
		}
		data[i] = v
	}
	return data
}

// monthTicks returns the first index of every distinct (year, month) and
// its "N月" label.
func monthTicks(records []domain.PowerRecord) ([]int, []string) {
	type yearMonth struct{ year, month int }
	seen := make(map[yearMonth]bool)
	positions := []int{}
	labels := []string{}
	for i := range records {
		key := yearMonth{records[i].Year, records[i].Month}
		if seen[key] {
			continue
		}
		seen[key] = true
		positions = append(positions, i)
		labels = append(labels, fmt.Sprintf("%d月", key.month))
	}
	return positions, labels
}

var defaultBuilder = NewBuilder(nil)

// Build assembles a chart with the default builder.
func Build(ds *domain.Dataset, metrics []string, opts Options) domain.ChartModel {
	return defaultBuilder.Build(ds, metrics, opts)
}
