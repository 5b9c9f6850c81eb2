package domain

import (
	"fmt"
	"strings"
	"time"
)

// Granularity is the calendar unit a window was derived from
type Granularity string

const (
	GranularityDay     Granularity = "day"
	GranularityMonth   Granularity = "month"
	GranularityQuarter Granularity = "quarter"
	GranularityYear    Granularity = "year"
	GranularityCustom  Granularity = "custom"
)

// ParseGranularity converts a string into a Granularity
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case GranularityDay, GranularityMonth, GranularityQuarter, GranularityYear, GranularityCustom:
		return g, nil
	case "":
		return GranularityCustom, nil
	default:
		return "", fmt.Errorf("unknown granularity %q", s)
	}
}

// UsesMonthTicks reports whether charts at this granularity carry month ticks.
func (g Granularity) UsesMonthTicks() bool {
	return g == GranularityQuarter || g == GranularityYear
}

// TimeWindow is an immutable requested view over a dataset
type TimeWindow struct {
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	Granularity Granularity `json:"granularity"`
}

// String renders the window as "start..end (granularity)"
func (w TimeWindow) String() string {
	return fmt.Sprintf("%s..%s (%s)", w.Start.Format(DateLayout), w.End.Format(DateLayout), w.Granularity)
}

// Theme selects the colour scheme handed to the renderer
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// SeriesSpec is one renderable value series
type SeriesSpec struct {
	Metric    string    `json:"metric"`
	Label     string    `json:"label"`
	Data      []float64 `json:"data"`
	AxisIndex int       `json:"axis_index"`
	Color     string    `json:"color"`
}

// ChartModel is the sole output consumed by the rendering shell
type ChartModel struct {
	Title              string       `json:"title"`
	XAxis              []string     `json:"x_axis"`
	Series             []SeriesSpec `json:"series"`
	DualAxis           bool         `json:"dual_axis"`
	LeftAxis           []string     `json:"left_axis"`
	RightAxis          []string     `json:"right_axis"`
	Granularity        Granularity  `json:"granularity,omitempty"`
	Theme              Theme        `json:"theme,omitempty"`
	MonthTickPositions []int        `json:"month_tick_positions"`
	MonthTickLabels    []string     `json:"month_tick_labels"`
}

// Points returns the number of x positions in the model
func (c ChartModel) Points() int {
	return len(c.XAxis)
}
