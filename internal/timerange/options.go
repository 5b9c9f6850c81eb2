package timerange

import (
	"fmt"
	"sort"
	"time"

	"gridpulse/pkg/contracts/domain"
)

// YearMonth identifies a selectable month
type YearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// YearQuarter identifies a selectable quarter
type YearQuarter struct {
	Year    int `json:"year"`
	Quarter int `json:"quarter"`
}

// Label renders the quarter as "2024-Q3".
func (q YearQuarter) Label() string {
	return fmt.Sprintf("%d-Q%d", q.Year, q.Quarter)
}

// Options lists the periods a caller may pick from
type Options struct {
	Years    []int         `json:"years"`
	Months   []YearMonth   `json:"months"`
	Quarters []YearQuarter `json:"quarters"`
}

// YearOption is one entry of the year picker
type YearOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// AvailableOptions lists every year, month and quarter of the domain span.
// With no data loaded only the years are offered.
func AvailableOptions(ds *domain.Dataset) Options {
	if ds.IsEmpty() {
		return Options{
			Years:    defaultYears(),
			Months:   []YearMonth{},
			Quarters: []YearQuarter{},
		}
	}

	span := ComputeRange(ds)
	opts := Options{}
	for y := span.Start.Year(); y <= span.End.Year(); y++ {
		opts.Years = append(opts.Years, y)
	}

	lastMonth := time.Date(span.End.Year(), span.End.Month(), 1, 0, 0, 0, 0, time.UTC)
	for m := time.Date(span.Start.Year(), span.Start.Month(), 1, 0, 0, 0, 0, time.UTC); !m.After(lastMonth); m = m.AddDate(0, 1, 0) {
		opts.Months = append(opts.Months, YearMonth{Year: m.Year(), Month: int(m.Month())})
		q := YearQuarter{Year: m.Year(), Quarter: (int(m.Month())-1)/3 + 1}
		if n := len(opts.Quarters); n == 0 || opts.Quarters[n-1] != q {
			opts.Quarters = append(opts.Quarters, q)
		}
	}
	return opts
}

// YearOptions lists the years present in the data, ascending, falling back
// to the full domain when nothing is loaded.
func YearOptions(ds *domain.Dataset) []YearOption {
	years := ds.Years()
	if len(years) == 0 {
		years = defaultYears()
	}
	sort.Ints(years)

	out := make([]YearOption, len(years))
	for i, y := range years {
		out[i] = YearOption{Label: fmt.Sprintf("%d年", y), Value: fmt.Sprint(y)}
	}
	return out
}

func defaultYears() []int {
	years := make([]int, 0, domain.MaxYear-domain.MinYear+1)
	for y := domain.MinYear; y <= domain.MaxYear; y++ {
		years = append(years, y)
	}
	return years
}
