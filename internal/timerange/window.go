package timerange

import (
	"fmt"
	"time"

	apperrors "gridpulse/internal/errors"
	"gridpulse/pkg/contracts/domain"
)

// The declared span of the data domain.
var (
	DomainStart = time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC)
	DomainEnd   = time.Date(2025, time.August, 31, 0, 0, 0, 0, time.UTC)
)

// Range is an inclusive pair of calendar dates
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// String renders the range as "YYYY-MM-DD..YYYY-MM-DD"
func (r Range) String() string {
	return r.Start.Format(domain.DateLayout) + ".." + r.End.Format(domain.DateLayout)
}

// ComputeRange returns the declared domain span. It does not look at the
// records: a file covering one week still reports 2022-01-01..2025-08-31.
// Use DataBounds for the span actually present.
func ComputeRange(_ *domain.Dataset) Range {
	return Range{Start: DomainStart, End: DomainEnd}
}

// DataBounds returns the earliest and latest record dates, or false for an
// empty dataset.
func DataBounds(ds *domain.Dataset) (Range, bool) {
	if ds.IsEmpty() {
		return Range{}, false
	}
	r := Range{Start: ds.Records[0].Date(), End: ds.Records[0].Date()}
	for i := range ds.Records {
		d := ds.Records[i].Date()
		if d.Before(r.Start) {
			r.Start = d
		}
		if d.After(r.End) {
			r.End = d
		}
	}
	return r, true
}

// dateOf truncates t to its UTC calendar date.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func clampEnd(end time.Time) time.Time {
	if end.After(DomainEnd) {
		return DomainEnd
	}
	return end
}

// DayWindow covers the single calendar date of day.
func DayWindow(day time.Time) domain.TimeWindow {
	d := dateOf(day)
	return domain.TimeWindow{Start: d, End: d, Granularity: domain.GranularityDay}
}

// MonthWindow covers one calendar month.
func MonthWindow(year int, month time.Month) (domain.TimeWindow, error) {
	if month < time.January || month > time.December {
		return domain.TimeWindow{}, apperrors.NewAppValidationError(fmt.Sprintf("month %d out of range", month))
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return domain.TimeWindow{Start: start, End: clampEnd(end), Granularity: domain.GranularityMonth}, nil
}

// QuarterWindow covers quarter q (1-4) of year.
func QuarterWindow(year, q int) (domain.TimeWindow, error) {
	if q < 1 || q > 4 {
		return domain.TimeWindow{}, apperrors.NewAppValidationError(fmt.Sprintf("quarter %d out of range", q))
	}
	start := time.Date(year, time.Month((q-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 3, -1)
	return domain.TimeWindow{Start: start, End: clampEnd(end), Granularity: domain.GranularityQuarter}, nil
}

// YearWindow covers one calendar year.
func YearWindow(year int) domain.TimeWindow {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return domain.TimeWindow{Start: start, End: clampEnd(end), Granularity: domain.GranularityYear}
}

// CustomWindow covers an arbitrary inclusive date span.
func CustomWindow(start, end time.Time) (domain.TimeWindow, error) {
	s, e := dateOf(start), dateOf(end)
	if s.After(e) {
		return domain.TimeWindow{}, apperrors.NewAppValidationError(
			fmt.Sprintf("start %s is after end %s", s.Format(domain.DateLayout), e.Format(domain.DateLayout)))
	}
	return domain.TimeWindow{Start: s, End: e, Granularity: domain.GranularityCustom}, nil
}

// DeriveWindow builds the window of granularity g containing anchor. For
// custom windows end is used as given; other granularities ignore it.
func DeriveWindow(g domain.Granularity, anchor, end time.Time) (domain.TimeWindow, error) {
	switch g {
	case domain.GranularityDay:
		return DayWindow(anchor), nil
	case domain.GranularityMonth:
		return MonthWindow(anchor.Year(), anchor.Month())
	case domain.GranularityQuarter:
		return QuarterWindow(anchor.Year(), (int(anchor.Month())-1)/3+1)
	case domain.GranularityYear:
		return YearWindow(anchor.Year()), nil
	case domain.GranularityCustom:
		return CustomWindow(anchor, end)
	default:
		return domain.TimeWindow{}, apperrors.NewAppValidationError(fmt.Sprintf("unknown granularity %q", g))
	}
}

// DefaultWindow is the window shown when a granularity is first selected:
// the period containing the domain start.
func DefaultWindow(g domain.Granularity) (domain.TimeWindow, error) {
	return DeriveWindow(g, DomainStart, DomainStart)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(domain.DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, apperrors.NewAppValidationError(fmt.Sprintf("invalid date %q, want YYYY-MM-DD", s))
	}
	return t, nil
}
