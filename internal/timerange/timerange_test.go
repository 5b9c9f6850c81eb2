package timerange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gridpulse/internal/errors"
	"gridpulse/pkg/contracts/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// hourlyDataset builds n hourly records starting at start.
func hourlyDataset(start time.Time, n int) *domain.Dataset {
	ds := &domain.Dataset{Meta: domain.ParseMeta{TotalRows: n, ValidRows: n, Encoding: "GBK"}}
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		ds.Records = append(ds.Records, domain.PowerRecord{
			Year: ts.Year(), Month: int(ts.Month()), Day: ts.Day(), Hour: ts.Hour(),
			Timestamp: domain.FormatTimestamp(ts.Year(), int(ts.Month()), ts.Day(), ts.Hour()),
		})
	}
	return ds
}

func TestComputeRange_IsTheDeclaredDomainNotTheData(t *testing.T) {
	ds := hourlyDataset(date(2023, time.June, 1), 48)

	r := ComputeRange(ds)

	assert.Equal(t, date(2022, time.January, 1), r.Start)
	assert.Equal(t, date(2025, time.August, 31), r.End)
	assert.Equal(t, "2022-01-01..2025-08-31", r.String())

	bounds, ok := DataBounds(ds)
	require.True(t, ok)
	assert.NotEqual(t, r, bounds)
	assert.Equal(t, date(2023, time.June, 1), bounds.Start)
	assert.Equal(t, date(2023, time.June, 2), bounds.End)
}

func TestDataBounds_Empty(t *testing.T) {
	_, ok := DataBounds(&domain.Dataset{})
	assert.False(t, ok)
}

func TestFilter(t *testing.T) {
	ds := hourlyDataset(date(2022, time.January, 30), 24*5) // Jan 30 .. Feb 3

	tests := []struct {
		name      string
		window    domain.TimeWindow
		wantCount int
	}{
		{"single day includes every hour", DayWindow(date(2022, time.February, 1)), 24},
		{"inclusive on both ends", domain.TimeWindow{Start: date(2022, time.January, 31), End: date(2022, time.February, 1)}, 48},
		{"hour part of window ignored", domain.TimeWindow{Start: time.Date(2022, 2, 3, 23, 0, 0, 0, time.UTC), End: time.Date(2022, 2, 3, 1, 0, 0, 0, time.UTC)}, 24},
		{"disjoint window", YearWindow(2024), 0},
		{"inverted window", domain.TimeWindow{Start: date(2022, time.February, 2), End: date(2022, time.January, 31)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(ds, tt.window)

			assert.Len(t, got.Records, tt.wantCount)
			assert.NotNil(t, got.Records)
		})
	}
}

func TestFilter_GranularityDoesNotChangeComparison(t *testing.T) {
	ds := hourlyDataset(date(2022, time.March, 1), 24*40)
	base := domain.TimeWindow{Start: date(2022, time.March, 5), End: date(2022, time.March, 20)}

	want := Filter(ds, base)
	for _, g := range []domain.Granularity{domain.GranularityDay, domain.GranularityMonth, domain.GranularityQuarter, domain.GranularityYear, domain.GranularityCustom} {
		w := base
		w.Granularity = g
		assert.Equal(t, want, Filter(ds, w), string(g))
	}
}

func TestFilter_SupersetReturnsDatasetUnchanged(t *testing.T) {
	ds := hourlyDataset(date(2022, time.January, 1), 100)
	ds.Meta.ForecastColumns = []string{"日前价格预测"}

	got := Filter(ds, domain.TimeWindow{Start: DomainStart, End: DomainEnd})

	assert.Equal(t, ds, got)
	assert.NotSame(t, ds, got)
}

func TestFilter_ValidRowsCountsKeptRecords(t *testing.T) {
	ds := hourlyDataset(date(2022, time.January, 1), 24*3)
	ds.Meta.TotalRows, ds.Meta.SkippedRows = 80, 8

	got := Filter(ds, DayWindow(date(2022, time.January, 2)))

	assert.Equal(t, 24, got.Len())
	assert.Equal(t, got.Len(), got.Meta.ValidRows)
	assert.Equal(t, 80, got.Meta.TotalRows)
	assert.Equal(t, 8, got.Meta.SkippedRows)
	assert.Equal(t, "GBK", got.Meta.Encoding)
	assert.Equal(t, 72, ds.Meta.ValidRows)

	empty := Filter(ds, DayWindow(date(2023, time.January, 1)))
	assert.Equal(t, 0, empty.Meta.ValidRows)
}

func TestFilter_Idempotent(t *testing.T) {
	ds := hourlyDataset(date(2022, time.December, 25), 24*14)
	w, err := MonthWindow(2023, time.January)
	require.NoError(t, err)

	once := Filter(ds, w)
	twice := Filter(once, w)

	assert.Equal(t, once, twice)
	assert.Len(t, once.Records, 24*7)
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	ds := hourlyDataset(date(2022, time.January, 1), 72)
	before := append([]domain.PowerRecord(nil), ds.Records...)

	Filter(ds, DayWindow(date(2022, time.January, 2)))

	assert.Equal(t, before, ds.Records)
}

func TestFilter_Nil(t *testing.T) {
	got := Filter(nil, DayWindow(DomainStart))
	assert.True(t, got.IsEmpty())
}

func TestWindows(t *testing.T) {
	mustMonth := func(y int, m time.Month) domain.TimeWindow {
		w, err := MonthWindow(y, m)
		require.NoError(t, err)
		return w
	}
	mustQuarter := func(y, q int) domain.TimeWindow {
		w, err := QuarterWindow(y, q)
		require.NoError(t, err)
		return w
	}

	tests := []struct {
		name      string
		window    domain.TimeWindow
		wantStart time.Time
		wantEnd   time.Time
		wantGran  domain.Granularity
	}{
		{"leap february", mustMonth(2024, time.February), date(2024, 2, 1), date(2024, 2, 29), domain.GranularityMonth},
		{"month clamped to domain end", mustMonth(2025, time.August), date(2025, 8, 1), date(2025, 8, 31), domain.GranularityMonth},
		{"month past domain end", mustMonth(2025, time.September), date(2025, 9, 1), date(2025, 8, 31), domain.GranularityMonth},
		{"second quarter", mustQuarter(2023, 2), date(2023, 4, 1), date(2023, 6, 30), domain.GranularityQuarter},
		{"quarter clamped", mustQuarter(2025, 3), date(2025, 7, 1), date(2025, 8, 31), domain.GranularityQuarter},
		{"full year", YearWindow(2022), date(2022, 1, 1), date(2022, 12, 31), domain.GranularityYear},
		{"year clamped", YearWindow(2025), date(2025, 1, 1), date(2025, 8, 31), domain.GranularityYear},
		{"day", DayWindow(time.Date(2023, 5, 6, 17, 0, 0, 0, time.UTC)), date(2023, 5, 6), date(2023, 5, 6), domain.GranularityDay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStart, tt.window.Start)
			assert.Equal(t, tt.wantEnd, tt.window.End)
			assert.Equal(t, tt.wantGran, tt.window.Granularity)
		})
	}
}

func TestWindowErrors(t *testing.T) {
	_, err := MonthWindow(2023, 13)
	assert.Equal(t, apperrors.ErrTypeValidation, apperrors.TypeOf(err))

	_, err = QuarterWindow(2023, 0)
	assert.Equal(t, apperrors.ErrTypeValidation, apperrors.TypeOf(err))

	_, err = CustomWindow(date(2023, 2, 1), date(2023, 1, 1))
	assert.Equal(t, apperrors.ErrTypeValidation, apperrors.TypeOf(err))

	_, err = DeriveWindow("weekly", DomainStart, DomainStart)
	assert.Equal(t, apperrors.ErrTypeValidation, apperrors.TypeOf(err))

	_, err = ParseDate("2023/01/01")
	assert.Equal(t, apperrors.ErrTypeValidation, apperrors.TypeOf(err))
}

func TestDeriveWindow(t *testing.T) {
	anchor := date(2024, time.November, 17)

	q, err := DeriveWindow(domain.GranularityQuarter, anchor, anchor)
	require.NoError(t, err)
	assert.Equal(t, "2024-10-01..2024-12-31 (quarter)", q.String())

	c, err := DeriveWindow(domain.GranularityCustom, anchor, date(2024, time.December, 2))
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.December, 2), c.End)

	d, err := DefaultWindow(domain.GranularityMonth)
	require.NoError(t, err)
	assert.Equal(t, "2022-01-01..2022-01-31 (month)", d.String())
}

func TestAvailableOptions(t *testing.T) {
	opts := AvailableOptions(hourlyDataset(date(2024, time.March, 1), 10))

	assert.Equal(t, []int{2022, 2023, 2024, 2025}, opts.Years)
	require.Len(t, opts.Months, 44)
	assert.Equal(t, YearMonth{2022, 1}, opts.Months[0])
	assert.Equal(t, YearMonth{2025, 8}, opts.Months[43])
	require.Len(t, opts.Quarters, 15)
	assert.Equal(t, "2022-Q1", opts.Quarters[0].Label())
	assert.Equal(t, "2025-Q3", opts.Quarters[14].Label())
}

func TestAvailableOptions_Empty(t *testing.T) {
	opts := AvailableOptions(&domain.Dataset{})

	assert.Equal(t, []int{2022, 2023, 2024, 2025}, opts.Years)
	assert.Empty(t, opts.Months)
	assert.Empty(t, opts.Quarters)
}

func TestYearOptions(t *testing.T) {
	ds := hourlyDataset(date(2023, time.December, 31), 48)

	assert.Equal(t, []YearOption{{"2023年", "2023"}, {"2024年", "2024"}}, YearOptions(ds))
	assert.Len(t, YearOptions(nil), 4)
}
