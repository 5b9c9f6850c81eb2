package dataprocessing

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	apperrors "gridpulse/internal/errors"
	"gridpulse/internal/shared/testutil"
	"gridpulse/pkg/contracts/domain"
)

func newTestParser(t *testing.T) (*Parser, *testutil.BufferedSlogHandler) {
	t.Helper()
	logger, logs := testutil.NewTestLogger(t)
	return NewParser(DefaultParserConfig(), nil, logger), logs
}

func TestParseText_RecomputesPriceDifference(t *testing.T) {
	p, _ := newTestParser(t)
	text := "年,月,日,时,现货价格,日前价格\n2022,1,1,0,150,140\n2022,1,1,1,160,150\n"

	ds, err := p.ParseText(text)

	require.NoError(t, err)
	require.Len(t, ds.Records, 2)
	assert.Equal(t, 10.0, ds.Records[0].Difference.Price)
	assert.Equal(t, 10.0, ds.Records[1].Difference.Price)
	assert.Equal(t, "2022-01-01 00:00:00", ds.Records[0].Timestamp)
	assert.Equal(t, "2022-01-01 01:00:00", ds.Records[1].Timestamp)
	assert.Equal(t, domain.ParseMeta{TotalRows: 2, ValidRows: 2}, ds.Meta)
}

func TestParseText_IgnoresPriceDifferenceColumn(t *testing.T) {
	p, _ := newTestParser(t)
	text := "年,月,日,时,现货价格,日前价格,价格差值\n2023,5,6,7,300,120,999\n"

	ds, err := p.ParseText(text)

	require.NoError(t, err)
	assert.Equal(t, 180.0, ds.Records[0].Difference.Price)
}

func TestParseText_RowFiltering(t *testing.T) {
	tests := []struct {
		name        string
		rows        string
		wantValid   int
		wantSkipped int
	}{
		{"empty month", "2022,,1,0,1\n2022,1,1,1,1\n", 1, 1},
		{"non-integer day", "2022,1,x,0,1\n2022,1,1,1,1\n", 1, 1},
		{"hour out of range", "2022,1,1,24,1\n2022,1,1,23,1\n", 1, 1},
		{"month out of range", "2022,13,1,0,1\n2022,12,31,0,1\n", 1, 1},
		{"integral decimal time fields", "2022,1.0,2,3.0,1\n", 1, 0},
		{"fractional hour", "2022,1,1,1.5,1\n2022,1,1,2,1\n", 1, 1},
		{"short row", "2022,1\n2022,1,1,0,1\n", 1, 1},
		{"blank lines ignored", "\n2022,1,1,0,1\n\n,,,,\n", 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestParser(t)

			ds, err := p.ParseText("年,月,日,时,现货价格\n" + tt.rows)

			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, ds.Meta.ValidRows)
			assert.Equal(t, tt.wantSkipped, ds.Meta.SkippedRows)
			assert.Equal(t, ds.Meta.TotalRows, ds.Meta.ValidRows+ds.Meta.SkippedRows)
			assert.Len(t, ds.Records, ds.Meta.ValidRows)
		})
	}
}

func TestParseText_SkippedRowsAreLogged(t *testing.T) {
	p, logs := newTestParser(t)

	_, err := p.ParseText("年,月,日,时\n2022,,1,0\n2022,1,1,0\n")

	require.NoError(t, err)
	assert.True(t, logs.ContainsMessage("row skipped"))
	assert.True(t, logs.ContainsAttr("reason", "missing time field"))
	assert.True(t, logs.ContainsMessage("report parsed"))
}

func TestParseText_Year(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		row      string
		wantYear int
	}{
		{"explicit", "年,月,日,时", "2024,2,29,5", 2024},
		{"english header", "Year,Month,Day,Hour", "2023,2,1,5", 2023},
		{"lowercase header", "year,month,day,hour", "2025,2,1,5", 2025},
		{"below range inferred", "年,月,日,时", "2019,2,1,5", 2022},
		{"above range inferred", "年,月,日,时", "2031,2,1,5", 2022},
		{"blank inferred", "年,月,日,时", ",2,1,5", 2022},
		{"no year column", "月,日,时,现货价格", "2,1,5,100", 2022},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestParser(t)

			ds, err := p.ParseText(tt.header + "\n" + tt.row + "\n")

			require.NoError(t, err)
			assert.Equal(t, tt.wantYear, ds.Records[0].Year)
		})
	}
}

func TestInferYear(t *testing.T) {
	assert.Equal(t, 2022, inferYear(0))
	assert.Equal(t, 2022, inferYear(8759))
	assert.Equal(t, 2023, inferYear(8760))
	assert.Equal(t, 2025, inferYear(3*8760))
	assert.Equal(t, 2025, inferYear(10*8760))
}

func TestParseText_Failures(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		sentinel error
	}{
		{"header with three columns", "月,日,时\n1,1,0\n", apperrors.ErrFormat},
		{"no rows at all", "", apperrors.ErrFormat},
		{"header only", "年,月,日,时\n", apperrors.ErrEmptyDataset},
		{"every row skipped", "年,月,日,时\n2022,,1,0\n2022,1,,0\n", apperrors.ErrEmptyDataset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestParser(t)

			ds, err := p.ParseText(tt.text)

			assert.Nil(t, ds)
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestParseText_ForecastColumns(t *testing.T) {
	p, _ := newTestParser(t)
	text := "年,月,日,时,现货价格,日前价格,价格差值预测(元),日前价格预测\n2022,1,1,0,10,5,1.5,320\n"

	ds, err := p.ParseText(text)

	require.NoError(t, err)
	assert.True(t, ds.Meta.HasForecast)
	assert.Equal(t, []string{"价格差值预测(元)", "日前价格预测"}, ds.Meta.ForecastColumns)
	assert.Equal(t, 1.5, ds.Records[0].Forecast.PriceDifference)
	assert.Equal(t, 320.0, ds.Records[0].Forecast.DayAheadPrice)
	assert.Equal(t, 5.0, ds.Records[0].Price.DayAhead)
}

func TestParseText_ForecastMappingIsConfigurable(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	cfg := DefaultParserConfig()
	cfg.ForecastColumns[domain.MetricForecastDayAheadPrice] = "DA forecast"
	p := NewParser(cfg, nil, logger)

	ds, err := p.ParseText("年,月,日,时,DA forecast\n2022,1,1,0,42\n")

	require.NoError(t, err)
	assert.Equal(t, 42.0, ds.Records[0].Forecast.DayAheadPrice)
	assert.Equal(t, []string{"DA forecast"}, ds.Meta.ForecastColumns)
}

func TestParseText_MetricValues(t *testing.T) {
	p, _ := newTestParser(t)
	text := "年,月,日,时,实际直调负荷,实际抽蓄,火力发电差值\n2022,1,1,0,\"1,234.5\",abc,-7\n"

	ds, err := p.ParseText(text)

	require.NoError(t, err)
	r := ds.Records[0]
	assert.Equal(t, 1234.5, r.Actual.DirectLoad)
	assert.Equal(t, 0.0, r.Actual.PumpedStorage)
	assert.Equal(t, -7.0, r.Difference.Thermal)
	assert.Equal(t, 0.0, r.Actual.Wind)
}

func TestParseText_FullReport(t *testing.T) {
	p, _ := newTestParser(t)
	header := testutil.ReportHeader(true)
	start := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := testutil.HourlyRows(header, start, 48, testutil.ConstantValues("12.5"))

	ds, err := p.ParseText(testutil.ReportCSV(header, rows))

	require.NoError(t, err)
	require.Equal(t, 48, ds.Len())
	last := ds.Records[47]
	assert.Equal(t, "2023-03-02 23:00:00", last.Timestamp)
	assert.Equal(t, 0.0, last.Difference.Price)
	for _, m := range domain.Metrics() {
		if m.Name == domain.MetricPriceDifference {
			continue
		}
		assert.Equal(t, 12.5, m.Value(&last), m.Name)
	}
}

func TestParseFile_GBK(t *testing.T) {
	p, _ := newTestParser(t)
	raw, err := simplifiedchinese.GBK.NewEncoder().String(testutil.SampleReportCSV(5))
	require.NoError(t, err)

	ds, err := p.ParseFile([]byte(raw))

	require.NoError(t, err)
	assert.Equal(t, 5, ds.Len())
	assert.Equal(t, "GBK", ds.Meta.Encoding)
}

func TestParseFile_EncodingFailure(t *testing.T) {
	p, _ := newTestParser(t)

	ds, err := p.ParseFile([]byte(strings.Repeat("\xff\xfe", 10)))

	assert.Nil(t, ds)
	assert.ErrorIs(t, err, apperrors.ErrEncoding)
}

func TestPackageLevelParseText(t *testing.T) {
	ds, err := ParseText(testutil.SampleReportCSV(3))

	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())
}

func TestPackageLevelParseText_ContentChecks(t *testing.T) {
	_, err := ParseText("年,月,日,时,锟斤拷\n2022,1,1,0,5\n")
	assert.ErrorIs(t, err, apperrors.ErrEncoding)

	_, err = ParseText("year,month,day,hour\n2022,1,1,0\n")
	assert.ErrorIs(t, err, apperrors.ErrFormat)
}

func TestParseText_UnterminatedQuoteCountsSwallowedLines(t *testing.T) {
	p, logs := newTestParser(t)
	text := "年,月,日,时,现货价格,日前价格\n" +
		"2022,1,1,0,100,90\n" +
		"2022,1,1,1,\"110,95\n" +
		"2022,1,1,2,120,100\n" +
		"2022,1,1,3,130,105\n"

	ds, err := p.ParseText(text)

	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
	assert.Equal(t, 4, ds.Meta.TotalRows)
	assert.Equal(t, 1, ds.Meta.ValidRows)
	assert.Equal(t, 3, ds.Meta.SkippedRows)
	assert.Equal(t, 100.0, ds.Records[0].Price.Spot)
	assert.True(t, logs.ContainsMessage("unterminated quote"))
}

func TestParseText_UnterminatedQuoteInFirstRow(t *testing.T) {
	p, _ := newTestParser(t)

	_, err := p.ParseText("年,月,日,时,现货价格\n2022,1,1,0,\"100\n2022,1,1,1,110\n")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrEmptyDataset)
}
