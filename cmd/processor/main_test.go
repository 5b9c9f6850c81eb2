package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridpulse/internal/config"
	apperrors "gridpulse/internal/errors"
	"gridpulse/internal/shared/testutil"
	"gridpulse/pkg/contracts/domain"
)

func quietLogger() *slog.Logger {
	logger, _ := testutil.NewQuietTestLogger()
	return logger
}

// testConfig roots every path in a temp dir and writes a 48-hour report there.
func testConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ExecutableDir = dir
	cfg.Source.DefaultLocation = ""

	input := filepath.Join(dir, "power_data.csv")
	require.NoError(t, os.WriteFile(input, []byte(testutil.SampleReportCSV(48)), 0644))
	return cfg, input
}

func TestParseFlags(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		opts, err := parseFlags(nil, io.Discard)
		require.NoError(t, err)
		assert.Empty(t, opts.input)
		assert.Equal(t, "light", opts.theme)
		assert.Empty(t, opts.metrics)
		assert.False(t, opts.jsonOut)
	})

	t.Run("positional input and metric list", func(t *testing.T) {
		opts, err := parseFlags([]string{"-metrics", "实际风电总加, 实际光伏总加,", "-export", "xlsx", "report.csv"}, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, "report.csv", opts.input)
		assert.Equal(t, []string{"实际风电总加", "实际光伏总加"}, opts.metrics)
		assert.Equal(t, "xlsx", opts.export)
	})

	tests := []struct {
		name string
		args []string
	}{
		{"invalid theme", []string{"-theme", "neon"}},
		{"invalid export format", []string{"-export", "pdf"}},
		{"input twice", []string{"-in", "a.csv", "b.csv"}},
		{"unknown flag", []string{"-bogus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args, io.Discard)
			assert.Error(t, err)
		})
	}
}

func TestOptionsWindow(t *testing.T) {
	date := func(s string) time.Time {
		d, err := time.Parse(domain.DateLayout, s)
		require.NoError(t, err)
		return d
	}

	tests := []struct {
		name    string
		opts    options
		want    *domain.TimeWindow
		wantErr bool
	}{
		{name: "no window", opts: options{}},
		{
			name: "month containing start",
			opts: options{granularity: "month", start: "2022-03-15"},
			want: &domain.TimeWindow{Start: date("2022-03-01"), End: date("2022-03-31"), Granularity: domain.GranularityMonth},
		},
		{
			name: "start alone is one day",
			opts: options{start: "2022-02-10"},
			want: &domain.TimeWindow{Start: date("2022-02-10"), End: date("2022-02-10"), Granularity: domain.GranularityDay},
		},
		{
			name: "start and end imply custom",
			opts: options{start: "2022-01-01", end: "2022-01-05"},
			want: &domain.TimeWindow{Start: date("2022-01-01"), End: date("2022-01-05"), Granularity: domain.GranularityCustom},
		},
		{
			name: "granularity alone uses default period",
			opts: options{granularity: "year"},
			want: &domain.TimeWindow{Start: date("2022-01-01"), End: date("2022-12-31"), Granularity: domain.GranularityYear},
		},
		{name: "bad date", opts: options{start: "2022/01/01"}, wantErr: true},
		{name: "bad granularity", opts: options{granularity: "week"}, wantErr: true},
		{name: "end before start", opts: options{start: "2022-02-01", end: "2022-01-01"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.opts.window()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, apperrors.ErrTypeValidation, apperrors.TypeOf(err))
				return
			}
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Start.Equal(got.Start), "start %s", got.Start)
			assert.True(t, tt.want.End.Equal(got.End), "end %s", got.End)
			assert.Equal(t, tt.want.Granularity, got.Granularity)
		})
	}
}

func TestRun_JSONSummary(t *testing.T) {
	cfg, input := testConfig(t)
	var out bytes.Buffer

	err := run(context.Background(), cfg, &options{input: input, jsonOut: true, theme: "light"}, &out, quietLogger())
	require.NoError(t, err)

	var got summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, input, got.Source)
	assert.Equal(t, 48, got.Meta.ValidRows)
	assert.Equal(t, "UTF-8", got.Meta.Encoding)
	assert.Equal(t, 48, got.Records)
	assert.Equal(t, 48, got.Stats.TotalRecords)
	assert.Nil(t, got.Window)
	assert.Empty(t, got.Exported)
}

func TestRun_TextSummary(t *testing.T) {
	cfg, input := testConfig(t)
	var out bytes.Buffer

	err := run(context.Background(), cfg, &options{input: input, start: "2022-01-02", theme: "light"}, &out, quietLogger())
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Rows:")
	assert.Contains(t, text, "48 total, 48 valid, 0 skipped")
	assert.Contains(t, text, "Records:")
	assert.Contains(t, text, "2022-01-02..2022-01-02 (day)")
	assert.Contains(t, text, "实际直调负荷")
}

func TestRun_ExportWindowedCSV(t *testing.T) {
	cfg, input := testConfig(t)
	var out bytes.Buffer

	opts := &options{input: input, granularity: "day", start: "2022-01-02", export: "csv", exportName: "day.csv", jsonOut: true, theme: "light"}
	require.NoError(t, run(context.Background(), cfg, opts, &out, quietLogger()))

	var got summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, 24, got.Records)

	want := filepath.Join(cfg.Paths.ExecutableDir, config.DefaultExportsDir, "day.csv")
	assert.Equal(t, want, got.Exported)

	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))
	assert.Equal(t, 25, bytes.Count(data, []byte("\n")))
}

func TestRun_ExportWorkbookTimestamped(t *testing.T) {
	cfg, input := testConfig(t)
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), cfg, &options{input: input, export: "xlsx", jsonOut: true, theme: "light"}, &out, quietLogger()))

	var got summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, ".xlsx", filepath.Ext(got.Exported))
	assert.Contains(t, filepath.Base(got.Exported), "power_")
	assert.FileExists(t, got.Exported)
}

func TestRun_ChartToStdout(t *testing.T) {
	cfg, input := testConfig(t)
	var out bytes.Buffer

	opts := &options{input: input, chartOut: "-", theme: "dark"}
	require.NoError(t, run(context.Background(), cfg, opts, &out, quietLogger()))

	var payload struct {
		Records  int               `json:"records"`
		Chart    domain.ChartModel `json:"chart"`
		Subtitle string            `json:"subtitle"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &payload))
	assert.Equal(t, 24, payload.Records)
	assert.Len(t, payload.Chart.XAxis, 24)
	assert.Equal(t, domain.Theme("dark"), payload.Chart.Theme)
	assert.NotEmpty(t, payload.Chart.Series)
}

func TestRun_ChartToFile(t *testing.T) {
	cfg, input := testConfig(t)
	chartPath := filepath.Join(t.TempDir(), "chart.json")
	var out bytes.Buffer

	opts := &options{input: input, chartOut: chartPath, metrics: []string{"实际风电总加"}, theme: "light"}
	require.NoError(t, run(context.Background(), cfg, opts, &out, quietLogger()))

	data, err := os.ReadFile(chartPath)
	require.NoError(t, err)
	var payload struct {
		Chart domain.ChartModel `json:"chart"`
	}
	require.NoError(t, json.Unmarshal(data, &payload))
	require.Len(t, payload.Chart.Series, 1)
	assert.Contains(t, out.String(), "Rows:")
}

func TestRun_Errors(t *testing.T) {
	t.Run("no input and no default source", func(t *testing.T) {
		cfg, _ := testConfig(t)
		err := run(context.Background(), cfg, &options{theme: "light"}, io.Discard, quietLogger())
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrTypeConfig, apperrors.TypeOf(err))
	})

	t.Run("missing file", func(t *testing.T) {
		cfg, _ := testConfig(t)
		missing := filepath.Join(cfg.Paths.ExecutableDir, "absent.csv")
		err := run(context.Background(), cfg, &options{input: missing, theme: "light"}, io.Discard, quietLogger())
		assert.Error(t, err)
	})

	t.Run("malformed header", func(t *testing.T) {
		cfg, _ := testConfig(t)
		bad := filepath.Join(cfg.Paths.ExecutableDir, "bad.csv")
		require.NoError(t, os.WriteFile(bad, []byte("a,b,c\n1,2,3\n"), 0644))
		err := run(context.Background(), cfg, &options{input: bad, theme: "light"}, io.Discard, quietLogger())
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrTypeFormat, apperrors.TypeOf(err))
	})

	t.Run("default source resolves against executable dir", func(t *testing.T) {
		cfg, _ := testConfig(t)
		cfg.Source.DefaultLocation = "power_data.csv"
		var out bytes.Buffer
		require.NoError(t, run(context.Background(), cfg, &options{jsonOut: true, theme: "light"}, &out, quietLogger()))
		assert.Contains(t, out.String(), `"valid_rows": 48`)
	})
}

func TestRun_DirectoryInputUsesLatestReport(t *testing.T) {
	cfg, _ := testConfig(t)
	dir := filepath.Join(cfg.Paths.ExecutableDir, "reports")
	require.NoError(t, os.MkdirAll(dir, 0755))

	older := filepath.Join(dir, "older.csv")
	newer := filepath.Join(dir, "newer.csv")
	require.NoError(t, os.WriteFile(older, []byte(testutil.SampleReportCSV(24)), 0644))
	require.NoError(t, os.WriteFile(newer, []byte(testutil.SampleReportCSV(72)), 0644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &options{input: dir, jsonOut: true, theme: "light"}, &out, quietLogger()))

	var got summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, newer, got.Source)
	assert.Equal(t, 72, got.Meta.ValidRows)
}

func TestRealMain_ExitCodes(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, 0, realMain([]string{"-h"}, io.Discard, &stderr))
	assert.Contains(t, stderr.String(), "-granularity")

	assert.Equal(t, 2, realMain([]string{"-theme", "neon"}, io.Discard, io.Discard))
}
