package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"gridpulse/internal/config"
	apperrors "gridpulse/internal/errors"
	"gridpulse/internal/exporter"
	"gridpulse/internal/timerange"
	"gridpulse/pkg/contracts/domain"
)

func TestPipeline_IngestGBK(t *testing.T) {
	f := newPipelineFixture(t)
	raw := gbkBytes(t, hoursCSV(time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), 48, "120.5"))

	res, err := f.pipeline.Ingest(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "GBK", res.Dataset.Meta.Encoding)
	assert.Equal(t, 48, res.Dataset.Len())
	assert.True(t, res.Report.IsValid)
	assert.Equal(t, "2023-03-01 00:00:00", res.Dataset.Records[0].Timestamp)

	assert.Equal(t, []string{"pipeline.resolve_encoding", "pipeline.parse", "pipeline.validate", "pipeline.ingest"}, f.spanNames())
	assert.Equal(t, int64(48), f.counterValue(t, "gridpulse_rows_parsed_total"))
	assert.Equal(t, int64(1), f.counterValue(t, "gridpulse_datasets_loaded_total"))
}

func TestPipeline_IngestReportsAnomalies(t *testing.T) {
	f := newPipelineFixture(t)
	raw := []byte(hoursCSV(time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), 3, "200000"))

	res, err := f.pipeline.Ingest(context.Background(), raw)
	require.NoError(t, err)

	assert.False(t, res.Report.IsValid)
	assert.Positive(t, res.Report.Total)
	assert.Equal(t, int64(res.Report.Total+res.Forecast.Total), f.counterValue(t, "gridpulse_anomalies_total"))
}

func TestPipeline_IngestFailures(t *testing.T) {
	tests := []struct {
		name    string
		raw     []byte
		wantErr error
	}{
		{name: "empty input", raw: nil, wantErr: apperrors.ErrEncoding},
		{name: "no header tokens", raw: []byte("a,b,c,d\n1,2,3,4\n"), wantErr: apperrors.ErrEncoding},
		{name: "header only", raw: []byte("年,月,日,时,现货价格\n"), wantErr: apperrors.ErrEmptyDataset},
		{name: "every row lacks time fields", raw: []byte("年,月,日,时,现货价格\n2023,,1,0,5\n2023,1,,0,5\n"), wantErr: apperrors.ErrEmptyDataset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture(t)
			res, err := f.pipeline.Ingest(context.Background(), tt.raw)

			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Equal(t, int64(1), f.counterValue(t, "gridpulse_datasets_loaded_total"))
		})
	}
}

func TestPipeline_IngestWorkbook(t *testing.T) {
	f := newPipelineFixture(t)
	src, err := f.pipeline.Ingest(context.Background(), []byte(hoursCSV(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 5, "7")))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, exporter.WriteDatasetWorkbook(&buf, src.Dataset))
	f.spans.Reset()

	res, err := f.pipeline.Ingest(context.Background(), buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "XLSX", res.Dataset.Meta.Encoding)
	assert.Equal(t, 5, res.Dataset.Len())
	assert.NotContains(t, f.spanNames(), "pipeline.resolve_encoding")
}

func TestPipeline_IngestWorkbookRejectsMojibake(t *testing.T) {
	f := newPipelineFixture(t)

	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	require.NoError(t, wb.SetSheetRow(sheet, "A1", &[]interface{}{"年", "Month", "Day", "Hour", "锟斤拷"}))
	require.NoError(t, wb.SetSheetRow(sheet, "A2", &[]interface{}{2022, 1, 1, 0, 5}))
	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, wb.Close())

	res, err := f.pipeline.Ingest(context.Background(), buf.Bytes())

	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperrors.ErrEncoding)
}

func TestPipeline_View(t *testing.T) {
	f := newPipelineFixture(t)
	res, err := f.pipeline.Ingest(context.Background(),
		[]byte(hoursCSV(time.Date(2023, 1, 30, 0, 0, 0, 0, time.UTC), 24*5, "50")))
	require.NoError(t, err)
	f.spans.Reset()

	window, err := timerange.MonthWindow(2023, time.February)
	require.NoError(t, err)

	view := f.pipeline.View(context.Background(), res.Dataset, ViewRequest{
		Window:  window,
		Metrics: []string{domain.MetricSpotPrice, domain.MetricActualDirectLoad},
		Theme:   domain.ThemeDark,
	})

	assert.Equal(t, 72, view.Records)
	assert.Equal(t, 72, view.Chart.Points())
	assert.True(t, view.Chart.DualAxis)
	assert.Equal(t, domain.ThemeDark, view.Chart.Theme)
	assert.Equal(t, "02-01 00:00", view.Chart.XAxis[0])
	assert.Equal(t, []string{"pipeline.filter", "pipeline.build_series", "pipeline.view"}, f.spanNames())
}

func TestPipeline_ViewEmptyWindow(t *testing.T) {
	f := newPipelineFixture(t)
	res, err := f.pipeline.Ingest(context.Background(),
		[]byte(hoursCSV(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 24, "50")))
	require.NoError(t, err)

	view := f.pipeline.View(context.Background(), res.Dataset, ViewRequest{
		Window:  timerange.YearWindow(2025),
		Metrics: []string{domain.MetricSpotPrice},
	})

	assert.Zero(t, view.Records)
	assert.Empty(t, view.Chart.XAxis)
	assert.Equal(t, "电力数据可视化", view.Chart.Title)
}

func TestNewPipeline_RejectsUnknownEncoding(t *testing.T) {
	cfg := config.Default().Pipeline
	cfg.EncodingCandidates = []string{"utf-8", "not-an-encoding"}

	_, err := NewPipeline(cfg, nil, nil, nil)
	assert.Error(t, err)
}

func TestPipeline_Candidates(t *testing.T) {
	cfg := config.Default().Pipeline
	cfg.EncodingCandidates = []string{"gb18030", "utf-8"}

	p, err := NewPipeline(cfg, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"GB18030", "UTF-8"}, p.Candidates())
}
