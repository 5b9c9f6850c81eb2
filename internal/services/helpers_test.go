package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/text/encoding/simplifiedchinese"

	"gridpulse/internal/config"
	"gridpulse/internal/shared/testutil"
	"gridpulse/pkg/contracts/events"
)

type pipelineFixture struct {
	pipeline *Pipeline
	spans    *tracetest.InMemoryExporter
	reader   *sdkmetric.ManualReader
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	spans := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(spans))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	metrics, err := NewPipelineMetrics(mp.Meter("test"))
	require.NoError(t, err)

	logger, _ := testutil.NewTestLogger(t)
	p, err := NewPipeline(config.Default().Pipeline, tp.Tracer("test"), metrics, logger)
	require.NoError(t, err)

	return &pipelineFixture{pipeline: p, spans: spans, reader: reader}
}

func (f *pipelineFixture) spanNames() []string {
	var names []string
	for _, s := range f.spans.GetSpans() {
		names = append(names, s.Name)
	}
	return names
}

// counterValue sums an Int64 counter across attribute sets
func (f *pipelineFixture) counterValue(t *testing.T, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, f.reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func gbkBytes(t *testing.T, s string) []byte {
	t.Helper()
	out, err := simplifiedchinese.GBK.NewEncoder().String(s)
	require.NoError(t, err)
	return []byte(out)
}

// hoursCSV is a report of n hours from start with every metric set to v
func hoursCSV(start time.Time, n int, v string) string {
	header := testutil.ReportHeader(false)
	return testutil.ReportCSV(header, testutil.HourlyRows(header, start, n, testutil.ConstantValues(v)))
}

type recordedEvent struct {
	Type    string
	Payload events.DatasetEvent
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) Publish(eventType string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ev, _ := payload.(events.DatasetEvent)
	p.events = append(p.events, recordedEvent{Type: eventType, Payload: ev})
}

func (p *fakePublisher) all() []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedEvent(nil), p.events...)
}
