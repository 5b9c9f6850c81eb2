package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridpulse/internal/config"
	"gridpulse/internal/services"
	"gridpulse/internal/shared/testutil"
)

func newHealthHandler(t *testing.T, defaultSource string) *HealthHandler {
	t.Helper()
	logger, _ := testutil.NewQuietTestLogger()
	pipeline, err := services.NewPipeline(config.Default().Pipeline, nil, nil, logger)
	require.NoError(t, err)
	datasets := services.NewDatasetService(services.NewDatasetStore(0), pipeline,
		services.NewSourceFetcher(nil, 0, logger), nil, defaultSource, logger)
	return NewHealthHandler(services.NewHealthService("v1.2.3", "2025-09-01T00:00:00Z", datasets, nil, logger), logger)
}

func TestHealthHandler(t *testing.T) {
	h := newHealthHandler(t, "")

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus string
	}{
		{"health", h.HealthCheck, "ok"},
		{"live", h.LivenessCheck, "alive"},
		{"ready without default source", h.ReadinessCheck, "ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			require.Equal(t, http.StatusOK, rec.Code)

			var status services.HealthStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
			assert.Equal(t, tt.wantStatus, status.Status)
			assert.Equal(t, "v1.2.3", status.Version)
		})
	}
}

func TestHealthHandler_NotReadyIs503(t *testing.T) {
	h := newHealthHandler(t, filepath.Join(t.TempDir(), "power_data.csv"))

	rec := httptest.NewRecorder()
	h.ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status services.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "not_ready", status.Status)
	assert.Equal(t, "default dataset not loaded", status.Services["datasets"].Message)
}

func TestHealthHandler_Version(t *testing.T) {
	h := newHealthHandler(t, "")

	rec := httptest.NewRecorder()
	h.Version(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var info map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "v1.2.3", info["version"])
	assert.Equal(t, "2025-09-01T00:00:00Z", info["build_time"])
}
