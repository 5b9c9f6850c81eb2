package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticClients int

func (c staticClients) ClientCount() int { return int(c) }

func TestHealthService_Liveness(t *testing.T) {
	hs := NewHealthService("1.2.3", "", nil, nil, nil)

	status := hs.LivenessCheck(context.Background())
	assert.Equal(t, "alive", status.Status)
	assert.Equal(t, "1.2.3", status.Version)
	assert.Contains(t, status.Runtime, "goroutines")

	assert.Equal(t, "ok", hs.HealthCheck(context.Background()).Status)
}

func TestHealthService_Readiness(t *testing.T) {
	t.Run("no dataset service", func(t *testing.T) {
		hs := NewHealthService("1.0.0", "", nil, nil, nil)
		status := hs.ReadinessCheck(context.Background())
		assert.Equal(t, "not_ready", status.Status)
	})

	t.Run("default source not loaded yet", func(t *testing.T) {
		f := newServiceFixture(t)
		hs := NewHealthService("1.0.0", "", f.svc, staticClients(2), nil)

		status := hs.ReadinessCheck(context.Background())
		assert.Equal(t, "not_ready", status.Status)
		assert.Equal(t, "default dataset not loaded", status.Services["datasets"].Message)
		assert.Equal(t, "2 clients connected", status.Services["websocket"].Message)
	})

	t.Run("default source loaded", func(t *testing.T) {
		f := newServiceFixture(t)
		f.writeSource(t, []byte(hoursCSV(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 24, "10")))
		_, err := f.svc.LoadDefault(context.Background())
		require.NoError(t, err)

		hs := NewHealthService("1.0.0", "", f.svc, nil, nil)
		status := hs.ReadinessCheck(context.Background())
		assert.Equal(t, "ready", status.Status)
		assert.Equal(t, "realtime updates disabled", status.Services["websocket"].Message)
	})
}

func TestHealthService_Version(t *testing.T) {
	hs := NewHealthService("1.0.0", "2025-10-01T00:00:00Z", nil, nil, nil)
	v := hs.Version()
	assert.Equal(t, "1.0.0", v["version"])
	assert.Equal(t, "2025-10-01T00:00:00Z", v["build_time"])

	assert.NotContains(t, NewHealthService("1.0.0", "", nil, nil, nil).Version(), "build_time")
}
