package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gridpulse/internal/errors"
	"gridpulse/internal/shared/testutil"
)

func newTestFetcher(t *testing.T, maxBytes int64) *SourceFetcher {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return NewSourceFetcher(&http.Client{Timeout: 5 * time.Second}, maxBytes, logger)
}

func TestIsRemote(t *testing.T) {
	tests := []struct {
		location string
		want     bool
	}{
		{"http://example.com/power.csv", true},
		{"https://example.com/power.csv", true},
		{"data/power_data.csv", false},
		{"/abs/path/power.csv", false},
		{"ftp://example.com/power.csv", false},
		{`C:\data\power.csv`, false},
	}
	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRemote(tt.location))
		})
	}
}

func TestSourceFetcher_FetchLocal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "power.csv")
	content := testutil.SampleReportCSV(3)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	f := newTestFetcher(t, 1<<20)
	raw, err := f.Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, content, string(raw))
}

func TestSourceFetcher_FetchLocalErrors(t *testing.T) {
	dir := t.TempDir()
	big := filepath.Join(dir, "big.csv")
	require.NoError(t, os.WriteFile(big, []byte(strings.Repeat("x", 64)), 0o644))

	f := newTestFetcher(t, 16)

	_, err := f.Fetch(context.Background(), filepath.Join(dir, "missing.csv"))
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "got %v", err)

	_, err = f.Fetch(context.Background(), big)
	assert.Equal(t, apperrors.ErrTypeValidation, apperrors.TypeOf(err), "got %v", err)

	_, err = f.Fetch(context.Background(), "  ")
	assert.Equal(t, apperrors.ErrTypeValidation, apperrors.TypeOf(err), "got %v", err)
}

func TestSourceFetcher_FetchLocalUnreadableIsTyped(t *testing.T) {
	dir := t.TempDir()
	notDir := filepath.Join(dir, "power.csv")
	require.NoError(t, os.WriteFile(notDir, []byte(testutil.SampleReportCSV(1)), 0o644))

	f := newTestFetcher(t, 1<<20)
	_, err := f.Fetch(context.Background(), filepath.Join(notDir, "nested.csv"))

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeNetwork, apperrors.TypeOf(err), "got %v", err)

	logger, _ := testutil.NewTestLogger(t)
	problem := apperrors.NewErrorHandler(logger, false).
		ErrorToProblem(err, httptest.NewRequest(http.MethodPost, "/api/v1/datasets/reload", nil))
	assert.Equal(t, http.StatusBadGateway, problem.Status)
	assert.Equal(t, apperrors.TypeSourceFetch, problem.Type)
}

func TestSourceFetcher_FetchRemote(t *testing.T) {
	body := testutil.SampleReportCSV(2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/power.csv":
			w.Header().Set("Last-Modified", "Wed, 01 Oct 2025 08:00:00 GMT")
			_, _ = w.Write([]byte(body))
		case "/broken.csv":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := newTestFetcher(t, 1<<20)

	t.Run("ok", func(t *testing.T) {
		raw, err := f.Fetch(context.Background(), srv.URL+"/power.csv")
		require.NoError(t, err)
		assert.Equal(t, body, string(raw))
	})

	t.Run("not found", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), srv.URL+"/missing.csv")
		assert.True(t, errors.Is(err, apperrors.ErrNotFound), "got %v", err)
	})

	t.Run("server error", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), srv.URL+"/broken.csv")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrTypeNetwork, apperrors.TypeOf(err))

		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, http.StatusInternalServerError, appErr.Context["status_code"])
	})

	t.Run("too large", func(t *testing.T) {
		small := newTestFetcher(t, 8)
		_, err := small.Fetch(context.Background(), srv.URL+"/power.csv")
		assert.Equal(t, apperrors.ErrTypeValidation, apperrors.TypeOf(err), "got %v", err)
	})

	t.Run("stat", func(t *testing.T) {
		info, err := f.Stat(context.Background(), srv.URL+"/power.csv")
		require.NoError(t, err)
		assert.True(t, info.Remote)
		assert.True(t, info.Exists)
		assert.Equal(t, time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC), info.Modified)

		info, err = f.Stat(context.Background(), srv.URL+"/missing.csv")
		require.NoError(t, err)
		assert.False(t, info.Exists)
	})
}

func TestSourceFetcher_StatLocal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "power.csv")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	f := newTestFetcher(t, 0)

	info, err := f.Stat(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, info.Remote)
	assert.True(t, info.Exists)
	assert.Equal(t, int64(3), info.Size)

	info, err = f.Stat(context.Background(), filepath.Join(dir, "missing.csv"))
	require.NoError(t, err)
	assert.False(t, info.Exists)
}

func TestSourceFetcher_FetchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newTestFetcher(t, 0)
	_, err := f.Fetch(ctx, "data/power_data.csv")
	assert.ErrorIs(t, err, context.Canceled)
}
