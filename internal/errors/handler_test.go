package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridpulse/internal/shared/testutil"
)

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"encoding failure", NewEncodingError("no candidate decoded the file", nil), http.StatusUnprocessableEntity, TypeEncoding},
		{"format failure", NewFormatError("missing 日"), http.StatusUnprocessableEntity, TypeFormat},
		{"empty dataset", NewEmptyDatasetError(4, 0, 4), http.StatusUnprocessableEntity, TypeEmptyDataset},
		{"wrapped not found", fmt.Errorf("store: %w", NewNotFoundError("dataset abc")), http.StatusNotFound, TypeNotFound},
		{"app validation", NewAppValidationError("start after end"), http.StatusBadRequest, TypeValidation},
		{"network", NewNetworkError("fetch", errors.New("dial tcp")), http.StatusBadGateway, TypeSourceFetch},
		{"api error", ErrRateLimitExceeded, http.StatusTooManyRequests, TypeRateLimit},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			h := NewErrorHandler(logger, false)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/v1/datasets", nil)

			h.HandleError(w, r, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, "/api/v1/datasets", body["instance"])
			assert.NotContains(t, body, "stack")
			assert.True(t, logs.ContainsMessage("request failed"))
		})
	}
}

func TestErrorHandler_HandleError_Nil(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)
	w := httptest.NewRecorder()

	h.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Equal(t, 0, w.Body.Len())
	assert.Equal(t, 0, logs.Count())
}

func TestErrorHandler_AppErrorContextBecomesExtensions(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, true)
	r := httptest.NewRequest(http.MethodPost, "/api/v1/datasets", nil)

	problem := h.ErrorToProblem(NewEmptyDatasetError(7, 0, 7), r)

	assert.Equal(t, "EMPTY_DATASET", problem.Extensions["error_type"])
	assert.Equal(t, 7, problem.Extensions["total_rows"])
	assert.Equal(t, 7, problem.Extensions["skipped_rows"])
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, true)
	w := httptest.NewRecorder()

	h.HandlePanic(w, httptest.NewRequest(http.MethodGet, "/api/v1/datasets/x/chart", nil), "index out of range")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "index out of range", body["panic"])
	assert.NotEmpty(t, body["stack"])
	assert.True(t, logs.ContainsMessage("panic recovered"))
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	h.NotFound(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	h.MethodNotAllowed(w, httptest.NewRequest(http.MethodDelete, "/api/v1/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), "DELETE")
}
