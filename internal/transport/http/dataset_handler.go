package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"gridpulse/internal/chart"
	apierrors "gridpulse/internal/errors"
	"gridpulse/internal/middleware"
	"gridpulse/internal/services"
	"gridpulse/pkg/contracts/domain"
)

const (
	uploadField       = "file"
	defaultUploadName = "upload.csv"
	multipartMemory   = 8 << 20
	// room for multipart boundaries and headers on top of the file itself
	multipartOverhead = 64 << 10
)

type datasetCtxKey struct{}

// uploadRequest is validated before an upload is parsed
type uploadRequest struct {
	Name string `json:"name" validate:"required,filename"`
}

// chartResponse adds renderer hints to a view
type chartResponse struct {
	*services.View
	Subtitle string           `json:"subtitle,omitempty"`
	Style    chart.ThemeStyle `json:"style"`
	Metrics  []string         `json:"metrics"`
}

// DatasetHandler serves the dataset API with RFC 7807 errors
type DatasetHandler struct {
	service      DatasetService
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	maxUpload    int64
	logger       *slog.Logger
}

// NewDatasetHandler creates a dataset handler. Uploads larger than maxUpload
// bytes are rejected with 413.
func NewDatasetHandler(service DatasetService, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, maxUpload int64, logger *slog.Logger) *DatasetHandler {
	return &DatasetHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		maxUpload:    maxUpload,
		logger:       logger.With(slog.String("component", "dataset_handler")),
	}
}

// Routes returns the dataset routes. write wraps the routes that upload,
// reload or delete datasets.
func (h *DatasetHandler) Routes(write ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.List)
	r.Get("/source", h.SourceStatus)

	r.Group(func(r chi.Router) {
		r.Use(write...)
		r.With(middleware.BodyLimit(h.maxUpload+multipartOverhead)).Post("/", h.Upload)
		r.Post("/reload", h.Reload)
	})

	r.Route("/{id}", func(r chi.Router) {
		r.Use(h.DatasetCtx)
		r.Get("/", h.Get)
		r.With(write...).Delete("/", h.Delete)
		r.Get("/range", h.Range)
		r.Get("/options", h.Options)
		r.Get("/chart", h.Chart)
		r.Get("/stats", h.Stats)
		r.Get("/validation", h.Validation)
		r.Get("/export", h.Export)
	})

	return r
}

// DatasetCtx loads the dataset named by the id URL parameter into the context
func (h *DatasetHandler) DatasetCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entry, err := h.service.Get(chi.URLParam(r, "id"))
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), datasetCtxKey{}, entry)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func datasetFrom(r *http.Request) *services.StoredDataset {
	entry, _ := r.Context().Value(datasetCtxKey{}).(*services.StoredDataset)
	return entry
}

// List handles GET /api/v1/datasets
func (h *DatasetHandler) List(w http.ResponseWriter, r *http.Request) {
	list := h.service.List()
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   list,
		"count":  len(list),
	})
}

// Upload handles POST /api/v1/datasets. The file is taken from the "file"
// multipart field or, for other content types, from the raw body.
func (h *DatasetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	reqID := chimw.GetReqID(r.Context())

	name, raw, err := h.readUpload(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(uploadRequest{Name: name}); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "dataset upload",
		slog.String("request_id", reqID),
		slog.String("name", name),
		slog.Int("bytes", len(raw)),
		slog.String("client", middleware.APIClient(r.Context())))

	entry, err := h.service.Upload(r.Context(), name, raw)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/datasets/"+entry.ID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   entry,
	})
}

func (h *DatasetHandler) readUpload(r *http.Request) (string, []byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return "", nil, h.bodyError(err)
		}
		file, header, err := r.FormFile(uploadField)
		if err != nil {
			return "", nil, apierrors.ErrValidation(uploadField, "a file is required in the \"file\" form field")
		}
		defer file.Close()

		name := strings.TrimSpace(r.FormValue("name"))
		if name == "" {
			name = filepath.Base(header.Filename)
		}
		raw, err := h.readLimited(file)
		return name, raw, err
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = defaultUploadName
	}
	raw, err := h.readLimited(r.Body)
	return name, raw, err
}

func (h *DatasetHandler) readLimited(src io.Reader) ([]byte, error) {
	if h.maxUpload > 0 {
		src = io.LimitReader(src, h.maxUpload+1)
	}
	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, h.bodyError(err)
	}
	if h.maxUpload > 0 && int64(len(raw)) > h.maxUpload {
		return nil, apierrors.ErrPayloadTooLarge
	}
	if len(raw) == 0 {
		return nil, apierrors.ErrValidation(uploadField, "uploaded file is empty")
	}
	return raw, nil
}

func (h *DatasetHandler) bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apierrors.ErrPayloadTooLarge
	}
	return apierrors.InvalidRequestWithError(err)
}

// Reload handles POST /api/v1/datasets/reload, re-reading the default source
func (h *DatasetHandler) Reload(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.LoadDefault(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, noDefaultSource(err))
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   entry,
	})
}

// SourceStatus handles GET /api/v1/datasets/source
func (h *DatasetHandler) SourceStatus(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.StatDefault(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, noDefaultSource(err))
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   info,
	})
}

func noDefaultSource(err error) error {
	if apierrors.TypeOf(err) == apierrors.ErrTypeConfig {
		return apierrors.New(http.StatusConflict, "NO_DEFAULT_SOURCE", "No default source is configured")
	}
	return err
}

// Get handles GET /api/v1/datasets/{id}
func (h *DatasetHandler) Get(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   datasetFrom(r),
	})
}

// Delete handles DELETE /api/v1/datasets/{id}
func (h *DatasetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	entry := datasetFrom(r)
	if err := h.service.Delete(entry.ID); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "dataset deleted",
		slog.String("request_id", chimw.GetReqID(r.Context())),
		slog.String("dataset_id", entry.ID))
	w.WriteHeader(http.StatusNoContent)
}

// Range handles GET /api/v1/datasets/{id}/range
func (h *DatasetHandler) Range(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Range(datasetFrom(r).ID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   info,
	})
}

// Options handles GET /api/v1/datasets/{id}/options
func (h *DatasetHandler) Options(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Options(datasetFrom(r).ID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   info,
	})
}

// Chart handles GET /api/v1/datasets/{id}/chart. Without a window the first
// day of the domain is shown; without metrics the default selection is.
func (h *DatasetHandler) Chart(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	window, err := q.window()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	metrics := q.metrics()
	view, err := h.service.View(r.Context(), datasetFrom(r).ID, services.ViewRequest{
		Window:  window,
		Metrics: metrics,
		Theme:   q.theme(),
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data": chartResponse{
			View:     view,
			Subtitle: chart.Subtitle(view.Chart),
			Style:    chart.Style(view.Chart.Theme),
			Metrics:  metrics,
		},
	})
}

// Stats handles GET /api/v1/datasets/{id}/stats, over the whole dataset
// unless a window is given
func (h *DatasetHandler) Stats(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	window, err := q.optionalWindow()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	stats, err := h.service.Stats(datasetFrom(r).ID, window)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   stats,
		"window": window,
	})
}

// Validation handles GET /api/v1/datasets/{id}/validation
func (h *DatasetHandler) Validation(w http.ResponseWriter, r *http.Request) {
	entry := datasetFrom(r)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"validation":          entry.Report,
			"forecast_validation": entry.Forecast,
		},
	})
}

// Export handles GET /api/v1/datasets/{id}/export as a UTF-8 CSV or xlsx attachment
func (h *DatasetHandler) Export(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	format, err := services.ParseExportFormat(q.Format)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	window, err := q.optionalWindow()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	entry := datasetFrom(r)
	var buf bytes.Buffer
	if err := h.service.Export(entry.ID, window, format, &buf); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	filename := exportFilename(entry.Name, window, format)
	w.Header().Set("Content-Type", exportContentType(format))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "export write failed",
			slog.String("dataset_id", entry.ID),
			slog.String("error", err.Error()))
	}
}

func (h *DatasetHandler) query(w http.ResponseWriter, r *http.Request) (windowQuery, bool) {
	q := parseWindowQuery(r)
	if err := h.validator.ValidateStruct(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return q, false
	}
	return q, true
}

func exportFilename(name string, window *domain.TimeWindow, format services.ExportFormat) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if stem == "" {
		stem = "dataset"
	}
	if window != nil {
		stem = fmt.Sprintf("%s_%s_%s", stem,
			window.Start.Format(domain.DateLayout), window.End.Format(domain.DateLayout))
	}
	return stem + "." + string(format)
}

func exportContentType(format services.ExportFormat) string {
	if format == services.ExportXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}
