package http

import (
	"net/http"
	"net/url"
	"strings"

	"gridpulse/internal/chart"
	apperrors "gridpulse/internal/errors"
	"gridpulse/internal/timerange"
	"gridpulse/pkg/contracts/domain"
)

// windowQuery is the window and presentation selection shared by the
// chart, stats and export endpoints
type windowQuery struct {
	Granularity string   `json:"granularity" validate:"omitempty,granularity"`
	Start       string   `json:"start" validate:"omitempty,isodate"`
	End         string   `json:"end" validate:"omitempty,isodate"`
	Metrics     []string `json:"metrics" validate:"dive,metric"`
	Theme       string   `json:"theme" validate:"omitempty,oneof=light dark"`
	Format      string   `json:"format" validate:"omitempty,oneof=csv xlsx"`
}

func parseWindowQuery(r *http.Request) windowQuery {
	q := r.URL.Query()
	return windowQuery{
		Granularity: strings.TrimSpace(q.Get("granularity")),
		Start:       strings.TrimSpace(q.Get("start")),
		End:         strings.TrimSpace(q.Get("end")),
		Metrics:     splitList(q, "metrics"),
		Theme:       strings.TrimSpace(q.Get("theme")),
		Format:      strings.TrimSpace(q.Get("format")),
	}
}

// splitList accepts both repeated parameters and comma-separated values
func splitList(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (q windowQuery) empty() bool {
	return q.Granularity == "" && q.Start == "" && q.End == ""
}

// window resolves the selection. Without a start date the default period
// of the granularity is used; a custom window without an end covers one day.
func (q windowQuery) window() (domain.TimeWindow, error) {
	g := domain.GranularityDay
	if q.Granularity != "" || q.Start != "" {
		parsed, err := domain.ParseGranularity(q.Granularity)
		if err != nil {
			return domain.TimeWindow{}, apperrors.NewAppValidationError(err.Error())
		}
		g = parsed
	}
	if q.Start == "" {
		return timerange.DefaultWindow(g)
	}

	anchor, err := timerange.ParseDate(q.Start)
	if err != nil {
		return domain.TimeWindow{}, err
	}
	end := anchor
	if q.End != "" {
		if end, err = timerange.ParseDate(q.End); err != nil {
			return domain.TimeWindow{}, err
		}
	}
	return timerange.DeriveWindow(g, anchor, end)
}

// optionalWindow is nil when no window was requested
func (q windowQuery) optionalWindow() (*domain.TimeWindow, error) {
	if q.empty() {
		return nil, nil
	}
	w, err := q.window()
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (q windowQuery) theme() domain.Theme {
	theme, _ := chart.ParseTheme(q.Theme)
	return theme
}

func (q windowQuery) metrics() []string {
	if len(q.Metrics) == 0 {
		return domain.DefaultSelection()
	}
	return q.Metrics
}
