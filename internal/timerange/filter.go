package timerange

import (
	"gridpulse/pkg/contracts/domain"
)

// Filter returns a new dataset holding the records whose calendar date lies
// within [w.Start, w.End], comparing dates only. ValidRows counts the kept
// records; TotalRows, SkippedRows and the encoding still describe the source
// parse. A window that misses every record yields an empty dataset, not an
// error.
func Filter(ds *domain.Dataset, w domain.TimeWindow) *domain.Dataset {
	out := &domain.Dataset{Records: []domain.PowerRecord{}}
	if ds == nil {
		return out
	}
	out.Meta = ds.Meta
	if len(ds.Meta.ForecastColumns) > 0 {
		out.Meta.ForecastColumns = append([]string(nil), ds.Meta.ForecastColumns...)
	}

	start, end := dateOf(w.Start), dateOf(w.End)
	for i := range ds.Records {
		d := ds.Records[i].Date()
		if d.Before(start) || d.After(end) {
			continue
		}
		out.Records = append(out.Records, ds.Records[i])
	}
	out.Meta.ValidRows = len(out.Records)
	return out
}
