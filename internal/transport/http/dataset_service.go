package http

import (
	"context"
	"io"

	"gridpulse/internal/dataprocessing"
	"gridpulse/internal/services"
	"gridpulse/pkg/contracts/domain"
)

// DatasetService is the dataset operations the HTTP layer exposes
type DatasetService interface {
	Upload(ctx context.Context, name string, raw []byte) (*services.StoredDataset, error)
	LoadDefault(ctx context.Context) (*services.StoredDataset, error)
	StatDefault(ctx context.Context) (services.SourceInfo, error)

	Get(id string) (*services.StoredDataset, error)
	List() []services.DatasetSummary
	Delete(id string) error

	Range(id string) (*services.RangeInfo, error)
	Options(id string) (*services.OptionsInfo, error)
	View(ctx context.Context, id string, req services.ViewRequest) (*services.View, error)
	Stats(id string, window *domain.TimeWindow) (*dataprocessing.DatasetStats, error)
	Export(id string, window *domain.TimeWindow, format services.ExportFormat, out io.Writer) error
}
