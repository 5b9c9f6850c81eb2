package services

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "gridpulse/internal/errors"
	"gridpulse/internal/validation"
	"gridpulse/pkg/contracts/domain"
)

// DefaultDatasetID names the dataset loaded from the configured default source.
const DefaultDatasetID = "default"

// StoredDataset is one parsed dataset and everything derived from it at ingest time.
// Entries are immutable; a re-parse stores a new entry under the same ID.
type StoredDataset struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Source   string            `json:"source"`
	LoadedAt time.Time         `json:"loaded_at"`
	Meta     domain.ParseMeta  `json:"meta"`
	Report   validation.Report `json:"validation"`
	Forecast validation.Report `json:"forecast_validation"`

	Dataset *domain.Dataset `json:"-"`
}

// DatasetSummary is the listing view of a stored dataset
type DatasetSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	LoadedAt  time.Time `json:"loaded_at"`
	ValidRows int       `json:"valid_rows"`
	Encoding  string    `json:"encoding"`
	IsValid   bool      `json:"is_valid"`
}

// DatasetStore keeps datasets in memory. Writers replace whole entries under
// the lock; readers get the entry pointer and never observe partial updates.
type DatasetStore struct {
	mu      sync.RWMutex
	entries map[string]*StoredDataset
	limit   int
}

// NewDatasetStore creates a store holding at most limit datasets (0 = unbounded).
// When full, the oldest upload is evicted; the default dataset is never evicted.
func NewDatasetStore(limit int) *DatasetStore {
	return &DatasetStore{entries: make(map[string]*StoredDataset), limit: limit}
}

// Add stores a new dataset under a fresh ID
func (s *DatasetStore) Add(name, source string, res *IngestResult) *StoredDataset {
	return s.Put(uuid.NewString(), name, source, res)
}

// Put stores res under id, replacing any previous entry wholesale
func (s *DatasetStore) Put(id, name, source string, res *IngestResult) *StoredDataset {
	entry := &StoredDataset{
		ID:       id,
		Name:     name,
		Source:   source,
		LoadedAt: time.Now().UTC(),
		Meta:     res.Dataset.Meta,
		Report:   res.Report,
		Forecast: res.Forecast,
		Dataset:  res.Dataset,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = entry
	s.evictLocked()
	return entry
}

func (s *DatasetStore) evictLocked() {
	if s.limit <= 0 {
		return
	}
	for len(s.entries) > s.limit {
		var oldest *StoredDataset
		for _, e := range s.entries {
			if e.ID == DefaultDatasetID {
				continue
			}
			if oldest == nil || e.LoadedAt.Before(oldest.LoadedAt) {
				oldest = e
			}
		}
		if oldest == nil {
			return
		}
		delete(s.entries, oldest.ID)
	}
}

// Get returns the dataset stored under id
func (s *DatasetStore) Get(id string) (*StoredDataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("dataset " + id)
	}
	return entry, nil
}

// Delete removes the dataset stored under id
func (s *DatasetStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return apperrors.NewNotFoundError("dataset " + id)
	}
	delete(s.entries, id)
	return nil
}

// List returns summaries ordered by load time, newest first
func (s *DatasetStore) List() []DatasetSummary {
	s.mu.RLock()
	out := make([]DatasetSummary, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, DatasetSummary{
			ID:        e.ID,
			Name:      e.Name,
			Source:    e.Source,
			LoadedAt:  e.LoadedAt,
			ValidRows: e.Meta.ValidRows,
			Encoding:  e.Meta.Encoding,
			IsValid:   e.Report.IsValid,
		})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].LoadedAt.Equal(out[j].LoadedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].LoadedAt.After(out[j].LoadedAt)
	})
	return out
}

// Len returns the number of stored datasets
func (s *DatasetStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
