package memory

import (
	"context"
	"sort"
	"sync"

	"trade-sim-lab/internal/domain"
	"trade-sim-lab/internal/storage"
)

// ReportStore is an in-memory implementation of storage.ReportStore.
type ReportStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Report // keyed by run_id
}

// NewReportStore creates a new in-memory report store.
func NewReportStore() *ReportStore {
	return &ReportStore{
		data: make(map[string]*domain.Report),
	}
}

// Compile-time interface check.
var _ storage.ReportStore = (*ReportStore)(nil)

// Insert adds a new report. Returns ErrDuplicateKey if run_id exists.
func (s *ReportStore) Insert(_ context.Context, r *domain.Report) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.RunID] = copyReport(r)
	return nil
}

// GetByRunID retrieves a report by run ID. Returns ErrNotFound if not exists.
func (s *ReportStore) GetByRunID(_ context.Context, runID string) (*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copyReport(r), nil
}

// GetAll retrieves all reports, ordered by run_id for determinism.
func (s *ReportStore) GetAll(_ context.Context) ([]*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Report, 0, len(s.data))
	for _, r := range s.data {
		result = append(result, copyReport(r))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RunID < result[j].RunID
	})

	return result, nil
}

// copyReport deep-copies a report including its per-reason maps.
func copyReport(r *domain.Report) *domain.Report {
	copy := *r
	if r.ExpectancyByReason != nil {
		copy.ExpectancyByReason = make(map[string]float64, len(r.ExpectancyByReason))
		for k, v := range r.ExpectancyByReason {
			copy.ExpectancyByReason[k] = v
		}
	}
	if r.CountByReason != nil {
		copy.CountByReason = make(map[string]int, len(r.CountByReason))
		for k, v := range r.CountByReason {
			copy.CountByReason[k] = v
		}
	}
	return &copy
}
