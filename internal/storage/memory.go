package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/esk1llz/ML-log-analysis/internal/models"
)

// MemoryStore keeps reports in a map. Suitable for tests and throwaway
// local runs; everything is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]models.OutlierReport
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]models.OutlierReport)}
}

func (s *MemoryStore) SaveReport(_ context.Context, report models.OutlierReport) error {
	s.mu.Lock()
	s.reports[report.Date] = report
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) GetReport(_ context.Context, date string) (models.OutlierReport, error) {
	s.mu.RLock()
	report, ok := s.reports[date]
	s.mu.RUnlock()
	if !ok {
		return models.OutlierReport{}, ErrNotFound
	}
	return report, nil
}

func (s *MemoryStore) ListReports(_ context.Context, limit int) ([]models.OutlierReport, error) {
	s.mu.RLock()
	out := make([]models.OutlierReport, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, r)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
