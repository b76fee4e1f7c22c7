package storage

import (
	"fmt"

	"github.com/esk1llz/ML-log-analysis/internal/config"
)

// New selects a ReportStore implementation from configuration.
func New(cfg config.StorageConfig) (ReportStore, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
