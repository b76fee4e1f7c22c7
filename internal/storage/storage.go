package storage

import (
	"context"
	"errors"

	"github.com/esk1llz/ML-log-analysis/internal/models"
)

// ErrNotFound signals that no report exists for the requested date.
var ErrNotFound = errors.New("report not found")

// ReportStore persists daily outlier reports.
type ReportStore interface {
	// SaveReport stores or replaces the report for its date.
	SaveReport(ctx context.Context, report models.OutlierReport) error
	// GetReport returns the report for a date or ErrNotFound.
	GetReport(ctx context.Context, date string) (models.OutlierReport, error)
	// ListReports returns up to limit reports, newest date first.
	ListReports(ctx context.Context, limit int) ([]models.OutlierReport, error)
	Close() error
}
