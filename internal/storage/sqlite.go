package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/esk1llz/ML-log-analysis/internal/models"
)

// SQLiteStore persists reports in a local SQLite database. The report
// body is stored as JSON; the date column carries the lookup and
// ordering semantics.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// modernc's driver serializes writes; one connection avoids
	// SQLITE_BUSY churn under concurrent API reads.
	db.SetMaxOpenConns(1)

	const schema = `
CREATE TABLE IF NOT EXISTS outlier_reports (
	date        TEXT PRIMARY KEY,
	has_outliers INTEGER NOT NULL,
	body        TEXT NOT NULL,
	created_at  TEXT NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveReport(ctx context.Context, report models.OutlierReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	hasOutliers := 0
	if report.HasOutliers {
		hasOutliers = 1
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO outlier_reports (date, has_outliers, body, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(date) DO UPDATE SET
	has_outliers = excluded.has_outliers,
	body         = excluded.body,
	created_at   = excluded.created_at`,
		report.Date, hasOutliers, string(body), report.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	if err != nil {
		return fmt.Errorf("save report %s: %w", report.Date, err)
	}
	return nil
}

func (s *SQLiteStore) GetReport(ctx context.Context, date string) (models.OutlierReport, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM outlier_reports WHERE date = ?`, date).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return models.OutlierReport{}, ErrNotFound
	}
	if err != nil {
		return models.OutlierReport{}, fmt.Errorf("get report %s: %w", date, err)
	}
	return decodeReport(body)
}

func (s *SQLiteStore) ListReports(ctx context.Context, limit int) ([]models.OutlierReport, error) {
	query := `SELECT body FROM outlier_reports ORDER BY date DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []models.OutlierReport
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		report, err := decodeReport(body)
		if err != nil {
			return nil, err
		}
		out = append(out, report)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func decodeReport(body string) (models.OutlierReport, error) {
	var report models.OutlierReport
	if err := json.Unmarshal([]byte(body), &report); err != nil {
		return models.OutlierReport{}, fmt.Errorf("decode stored report: %w", err)
	}
	return report, nil
}
