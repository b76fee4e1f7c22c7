package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/esk1llz/ML-log-analysis/internal/engine"
	"github.com/esk1llz/ML-log-analysis/internal/metrics"
	"github.com/esk1llz/ML-log-analysis/internal/models"
	"github.com/esk1llz/ML-log-analysis/internal/patterns"
	"github.com/esk1llz/ML-log-analysis/internal/storage"
	"github.com/esk1llz/ML-log-analysis/internal/utils"
)

// AnalyzerService fronts the pipeline for the HTTP API: it validates the
// requested date, runs the analysis, persists the report, and keeps the
// run metrics up to date.
type AnalyzerService struct {
	logger   *slog.Logger
	pipeline *engine.Pipeline
	store    storage.ReportStore
	miner    *patterns.Miner
	metrics  *metrics.Metrics
	latency  *utils.LatencyTracker
	loc      *time.Location
}

// NewAnalyzerService wires the facade. metrics may be nil in tests.
func NewAnalyzerService(
	logger *slog.Logger,
	pipeline *engine.Pipeline,
	store storage.ReportStore,
	miner *patterns.Miner,
	m *metrics.Metrics,
	loc *time.Location,
) *AnalyzerService {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyzerService{
		logger:   logger,
		pipeline: pipeline,
		store:    store,
		miner:    miner,
		metrics:  m,
		latency:  utils.NewLatencyTracker(256),
		loc:      loc,
	}
}

// RunAnalysis analyzes one day and stores the resulting report. The
// report is returned even when persisting it fails; persistence problems
// are logged and reflected in the run outcome metric.
func (s *AnalyzerService) RunAnalysis(ctx context.Context, date string) (models.OutlierReport, error) {
	day, err := utils.ParseDate(date, s.loc)
	if err != nil {
		return models.OutlierReport{}, utils.NewAppError("analyzer.RunAnalysis", "invalid date "+date, err)
	}

	start := time.Now()
	report, stats, err := s.pipeline.Analyze(ctx, day)
	elapsed := time.Since(start)
	s.latency.Observe(elapsed)

	if err != nil {
		s.observe("error", elapsed, stats)
		return models.OutlierReport{}, err
	}

	outcome := "clean"
	if report.HasOutliers {
		outcome = "outliers"
	}
	if serr := s.store.SaveReport(ctx, report); serr != nil {
		s.logger.Error("failed to persist report",
			slog.String("date", report.Date), slog.Any("error", serr))
		outcome = "store_error"
	}
	s.observe(outcome, elapsed, stats)

	s.logger.Info("analysis finished",
		slog.String("date", report.Date),
		slog.Bool("has_outliers", report.HasOutliers),
		slog.Int("history_days", stats.HistoryDays),
		slog.Int("scored_pairs", stats.ScoredPairs),
		slog.Int("outlier_pairs", stats.OutlierPairs),
		slog.Duration("elapsed", elapsed))
	return report, nil
}

func (s *AnalyzerService) observe(outcome string, elapsed time.Duration, stats engine.PipelineStats) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveAnalysis(outcome, elapsed,
		stats.ScoredPairs, stats.OutlierPairs, stats.DegeneratePairs,
		stats.Malformed, stats.DroppedDays)
}

// GetReport fetches a stored report by date.
func (s *AnalyzerService) GetReport(ctx context.Context, date string) (models.OutlierReport, error) {
	if _, err := utils.ParseDate(date, s.loc); err != nil {
		return models.OutlierReport{}, utils.NewAppError("analyzer.GetReport", "invalid date "+date, err)
	}
	return s.store.GetReport(ctx, date)
}

// ListReports returns recent reports, newest first.
func (s *AnalyzerService) ListReports(ctx context.Context, limit int) ([]models.OutlierReport, error) {
	return s.store.ListReports(ctx, limit)
}

// Patterns mines stored reports for recurring alerting pairs.
func (s *AnalyzerService) Patterns(ctx context.Context, lookback int) ([]models.RecurringPattern, error) {
	return s.miner.Mine(ctx, lookback)
}

// AnalysisLatencyP95 exposes the recent p95 run duration for health
// reporting.
func (s *AnalyzerService) AnalysisLatencyP95() time.Duration {
	return s.latency.Percentile(95)
}
