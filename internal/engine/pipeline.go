package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/esk1llz/ML-log-analysis/internal/baseline"
	"github.com/esk1llz/ML-log-analysis/internal/cache"
	"github.com/esk1llz/ML-log-analysis/internal/models"
	"github.com/esk1llz/ML-log-analysis/internal/utils"
	"github.com/esk1llz/ML-log-analysis/internal/vectorize"
)

// StoreClient defines the log store operations used by the pipeline.
type StoreClient interface {
	FetchDay(ctx context.Context, date string) ([]models.EventRecord, error)
	TagOutliers(ctx context.Context, report models.OutlierReport) error
}

// Pipeline runs one day's full analysis: fetch the test day and its
// rolling history, vectorize, build the winsorized baseline, score, and
// collect the outlier report.
type Pipeline struct {
	logger     *slog.Logger
	client     StoreClient
	normalizer *vectorize.Normalizer
	builder    *baseline.Builder
	scorer     *Scorer
	cache      cache.Provider
	cacheTTL   time.Duration
	windowDays int
	loc        *time.Location
}

// PipelineStats summarises one analysis run for metrics and logging.
type PipelineStats struct {
	HistoryDays     int
	DroppedDays     int
	ScoredPairs     int
	OutlierPairs    int
	DegeneratePairs int
	Malformed       int
}

// NewPipeline wires the pipeline together. The cache provider may be a
// no-op; windowDays is the rolling history length in days.
func NewPipeline(
	logger *slog.Logger,
	client StoreClient,
	normalizer *vectorize.Normalizer,
	builder *baseline.Builder,
	scorer *Scorer,
	cacheProvider cache.Provider,
	cacheTTL time.Duration,
	windowDays int,
	loc *time.Location,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if windowDays < 1 {
		windowDays = 31
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Pipeline{
		logger:     logger,
		client:     client,
		normalizer: normalizer,
		builder:    builder,
		scorer:     scorer,
		cache:      cacheProvider,
		cacheTTL:   cacheTTL,
		windowDays: windowDays,
		loc:        loc,
	}
}

// Analyze runs the full comparison for the given test day and returns
// the outlier report. Missing or empty historical days shrink the
// sample; a failed fetch of the test day itself aborts.
func (p *Pipeline) Analyze(ctx context.Context, testDay time.Time) (models.OutlierReport, PipelineStats, error) {
	var stats PipelineStats

	testDay = testDay.In(p.loc)
	dateStr := testDay.Format(utils.DateLayout)

	records, err := p.client.FetchDay(ctx, dateStr)
	if err != nil {
		return models.OutlierReport{}, stats, utils.NewAppError("engine.Analyze", "fetch test day "+dateStr, err)
	}
	testVecs, vstats := p.normalizer.DayVectors(records)
	stats.Malformed += vstats.Malformed

	history := p.fetchHistory(ctx, testDay, &stats)
	baselines, _ := p.builder.Build(history)
	stats.HistoryDays = len(history)

	collector := NewCollector()
	failures := p.scorer.ScoreDay(testVecs, testDay.Weekday(), baselines, collector)
	for _, f := range failures {
		stats.DegeneratePairs++
		p.logger.Warn("pair skipped: metric undefined",
			slog.String("category", f.Category),
			slog.String("subcategory", f.Subcategory),
			slog.Any("error", f.Err))
	}
	stats.ScoredPairs = collector.ScoredPairs()
	stats.OutlierPairs = collector.OutlierPairs()

	report := collector.Report(dateStr, len(history))
	report.CreatedAt = time.Now().UTC()

	if report.HasOutliers {
		if err := p.client.TagOutliers(ctx, report); err != nil {
			p.logger.Warn("failed to tag outlying records", slog.Any("error", err))
		}
	} else {
		p.logger.Info("no outliers detected", slog.String("date", dateStr))
	}

	return report, stats, nil
}

// fetchHistory pulls up to windowDays prior days, starting the day
// before the test day, vectorizing each and caching the result so a
// re-run does not refetch a month of logs. Empty or unfetchable days
// are dropped with a log line; weekday tagging follows the calendar
// regardless.
func (p *Pipeline) fetchHistory(ctx context.Context, testDay time.Time, stats *PipelineStats) []baseline.TaggedDay {
	history := make([]baseline.TaggedDay, 0, p.windowDays)

	for i := 1; i <= p.windowDays; i++ {
		day := testDay.AddDate(0, 0, -i)
		dateStr := day.Format(utils.DateLayout)

		if vecs, ok := p.cachedDay(ctx, dateStr); ok {
			history = append(history, baseline.TaggedDay{Weekday: day.Weekday(), Vectors: vecs})
			continue
		}

		records, err := p.client.FetchDay(ctx, dateStr)
		if err != nil {
			stats.DroppedDays++
			p.logger.Warn("dropped history day", slog.String("date", dateStr), slog.Any("error", err))
			continue
		}
		if len(records) == 0 {
			stats.DroppedDays++
			p.logger.Info("dropped empty history day", slog.String("date", dateStr))
			continue
		}

		vecs, vstats := p.normalizer.DayVectors(records)
		stats.Malformed += vstats.Malformed
		if len(vecs) == 0 {
			stats.DroppedDays++
			continue
		}
		p.storeDay(ctx, dateStr, vecs)
		history = append(history, baseline.TaggedDay{Weekday: day.Weekday(), Vectors: vecs})
	}
	return history
}

func dayCacheKey(date string) string {
	return fmt.Sprintf("dayvecs:%s", date)
}

func (p *Pipeline) cachedDay(ctx context.Context, date string) (models.DayVectorSet, bool) {
	payload, err := p.cache.Get(ctx, dayCacheKey(date))
	if err != nil {
		return nil, false
	}
	var vecs models.DayVectorSet
	if err := json.Unmarshal(payload, &vecs); err != nil {
		p.logger.Warn("discarding unreadable cached day", slog.String("date", date), slog.Any("error", err))
		_ = p.cache.Del(ctx, dayCacheKey(date))
		return nil, false
	}
	return vecs, true
}

func (p *Pipeline) storeDay(ctx context.Context, date string, vecs models.DayVectorSet) {
	payload, err := json.Marshal(vecs)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, dayCacheKey(date), payload, p.cacheTTL); err != nil {
		p.logger.Debug("day vector cache write failed", slog.String("date", date), slog.Any("error", err))
	}
}
