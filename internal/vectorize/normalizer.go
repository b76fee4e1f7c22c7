package vectorize

import (
	"log/slog"
	"time"

	"github.com/esk1llz/ML-log-analysis/internal/models"
	"github.com/esk1llz/ML-log-analysis/internal/utils"
)

// Normalizer converts one day's raw event records into per-(category,
// subcategory) hourly count vectors.
type Normalizer struct {
	rules   RuleSet
	buckets int
	loc     *time.Location
	logger  *slog.Logger
}

// Stats reports what the normalizer skipped while vectorizing a day.
type Stats struct {
	Counted         int
	Malformed       int
	Filtered        int
	UnknownCategory int
}

// NewNormalizer constructs a Normalizer for the given rule table, bucket
// count, and reference timezone.
func NewNormalizer(rules RuleSet, buckets int, loc *time.Location, logger *slog.Logger) *Normalizer {
	if buckets <= 0 {
		buckets = 24
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{rules: rules, buckets: buckets, loc: loc, logger: logger}
}

// DayVectors groups records by category and subcategory key and counts
// them into hour-of-day buckets. Malformed records (missing timestamp or
// subcategory key) are logged and skipped; they never fail the day.
func (n *Normalizer) DayVectors(records []models.EventRecord) (models.DayVectorSet, Stats) {
	set := make(models.DayVectorSet)
	var stats Stats

	for _, rec := range records {
		rule, ok := n.rules[rec.Category]
		if !ok {
			stats.UnknownCategory++
			continue
		}

		key, keep := rule.Key(rec)
		if !keep {
			stats.Filtered++
			continue
		}
		if key == "" {
			stats.Malformed++
			n.logger.Debug("record missing subcategory key",
				slog.String("category", rec.Category))
			continue
		}

		ts, err := utils.ParseTimestamp(rec.Timestamp)
		if err != nil {
			stats.Malformed++
			n.logger.Debug("record with unusable timestamp",
				slog.String("category", rec.Category),
				slog.String("subcategory", key),
				slog.Any("error", err))
			continue
		}
		hour := utils.HourOfDay(ts, n.loc)
		if hour < 0 || hour >= n.buckets {
			stats.Malformed++
			continue
		}

		vec, ok := set.Lookup(rec.Category, key)
		if !ok {
			vec = models.NewHourlyVector(n.buckets)
			set.Add(rec.Category, key, vec)
		}
		vec[hour]++
		stats.Counted++
	}

	if stats.Malformed > 0 {
		n.logger.Warn("skipped malformed records",
			slog.Int("malformed", stats.Malformed),
			slog.Int("counted", stats.Counted))
	}
	return set, stats
}
