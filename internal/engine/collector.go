package engine

import (
	"github.com/esk1llz/ML-log-analysis/internal/models"
)

// Collector accumulates per-pair outlier positions into the day's
// report. Pairs that produced no positions leave no trace.
type Collector struct {
	pairs   map[string]map[string]models.PairOutliers
	flagged bool
	scored  int
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{pairs: make(map[string]map[string]models.PairOutliers)}
}

// Add records the outcome for one pair. Empty hour lists are counted but
// not stored.
func (c *Collector) Add(category, subcategory string, hours []int, metric float64) {
	c.scored++
	if len(hours) == 0 {
		return
	}
	subs, ok := c.pairs[category]
	if !ok {
		subs = make(map[string]models.PairOutliers)
		c.pairs[category] = subs
	}
	subs[subcategory] = models.PairOutliers{
		Hours:  append([]int(nil), hours...),
		Metric: metric,
	}
	c.flagged = true
}

// Flagged reports whether any pair produced outlier positions.
func (c *Collector) Flagged() bool { return c.flagged }

// ScoredPairs returns how many pairs were evaluated.
func (c *Collector) ScoredPairs() int { return c.scored }

// OutlierPairs returns how many pairs produced outlier positions.
func (c *Collector) OutlierPairs() int {
	n := 0
	for _, subs := range c.pairs {
		n += len(subs)
	}
	return n
}

// Report assembles the day's OutlierRecord.
func (c *Collector) Report(date string, historyDays int) models.OutlierReport {
	return models.OutlierReport{
		Date:        date,
		HasOutliers: c.flagged,
		Pairs:       c.pairs,
		HistoryDays: historyDays,
	}
}
