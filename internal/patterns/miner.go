package patterns

import (
	"context"
	"log/slog"
	"sort"

	"github.com/esk1llz/ML-log-analysis/internal/models"
	"github.com/esk1llz/ML-log-analysis/internal/storage"
)

// Miner scans stored reports for pairs that keep alerting. Pairs that
// fire once are noise to an operator; pairs that fire across several
// days usually mean a rule misfiring or a real recurring pattern worth a
// dedicated look.
type Miner struct {
	store   storage.ReportStore
	minDays int
	logger  *slog.Logger
}

// NewMiner builds a Miner. minDays is the minimum number of distinct
// alerting days for a pair to count as recurring (values below 2 are
// raised to 2).
func NewMiner(store storage.ReportStore, minDays int, logger *slog.Logger) *Miner {
	if minDays < 2 {
		minDays = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Miner{store: store, minDays: minDays, logger: logger}
}

type pairAccum struct {
	days      int
	lastDate  string
	metricSum float64
	hourHits  map[int]int
}

// Mine inspects up to lookback stored reports (newest first) and returns
// the recurring pairs ordered by alerting-day count, most frequent
// first.
func (m *Miner) Mine(ctx context.Context, lookback int) ([]models.RecurringPattern, error) {
	reports, err := m.store.ListReports(ctx, lookback)
	if err != nil {
		return nil, err
	}

	accum := make(map[string]map[string]*pairAccum)
	for _, report := range reports {
		for cat, subs := range report.Pairs {
			for sub, pair := range subs {
				byCat, ok := accum[cat]
				if !ok {
					byCat = make(map[string]*pairAccum)
					accum[cat] = byCat
				}
				a, ok := byCat[sub]
				if !ok {
					a = &pairAccum{hourHits: make(map[int]int)}
					byCat[sub] = a
				}
				a.days++
				a.metricSum += pair.Metric
				if report.Date > a.lastDate {
					a.lastDate = report.Date
				}
				for _, h := range pair.Hours {
					a.hourHits[h]++
				}
			}
		}
	}

	var out []models.RecurringPattern
	for cat, subs := range accum {
		for sub, a := range subs {
			if a.days < m.minDays {
				continue
			}
			out = append(out, models.RecurringPattern{
				Category:    cat,
				Subcategory: sub,
				Days:        a.days,
				LastDate:    a.lastDate,
				TopHours:    topHours(a.hourHits, 3),
				AvgMetric:   a.metricSum / float64(a.days),
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Days != out[j].Days {
			return out[i].Days > out[j].Days
		}
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Subcategory < out[j].Subcategory
	})

	m.logger.Debug("pattern mining finished",
		slog.Int("reports", len(reports)),
		slog.Int("recurring_pairs", len(out)))
	return out, nil
}

// topHours returns up to n hours ordered by hit count, ties broken by
// the earlier hour.
func topHours(hits map[int]int, n int) []int {
	hours := make([]int, 0, len(hits))
	for h := range hits {
		hours = append(hours, h)
	}
	sort.Slice(hours, func(i, j int) bool {
		if hits[hours[i]] != hits[hours[j]] {
			return hits[hours[i]] > hits[hours[j]]
		}
		return hours[i] < hours[j]
	})
	if len(hours) > n {
		hours = hours[:n]
	}
	return hours
}
