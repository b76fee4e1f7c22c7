package baseline

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/esk1llz/ML-log-analysis/internal/models"
)

// TaggedDay is one historical day's vectors together with the weekday it
// was observed on.
type TaggedDay struct {
	Weekday time.Weekday
	Vectors models.DayVectorSet
}

// Bands holds the computed winsorization band per (category,
// subcategory) pair.
type Bands map[string]map[string]models.PercentileBand

// Builder turns a window of historical days into a winsorized,
// weekday-keyed baseline.
type Builder struct {
	lowPct  float64
	highPct float64
	logger  *slog.Logger
}

// NewBuilder constructs a Builder with the given percentile cut points.
func NewBuilder(lowPct, highPct float64, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	if lowPct > highPct {
		lowPct, highPct = highPct, lowPct
	}
	return &Builder{lowPct: lowPct, highPct: highPct, logger: logger}
}

// Build runs the two-pass winsorization over the historical window and
// returns the per-weekday baseline plus the bands that were applied.
//
// Pass 1 ignores weekday: every vector observed for a pair across the
// whole window is averaged element-wise, and the percentile band is
// taken over that averaged vector's buckets. Pass 2 clamps every raw
// historical value into the pair's band, then regroups by weekday and
// averages again. The single band per pair (rather than per hour-slot)
// is what suppresses whole-day spikes without needing per-hour history
// depth.
func (b *Builder) Build(days []TaggedDay) (models.BaselineSet, Bands) {
	bands := b.computeBands(days)

	// Clip pass, on copies owned here: the caller's vectors stay raw.
	grouped := make(map[time.Weekday]map[string]map[string][]models.HourlyVector)
	for _, day := range days {
		byCat, ok := grouped[day.Weekday]
		if !ok {
			byCat = make(map[string]map[string][]models.HourlyVector)
			grouped[day.Weekday] = byCat
		}
		for cat, subs := range day.Vectors {
			bySub, ok := byCat[cat]
			if !ok {
				bySub = make(map[string][]models.HourlyVector)
				byCat[cat] = bySub
			}
			for sub, vec := range subs {
				band := bands[cat][sub]
				clipped := vec.Clone()
				for i, v := range clipped {
					clipped[i] = band.Clamp(v)
				}
				bySub[sub] = append(bySub[sub], clipped)
			}
		}
	}

	set := make(models.BaselineSet, len(grouped))
	for wd, byCat := range grouped {
		daySet := make(models.DayVectorSet, len(byCat))
		for cat, bySub := range byCat {
			for sub, rows := range bySub {
				daySet.Add(cat, sub, meanVector(rows))
			}
		}
		set[wd] = daySet
	}
	return set, bands
}

func (b *Builder) computeBands(days []TaggedDay) Bands {
	stacked := make(map[string]map[string][]models.HourlyVector)
	for _, day := range days {
		for cat, subs := range day.Vectors {
			bySub, ok := stacked[cat]
			if !ok {
				bySub = make(map[string][]models.HourlyVector)
				stacked[cat] = bySub
			}
			for sub, vec := range subs {
				bySub[sub] = append(bySub[sub], vec)
			}
		}
	}

	bands := make(Bands, len(stacked))
	for cat, bySub := range stacked {
		bands[cat] = make(map[string]models.PercentileBand, len(bySub))
		for sub, rows := range bySub {
			avg := meanVector(rows)
			bands[cat][sub] = models.PercentileBand{
				Low:  percentile(avg, b.lowPct),
				High: percentile(avg, b.highPct),
			}
		}
	}
	return bands
}

// meanVector collapses stacked rows into their element-wise mean. A
// single row is returned as a copy, unaveraged.
func meanVector(rows []models.HourlyVector) models.HourlyVector {
	if len(rows) == 0 {
		return nil
	}
	if len(rows) == 1 {
		return rows[0].Clone()
	}
	out := models.NewHourlyVector(len(rows[0]))
	for _, row := range rows {
		for i, v := range row {
			out[i] += v
		}
	}
	for i := range out {
		out[i] /= float64(len(rows))
	}
	return out
}

// percentile computes the p-th percentile (0-100) of the vector's
// elements with linear interpolation between closest ranks.
func percentile(vec models.HourlyVector, p float64) float64 {
	if len(vec) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vec...)
	sort.Float64s(sorted)
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
