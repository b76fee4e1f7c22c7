package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/esk1llz/ML-log-analysis/internal/models"
)

// DegenerateMetricError reports that the spectral distance for a pair is
// undefined because the baseline's normalizing component has zero
// magnitude. The caller decides whether to skip the pair or abort the
// day; the scorer never emits NaN or Inf.
type DegenerateMetricError struct {
	Category    string
	Subcategory string
}

func (e *DegenerateMetricError) Error() string {
	return fmt.Sprintf("degenerate spectral metric for %s/%s: baseline normalizing component is zero",
		e.Category, e.Subcategory)
}

// Scorer compares one day's vectors against the weekday baseline using
// the weighted FFT-amplitude distance and attributes anomalies to
// specific hours. It is a pure function of its inputs: no mutation, no
// I/O, no clock.
type Scorer struct {
	depth           int
	decay           float64
	globalThreshold float64
	pointThreshold  float64
}

// NewScorer constructs a Scorer with the given FFT analysis depth,
// geometric component decay, and thresholds.
func NewScorer(depth int, decay, globalThreshold, pointThreshold float64) *Scorer {
	if depth < 1 {
		depth = 5
	}
	if decay <= 0 {
		decay = 2
	}
	return &Scorer{
		depth:           depth,
		decay:           decay,
		globalThreshold: globalThreshold,
		pointThreshold:  pointThreshold,
	}
}

// Distance computes the spectral amplitude distance between a test and a
// baseline vector: the absolute magnitude differences of the first depth
// frequency components, each successive component down-weighted by the
// decay factor, normalized by depth and by the magnitude of the
// baseline's deepest examined component.
func (s *Scorer) Distance(test, base models.HourlyVector) (float64, error) {
	return s.distance(dftMagnitudes(test, s.depth), dftMagnitudes(base, s.depth))
}

func (s *Scorer) distance(testMags, baseMags []float64) (float64, error) {
	norm := baseMags[len(baseMags)-1]
	if norm == 0 {
		return 0, &DegenerateMetricError{}
	}
	sum := 0.0
	weight := 1.0
	for k := range testMags {
		diff := testMags[k] - baseMags[k]
		if diff < 0 {
			diff = -diff
		}
		sum += diff / weight
		weight *= s.decay
	}
	return sum / float64(len(testMags)) / norm, nil
}

// PairResult is the scoring outcome for one (category, subcategory).
type PairResult struct {
	Hours  []int
	Metric float64
}

// ScorePair evaluates a single test vector against its baseline and
// returns the flagged hours plus the overall distance.
func (s *Scorer) ScorePair(test, base models.HourlyVector) (PairResult, error) {
	baseMags := dftMagnitudes(base, s.depth)
	metric, err := s.distance(dftMagnitudes(test, s.depth), baseMags)
	if err != nil {
		return PairResult{}, err
	}

	res := PairResult{Metric: metric}
	if metric < s.globalThreshold {
		return res, nil
	}

	// Counterfactual attribution: substitute each hour with the
	// baseline value and see how much of the mismatch it explains.
	counterfactual := test.Clone()
	for i := range test {
		counterfactual[i] = base[i]
		di, err := s.distance(dftMagnitudes(counterfactual, s.depth), baseMags)
		counterfactual[i] = test[i]
		if err != nil {
			return PairResult{}, err
		}
		if (metric-di)/metric > s.pointThreshold {
			res.Hours = append(res.Hours, i)
		}
	}
	return res, nil
}

// ForcedHours returns every hour with a non-zero count, used when a pair
// has no baseline for the test weekday and is unconditionally suspicious.
func ForcedHours(test models.HourlyVector) []int {
	var hours []int
	for i, v := range test {
		if v > 0 {
			hours = append(hours, i)
		}
	}
	return hours
}

// PairError records a pair whose metric could not be computed.
type PairError struct {
	Category    string
	Subcategory string
	Err         error
}

// ScoreDay walks the test day's pairs in deterministic order and feeds
// outcomes into the collector. Pairs with a degenerate metric are
// reported back rather than aborting the remaining pairs.
func (s *Scorer) ScoreDay(day models.DayVectorSet, weekday time.Weekday, baselines models.BaselineSet, collector *Collector) []PairError {
	var failures []PairError

	for _, cat := range sortedKeys(day) {
		subs := day[cat]
		for _, sub := range sortedSubKeys(subs) {
			test := subs[sub]

			base, ok := baselines.Lookup(weekday, cat, sub)
			if !ok {
				// Nothing to compare against: every active hour is
				// suspicious and no spectral computation is attempted.
				collector.Add(cat, sub, ForcedHours(test), 0)
				continue
			}

			res, err := s.ScorePair(test, base)
			if err != nil {
				var degenerate *DegenerateMetricError
				if errors.As(err, &degenerate) {
					degenerate.Category = cat
					degenerate.Subcategory = sub
				}
				failures = append(failures, PairError{Category: cat, Subcategory: sub, Err: err})
				continue
			}
			collector.Add(cat, sub, res.Hours, res.Metric)
		}
	}
	return failures
}

func sortedKeys(set models.DayVectorSet) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSubKeys(subs map[string]models.HourlyVector) []string {
	keys := make([]string, 0, len(subs))
	for k := range subs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
