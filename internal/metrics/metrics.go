package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "log_outlier"

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	AnalysesTotal   *prometheus.CounterVec
	AnalysisSeconds prometheus.Histogram
	ScoredPairs     prometheus.Counter
	OutlierPairs    prometheus.Counter
	DegeneratePairs prometheus.Counter
	MalformedTotal  prometheus.Counter
	DroppedDays     prometheus.Counter
}

// New creates the collectors without registering them.
func New() *Metrics {
	return &Metrics{
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Completed analysis runs by outcome.",
		}, []string{"outcome"}),
		AnalysisSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_seconds",
			Help:      "Wall time of one full day analysis.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		ScoredPairs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scored_pairs_total",
			Help:      "Pairs evaluated against a baseline.",
		}),
		OutlierPairs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outlier_pairs_total",
			Help:      "Pairs that produced at least one flagged hour.",
		}),
		DegeneratePairs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degenerate_pairs_total",
			Help:      "Pairs skipped because the spectral metric was undefined.",
		}),
		MalformedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_records_total",
			Help:      "Input records dropped during vectorization.",
		}),
		DroppedDays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_history_days_total",
			Help:      "History days excluded from baseline construction.",
		}),
	}
}

// Register attaches all collectors to the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.AnalysesTotal,
		m.AnalysisSeconds,
		m.ScoredPairs,
		m.OutlierPairs,
		m.DegeneratePairs,
		m.MalformedTotal,
		m.DroppedDays,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveAnalysis records one finished run.
func (m *Metrics) ObserveAnalysis(outcome string, duration time.Duration, scored, outliers, degenerate, malformed, dropped int) {
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
	m.AnalysisSeconds.Observe(duration.Seconds())
	m.ScoredPairs.Add(float64(scored))
	m.OutlierPairs.Add(float64(outliers))
	m.DegeneratePairs.Add(float64(degenerate))
	m.MalformedTotal.Add(float64(malformed))
	m.DroppedDays.Add(float64(dropped))
}
