package models

import "time"

// PairOutliers lists the hours judged anomalous for one (category,
// subcategory) pair, along with the amplitude-difference metric that led
// to the judgement. Metric is zero when the pair had no baseline and was
// force-flagged without a spectral comparison.
type PairOutliers struct {
	Hours  []int   `json:"hours"`
	Metric float64 `json:"metric"`
}

// OutlierReport is the structured result of one day's analysis, keyed by
// category then subcategory. Consumed by the alerting collaborator that
// maps flagged hours back to source-record identifiers.
type OutlierReport struct {
	Date        string                             `json:"date"`
	HasOutliers bool                               `json:"has_outliers"`
	Pairs       map[string]map[string]PairOutliers `json:"pairs"`
	HistoryDays int                                `json:"history_days"`
	CreatedAt   time.Time                          `json:"created_at"`
}

// RecurringPattern summarises a (category, subcategory) pair that has
// alerted across multiple stored reports.
type RecurringPattern struct {
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Days        int     `json:"days"`
	LastDate    string  `json:"last_date"`
	TopHours    []int   `json:"top_hours"`
	AvgMetric   float64 `json:"avg_metric"`
}
