package models

import "time"

// HourlyVector holds per-hour event counts for one (day, category,
// subcategory). Length is fixed at the configured bucket count (24)
// no matter how many hours were empty. Values are float64 because
// baselines are averaged and winsorized after construction.
type HourlyVector []float64

// NewHourlyVector allocates a zeroed vector with the given bucket count.
func NewHourlyVector(buckets int) HourlyVector {
	return make(HourlyVector, buckets)
}

// Clone returns an independent copy of the vector.
func (v HourlyVector) Clone() HourlyVector {
	out := make(HourlyVector, len(v))
	copy(out, v)
	return out
}

// DayVectorSet maps category -> subcategory -> hourly counts for a single
// day. A (category, subcategory) key exists only if the day produced at
// least one counted event for it; "no data" is an absent key, never a
// zero vector.
type DayVectorSet map[string]map[string]HourlyVector

// Add inserts a vector under the given pair, creating the category level
// as needed.
func (s DayVectorSet) Add(category, subcategory string, vec HourlyVector) {
	subs, ok := s[category]
	if !ok {
		subs = make(map[string]HourlyVector)
		s[category] = subs
	}
	subs[subcategory] = vec
}

// Lookup returns the vector for a pair, reporting whether it exists.
func (s DayVectorSet) Lookup(category, subcategory string) (HourlyVector, bool) {
	subs, ok := s[category]
	if !ok {
		return nil, false
	}
	vec, ok := subs[subcategory]
	return vec, ok
}

// BaselineSet is the queryable historical reference: weekday ->
// category -> subcategory -> one averaged, winsorized vector.
type BaselineSet map[time.Weekday]DayVectorSet

// Lookup returns the baseline vector for a pair on a weekday.
func (b BaselineSet) Lookup(day time.Weekday, category, subcategory string) (HourlyVector, bool) {
	set, ok := b[day]
	if !ok {
		return nil, false
	}
	return set.Lookup(category, subcategory)
}

// PercentileBand is the winsorization clamp range for one pair, derived
// from the averaged aggregate vector across all historical days.
type PercentileBand struct {
	Low  float64
	High float64
}

// Clamp forces a value into the band.
func (p PercentileBand) Clamp(v float64) float64 {
	if v < p.Low {
		return p.Low
	}
	if v > p.High {
		return p.High
	}
	return v
}
