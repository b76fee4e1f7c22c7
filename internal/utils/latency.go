package utils

import (
	"sort"
	"sync"
	"time"
)

// LatencyTracker keeps a bounded ring of recent duration samples and
// computes percentiles over them.
type LatencyTracker struct {
	mu      sync.RWMutex
	samples []time.Duration
	next    int
	full    bool
}

// NewLatencyTracker creates a tracker storing up to maxSize samples.
func NewLatencyTracker(maxSize int) *LatencyTracker {
	if maxSize <= 0 {
		maxSize = 512
	}
	return &LatencyTracker{samples: make([]time.Duration, maxSize)}
}

// Observe records a new duration, evicting the oldest sample once the
// ring is full.
func (l *LatencyTracker) Observe(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.samples[l.next] = d
	l.next++
	if l.next == len(l.samples) {
		l.next = 0
		l.full = true
	}
}

// Count returns the number of samples currently held.
func (l *LatencyTracker) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.full {
		return len(l.samples)
	}
	return l.next
}

// Percentile returns the p-th percentile (0-100) duration, or zero when
// no samples have been recorded.
func (l *LatencyTracker) Percentile(p float64) time.Duration {
	l.mu.RLock()
	n := l.next
	if l.full {
		n = len(l.samples)
	}
	if n == 0 {
		l.mu.RUnlock()
		return 0
	}
	sorted := append([]time.Duration(nil), l.samples[:n]...)
	l.mu.RUnlock()

	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	idx := int((p / 100.0) * float64(len(sorted)-1))
	return sorted[idx]
}
