package utils

import (
	"testing"
	"time"
)

func TestLatencyTrackerPercentile(t *testing.T) {
	tracker := NewLatencyTracker(16)
	if got := tracker.Percentile(95); got != 0 {
		t.Fatalf("expected zero percentile with no samples, got %v", got)
	}
	for i := 1; i <= 10; i++ {
		tracker.Observe(time.Duration(i) * time.Millisecond)
	}
	if got := tracker.Count(); got != 10 {
		t.Fatalf("expected 10 samples, got %d", got)
	}
	if got := tracker.Percentile(0); got != time.Millisecond {
		t.Fatalf("expected min sample, got %v", got)
	}
	if got := tracker.Percentile(100); got != 10*time.Millisecond {
		t.Fatalf("expected max sample, got %v", got)
	}
	p50 := tracker.Percentile(50)
	if p50 < 4*time.Millisecond || p50 > 6*time.Millisecond {
		t.Fatalf("unexpected median: %v", p50)
	}
}

func TestLatencyTrackerEviction(t *testing.T) {
	tracker := NewLatencyTracker(4)
	for i := 1; i <= 8; i++ {
		tracker.Observe(time.Duration(i) * time.Second)
	}
	if got := tracker.Count(); got != 4 {
		t.Fatalf("expected ring capped at 4, got %d", got)
	}
	// Only the last four observations survive.
	if got := tracker.Percentile(0); got != 5*time.Second {
		t.Fatalf("expected oldest surviving sample 5s, got %v", got)
	}
}
