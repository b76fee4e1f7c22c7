package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/esk1llz/ML-log-analysis/internal/baseline"
	"github.com/esk1llz/ML-log-analysis/internal/cache"
	"github.com/esk1llz/ML-log-analysis/internal/config"
	"github.com/esk1llz/ML-log-analysis/internal/engine"
	"github.com/esk1llz/ML-log-analysis/internal/models"
	"github.com/esk1llz/ML-log-analysis/internal/patterns"
	"github.com/esk1llz/ML-log-analysis/internal/storage"
	"github.com/esk1llz/ML-log-analysis/internal/vectorize"
)

// fakeStoreClient serves canned days keyed by date string.
type fakeStoreClient struct {
	days   map[string][]models.EventRecord
	tagged []string
}

func (f *fakeStoreClient) FetchDay(_ context.Context, date string) ([]models.EventRecord, error) {
	records, ok := f.days[date]
	if !ok {
		return nil, fmt.Errorf("no data for %s", date)
	}
	return records, nil
}

func (f *fakeStoreClient) TagOutliers(_ context.Context, report models.OutlierReport) error {
	f.tagged = append(f.tagged, report.Date)
	return nil
}

// steadyDays fills windowDays history days before testDate with n ossec
// events in the given hour, then adds the test day with testCount events.
func steadyDays(testDate string, windowDays, hour, histCount, testCount int) map[string][]models.EventRecord {
	day, err := time.Parse("2006-01-02", testDate)
	if err != nil {
		panic(err)
	}
	days := make(map[string][]models.EventRecord)
	build := func(d time.Time, count int) []models.EventRecord {
		records := make([]models.EventRecord, 0, count)
		for i := 0; i < count; i++ {
			records = append(records, models.EventRecord{
				Category:  "ossec",
				Timestamp: fmt.Sprintf("%sT%02d:30:00Z", d.Format("2006-01-02"), hour),
				Fields:    map[string]any{"rule_number": 5710},
			})
		}
		return records
	}
	for i := 1; i <= windowDays; i++ {
		prev := day.AddDate(0, 0, -i)
		days[prev.Format("2006-01-02")] = build(prev, histCount)
	}
	days[testDate] = build(day, testCount)
	return days
}

func newTestService(t *testing.T, client engine.StoreClient) (*AnalyzerService, storage.ReportStore) {
	t.Helper()
	rules, err := vectorize.NewRuleSet(config.DefaultCategories())
	if err != nil {
		t.Fatalf("NewRuleSet: %v", err)
	}
	normalizer := vectorize.NewNormalizer(rules, 24, time.UTC, nil)
	builder := baseline.NewBuilder(1, 99, nil)
	scorer := engine.NewScorer(5, 2, 0.5, 0.25)
	pipeline := engine.NewPipeline(nil, client, normalizer, builder, scorer,
		cache.NewMemoryProvider(), time.Hour, 14, time.UTC)

	store := storage.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	miner := patterns.NewMiner(store, 2, nil)
	return NewAnalyzerService(nil, pipeline, store, miner, nil, time.UTC), store
}

func TestRunAnalysisStoresReport(t *testing.T) {
	client := &fakeStoreClient{days: steadyDays("2026-08-20", 14, 10, 3, 3)}
	svc, store := newTestService(t, client)

	report, err := svc.RunAnalysis(context.Background(), "2026-08-20")
	if err != nil {
		t.Fatalf("RunAnalysis: %v", err)
	}
	if report.HasOutliers {
		t.Fatalf("steady traffic should not flag outliers: %+v", report.Pairs)
	}

	stored, err := store.GetReport(context.Background(), "2026-08-20")
	if err != nil {
		t.Fatalf("report was not persisted: %v", err)
	}
	if stored.Date != "2026-08-20" {
		t.Errorf("stored date = %s", stored.Date)
	}
}

func TestRunAnalysisFlagsSpike(t *testing.T) {
	days := steadyDays("2026-08-20", 14, 10, 2, 40)
	client := &fakeStoreClient{days: days}
	svc, _ := newTestService(t, client)

	report, err := svc.RunAnalysis(context.Background(), "2026-08-20")
	if err != nil {
		t.Fatalf("RunAnalysis: %v", err)
	}
	if !report.HasOutliers {
		t.Fatal("20x spike should flag outliers")
	}
	pair, ok := report.Pairs["ossec"]["5710"]
	if !ok {
		t.Fatalf("expected ossec/5710 in report, got %+v", report.Pairs)
	}
	found := false
	for _, h := range pair.Hours {
		if h == 10 {
			found = true
		}
	}
	if !found {
		t.Errorf("hour 10 not attributed: %v", pair.Hours)
	}
	if len(client.tagged) != 1 || client.tagged[0] != "2026-08-20" {
		t.Errorf("outlying day was not tagged: %v", client.tagged)
	}
}

func TestRunAnalysisRejectsBadDate(t *testing.T) {
	svc, _ := newTestService(t, &fakeStoreClient{days: map[string][]models.EventRecord{}})
	if _, err := svc.RunAnalysis(context.Background(), "20-08-2026"); err == nil {
		t.Fatal("expected an error for a malformed date")
	}
}

func TestRunAnalysisAbortsWhenTestDayUnfetchable(t *testing.T) {
	days := steadyDays("2026-08-20", 14, 10, 2, 2)
	delete(days, "2026-08-20")
	svc, store := newTestService(t, &fakeStoreClient{days: days})

	if _, err := svc.RunAnalysis(context.Background(), "2026-08-20"); err == nil {
		t.Fatal("expected an error when the test day cannot be fetched")
	}
	if _, err := store.GetReport(context.Background(), "2026-08-20"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatal("no report should be stored for a failed run")
	}
}

func TestGetReportUnknownDate(t *testing.T) {
	svc, _ := newTestService(t, &fakeStoreClient{days: map[string][]models.EventRecord{}})
	if _, err := svc.GetReport(context.Background(), "2026-08-01"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
