package vectorize

import (
	"testing"
	"time"

	"github.com/esk1llz/ML-log-analysis/internal/config"
	"github.com/esk1llz/ML-log-analysis/internal/models"
)

func testRules(t *testing.T) RuleSet {
	t.Helper()
	rules, err := NewRuleSet(config.DefaultCategories())
	if err != nil {
		t.Fatalf("NewRuleSet: %v", err)
	}
	return rules
}

func ossecRecord(hour int, rule float64) models.EventRecord {
	return models.EventRecord{
		Category:  "ossec",
		Timestamp: time.Date(2026, 8, 21, hour, 15, 0, 0, time.UTC).Format(time.RFC3339),
		Fields:    map[string]any{"rule_number": rule},
	}
}

func TestDayVectorsCountsByHourAndSubcategory(t *testing.T) {
	n := NewNormalizer(testRules(t), 24, time.UTC, nil)

	records := []models.EventRecord{
		ossecRecord(3, 5710),
		ossecRecord(3, 5710),
		ossecRecord(17, 5710),
		ossecRecord(17, 1002),
	}

	set, stats := n.DayVectors(records)
	if stats.Counted != 4 || stats.Malformed != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	vec, ok := set.Lookup("ossec", "5710")
	if !ok {
		t.Fatalf("expected vector for ossec/5710")
	}
	if len(vec) != 24 {
		t.Fatalf("expected 24 buckets, got %d", len(vec))
	}
	if vec[3] != 2 || vec[17] != 1 {
		t.Fatalf("unexpected counts: %v", vec)
	}
	total := 0.0
	for _, v := range vec {
		total += v
	}
	if total != 3 {
		t.Fatalf("expected 3 counted events for 5710, got %v", total)
	}

	if _, ok := set.Lookup("ossec", "1002"); !ok {
		t.Fatalf("expected vector for ossec/1002")
	}
}

func TestDayVectorsSkipsMalformedRecords(t *testing.T) {
	n := NewNormalizer(testRules(t), 24, time.UTC, nil)

	records := []models.EventRecord{
		ossecRecord(8, 5710),
		{Category: "ossec", Timestamp: "", Fields: map[string]any{"rule_number": 5710.0}},
		{Category: "ossec", Timestamp: "2026-08-21T08:00:00Z", Fields: map[string]any{}},
		{Category: "netflow", Timestamp: "2026-08-21T08:00:00Z", Fields: map[string]any{"id": "x"}},
	}

	set, stats := n.DayVectors(records)
	if stats.Counted != 1 {
		t.Fatalf("expected 1 counted record, got %d", stats.Counted)
	}
	if stats.Malformed != 2 {
		t.Fatalf("expected 2 malformed records, got %d", stats.Malformed)
	}
	if stats.UnknownCategory != 1 {
		t.Fatalf("expected 1 unknown-category record, got %d", stats.UnknownCategory)
	}
	vec, _ := set.Lookup("ossec", "5710")
	if vec[8] != 1 {
		t.Fatalf("surviving record not counted: %v", vec)
	}
}

func TestNestedRuleFiltersAndUnwraps(t *testing.T) {
	n := NewNormalizer(testRules(t), 24, time.UTC, nil)

	records := []models.EventRecord{
		{
			Category:  "suricata",
			Timestamp: "2026-08-21T09:30:00Z",
			Fields: map[string]any{
				"event_type": "alert",
				"alert":      map[string]any{"signature_id": 2013504.0},
			},
		},
		{
			Category:  "suricata",
			Timestamp: "2026-08-21T09:45:00Z",
			Fields:    map[string]any{"event_type": "flow"},
		},
	}

	set, stats := n.DayVectors(records)
	if stats.Filtered != 1 {
		t.Fatalf("expected 1 filtered record, got %d", stats.Filtered)
	}
	vec, ok := set.Lookup("suricata", "2013504")
	if !ok {
		t.Fatalf("expected vector for suricata/2013504")
	}
	if vec[9] != 1 {
		t.Fatalf("unexpected counts: %v", vec)
	}
}

func TestFilterDroppingAllRecordsYieldsNoKeys(t *testing.T) {
	n := NewNormalizer(testRules(t), 24, time.UTC, nil)

	records := []models.EventRecord{
		{Category: "suricata", Timestamp: "2026-08-21T01:00:00Z", Fields: map[string]any{"event_type": "flow"}},
		{Category: "suricata", Timestamp: "2026-08-21T02:00:00Z", Fields: map[string]any{"event_type": "dns"}},
	}

	set, stats := n.DayVectors(records)
	if stats.Filtered != 2 || stats.Malformed != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(set) != 0 {
		t.Fatalf("expected no keys at all, got %v", set)
	}
}

func TestDayVectorsHonoursTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	n := NewNormalizer(testRules(t), 24, loc, nil)

	// 03:00 UTC is 23:00 previous evening in New York during August.
	records := []models.EventRecord{{
		Category:  "syslog",
		Timestamp: "2026-08-21T03:00:00Z",
		Fields:    map[string]any{"syslog_severity_code": 4.0},
	}}

	set, _ := n.DayVectors(records)
	vec, ok := set.Lookup("syslog", "4")
	if !ok {
		t.Fatalf("expected vector for syslog/4")
	}
	if vec[23] != 1 {
		t.Fatalf("expected count in local hour 23, got %v", vec)
	}
}
