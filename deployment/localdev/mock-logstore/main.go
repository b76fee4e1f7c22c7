// Command mock-logstore serves synthetic daily security logs so the
// engine can be exercised without a real log store. Traffic is
// deterministic per date; set SPIKE_DATE to inject an hour-10 burst on
// one day and watch the analysis flag it.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"hash/fnv"
	"log"
	"math/rand"
	"net/http"
	"time"
)

type eventRecord struct {
	Category  string         `json:"category"`
	Timestamp string         `json:"timestamp"`
	Fields    map[string]any `json:"fields"`
}

type searchRequest struct {
	Date string `json:"date"`
}

func main() {
	addr := flag.String("addr", ":9200", "listen address")
	spikeDate := flag.String("spike", "", "date (YYYY-MM-DD) that gets an hour-10 ossec burst")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/logs/search", func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		day, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			http.Error(w, "bad date", http.StatusBadRequest)
			return
		}
		records := generateDay(day, req.Date == *spikeDate)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"records": records})
	})
	mux.HandleFunc("/api/v1/logs/tags", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		log.Printf("tagged outliers: %v", payload["date"])
		w.WriteHeader(http.StatusNoContent)
	})

	log.Printf("mock log store on %s (spike day: %q)", *addr, *spikeDate)
	log.Fatal(http.ListenAndServe(*addr, mux))
}

// generateDay emits a stable per-date workload: steady ossec and syslog
// chatter plus a few suricata alerts, all seeded from the date so every
// fetch of the same day returns identical data.
func generateDay(day time.Time, spike bool) []eventRecord {
	h := fnv.New64a()
	fmt.Fprint(h, day.Format("2006-01-02"))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	var records []eventRecord
	add := func(cat string, hour int, fields map[string]any) {
		ts := time.Date(day.Year(), day.Month(), day.Day(), hour, rng.Intn(60), rng.Intn(60), 0, time.UTC)
		records = append(records, eventRecord{
			Category:  cat,
			Timestamp: ts.Format(time.RFC3339),
			Fields:    fields,
		})
	}

	for hour := 0; hour < 24; hour++ {
		for i := 0; i < 3+rng.Intn(3); i++ {
			add("ossec", hour, map[string]any{"rule_number": 5710})
		}
		for i := 0; i < 2+rng.Intn(2); i++ {
			add("syslog", hour, map[string]any{"syslog_severity_code": 3})
		}
		if rng.Intn(4) == 0 {
			add("suricata", hour, map[string]any{
				"event_type": "alert",
				"alert":      map[string]any{"signature_id": 2013028},
			})
		}
		// Non-alert suricata records must be ignored by the engine.
		if rng.Intn(6) == 0 {
			add("suricata", hour, map[string]any{"event_type": "flow"})
		}
	}

	if spike {
		for i := 0; i < 120; i++ {
			add("ossec", 10, map[string]any{"rule_number": 5710})
		}
	}
	return records
}
