package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/esk1llz/ML-log-analysis/internal/models"
	"github.com/esk1llz/ML-log-analysis/internal/storage"
)

// fakeService returns canned data for handler tests.
type fakeService struct {
	reports map[string]models.OutlierReport
	runErr  error
}

func (f *fakeService) RunAnalysis(_ context.Context, date string) (models.OutlierReport, error) {
	if f.runErr != nil {
		return models.OutlierReport{}, f.runErr
	}
	report := models.OutlierReport{Date: date, HasOutliers: false}
	f.reports[date] = report
	return report, nil
}

func (f *fakeService) GetReport(_ context.Context, date string) (models.OutlierReport, error) {
	report, ok := f.reports[date]
	if !ok {
		return models.OutlierReport{}, storage.ErrNotFound
	}
	return report, nil
}

func (f *fakeService) ListReports(_ context.Context, limit int) ([]models.OutlierReport, error) {
	out := make([]models.OutlierReport, 0, len(f.reports))
	for _, r := range f.reports {
		out = append(out, r)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeService) Patterns(context.Context, int) ([]models.RecurringPattern, error) {
	return []models.RecurringPattern{
		{Category: "ossec", Subcategory: "5710", Days: 3, LastDate: "2026-08-20", TopHours: []int{10}},
	}, nil
}

func newTestServer(svc Service) *httptest.Server {
	return httptest.NewServer(NewServer(":0", svc, nil).Handler())
}

func TestRunAnalysisEndpoint(t *testing.T) {
	svc := &fakeService{reports: map[string]models.OutlierReport{}}
	srv := newTestServer(svc)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/analyses", "application/json",
		strings.NewReader(`{"date":"2026-08-20"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var report models.OutlierReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Date != "2026-08-20" {
		t.Errorf("report date = %q", report.Date)
	}
}

func TestRunAnalysisEndpointRejectsMissingDate(t *testing.T) {
	srv := newTestServer(&fakeService{reports: map[string]models.OutlierReport{}})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/analyses", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetReportEndpoint(t *testing.T) {
	svc := &fakeService{reports: map[string]models.OutlierReport{
		"2026-08-19": {Date: "2026-08-19", HasOutliers: true},
	}}
	srv := newTestServer(svc)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/analyses/2026-08-19")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	missing, err := http.Get(srv.URL + "/api/v1/analyses/2026-01-01")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("missing report status = %d, want 404", missing.StatusCode)
	}
}

func TestPatternsEndpoint(t *testing.T) {
	srv := newTestServer(&fakeService{reports: map[string]models.OutlierReport{}})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/patterns")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	var body struct {
		Patterns []models.RecurringPattern `json:"patterns"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Patterns) != 1 || body.Patterns[0].Subcategory != "5710" {
		t.Fatalf("patterns = %+v", body.Patterns)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(&fakeService{reports: map[string]models.OutlierReport{}})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
