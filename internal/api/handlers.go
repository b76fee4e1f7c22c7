package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/esk1llz/ML-log-analysis/internal/storage"
)

type handlers struct {
	svc    Service
	logger *slog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type analysisRequest struct {
	Date string `json:"date"`
}

// runAnalysis triggers a full analysis of one day and returns the
// resulting report.
func (h *handlers) runAnalysis(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.Date == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "date is required"})
		return
	}

	report, err := h.svc.RunAnalysis(r.Context(), req.Date)
	if err != nil {
		h.logger.Error("analysis failed", slog.String("date", req.Date), slog.Any("error", err))
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *handlers) getReport(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	report, err := h.svc.GetReport(r.Context(), date)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "no report for " + date})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *handlers) listReports(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 30)
	reports, err := h.svc.ListReports(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

func (h *handlers) patterns(w http.ResponseWriter, r *http.Request) {
	lookback := queryInt(r, "lookback", 90)
	found, err := h.svc.Patterns(r.Context(), lookback)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"patterns": found})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
