package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/esk1llz/ML-log-analysis/internal/config"
	"github.com/esk1llz/ML-log-analysis/internal/models"
	"github.com/esk1llz/ML-log-analysis/internal/utils"
)

// LogStoreClient fetches raw daily events from the external log store
// API and writes outlier tags back to it.
type LogStoreClient struct {
	baseURL    string
	searchPath string
	tagPath    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewLogStoreClient builds a client from configuration.
func NewLogStoreClient(cfg config.LogStoreConfig, logger *slog.Logger) *LogStoreClient {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LogStoreClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		searchPath: cfg.SearchPath,
		tagPath:    cfg.TagPath,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type searchRequest struct {
	Date string `json:"date"`
}

type searchResponse struct {
	Records []models.EventRecord `json:"records"`
}

// FetchDay returns all events recorded on the given date (reference
// timezone, YYYY-MM-DD). A day with no events yields an empty slice and
// no error; transport and server failures are errors.
func (c *LogStoreClient) FetchDay(ctx context.Context, date string) ([]models.EventRecord, error) {
	var resp searchResponse
	if err := c.postJSON(ctx, c.searchPath, searchRequest{Date: date}, &resp); err != nil {
		return nil, utils.NewAppError("logstore.FetchDay", "search "+date, err)
	}
	if resp.Records == nil {
		return []models.EventRecord{}, nil
	}
	return resp.Records, nil
}

type tagRequest struct {
	Date  string                                    `json:"date"`
	Pairs map[string]map[string]models.PairOutliers `json:"pairs"`
}

// TagOutliers marks the flagged (category, subcategory, hour) positions
// in the log store so downstream viewers can highlight them.
func (c *LogStoreClient) TagOutliers(ctx context.Context, report models.OutlierReport) error {
	req := tagRequest{Date: report.Date, Pairs: report.Pairs}
	if err := c.postJSON(ctx, c.tagPath, req, nil); err != nil {
		return utils.NewAppError("logstore.TagOutliers", "tag "+report.Date, err)
	}
	return nil
}

// postJSON posts a JSON body and decodes the JSON response into out when
// out is non-nil. Non-2xx statuses become errors carrying a truncated
// response body.
func (c *LogStoreClient) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("post %s: status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}
