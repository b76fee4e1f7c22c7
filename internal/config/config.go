package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the outlier engine.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	LogStore   LogStoreConfig   `yaml:"logStore"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Categories []CategoryConfig `yaml:"categories"`
	Storage    StorageConfig    `yaml:"storage"`
	Cache      CacheConfig      `yaml:"cache"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig controls the HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LogStoreConfig configures access to the external log store API.
type LogStoreConfig struct {
	BaseURL    string        `yaml:"baseURL"`
	SearchPath string        `yaml:"searchPath"`
	TagPath    string        `yaml:"tagPath"`
	Timeout    time.Duration `yaml:"timeout"`
}

// AnalysisConfig holds the tuning values for vectorization, baseline
// construction, and spectral scoring.
type AnalysisConfig struct {
	WindowDays      int     `yaml:"windowDays"`
	Buckets         int     `yaml:"buckets"`
	LowPercentile   float64 `yaml:"lowPercentile"`
	HighPercentile  float64 `yaml:"highPercentile"`
	FFTDepth        int     `yaml:"fftDepth"`
	FFTDecay        float64 `yaml:"fftDecay"`
	GlobalThreshold float64 `yaml:"globalThreshold"`
	PointThreshold  float64 `yaml:"pointThreshold"`
	Timezone        string  `yaml:"timezone"`
}

// CategoryConfig declares how one log category is normalized: which
// field carries the subcategory key, and optionally which nested object
// to unwrap and which field/value must match for a record to count.
type CategoryConfig struct {
	Name         string `yaml:"name"`
	KeyField     string `yaml:"keyField"`
	NestedField  string `yaml:"nestedField"`
	FilterField  string `yaml:"filterField"`
	FilterEquals string `yaml:"filterEquals"`
}

// StorageConfig selects the report store backend.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// CacheConfig controls Valkey-backed caching of vectorized history days.
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Addr          string        `yaml:"addr"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	DB            int           `yaml:"db"`
	DialTimeout   time.Duration `yaml:"dialTimeout"`
	ReadTimeout   time.Duration `yaml:"readTimeout"`
	WriteTimeout  time.Duration `yaml:"writeTimeout"`
	TLS           bool          `yaml:"tls"`
	DayVectorsTTL time.Duration `yaml:"dayVectorsTTL"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment
// overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("LOG_OUTLIER_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8085",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		LogStore: LogStoreConfig{
			SearchPath: "/api/v1/logs/search",
			TagPath:    "/api/v1/logs/tags",
			Timeout:    30 * time.Second,
		},
		Analysis: AnalysisConfig{
			WindowDays:      31,
			Buckets:         24,
			LowPercentile:   1,
			HighPercentile:  99,
			FFTDepth:        5,
			FFTDecay:        2,
			GlobalThreshold: 0.5,
			PointThreshold:  0.25,
			Timezone:        "UTC",
		},
		Categories: DefaultCategories(),
		Storage:    StorageConfig{Backend: "memory", Path: "data/reports.db"},
		Cache: CacheConfig{
			Enabled:       false,
			DialTimeout:   2 * time.Second,
			ReadTimeout:   500 * time.Millisecond,
			WriteTimeout:  500 * time.Millisecond,
			DayVectorsTTL: 24 * time.Hour,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

// DefaultCategories returns the stock rule table for the three shipped
// log categories.
func DefaultCategories() []CategoryConfig {
	return []CategoryConfig{
		{Name: "ossec", KeyField: "rule_number"},
		{Name: "syslog", KeyField: "syslog_severity_code"},
		{Name: "suricata", KeyField: "signature_id", NestedField: "alert", FilterField: "event_type", FilterEquals: "alert"},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_OUTLIER_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("LOG_OUTLIER_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("LOG_OUTLIER_STORE_BASE_URL"); v != "" {
		cfg.LogStore.BaseURL = v
	}
	if v := os.Getenv("LOG_OUTLIER_STORE_SEARCH_PATH"); v != "" {
		cfg.LogStore.SearchPath = v
	}
	if v := os.Getenv("LOG_OUTLIER_STORE_TAG_PATH"); v != "" {
		cfg.LogStore.TagPath = v
	}
	if v := os.Getenv("LOG_OUTLIER_WINDOW_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.WindowDays = n
		}
	}
	if v := os.Getenv("LOG_OUTLIER_TIMEZONE"); v != "" {
		cfg.Analysis.Timezone = v
	}
	if v := os.Getenv("LOG_OUTLIER_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("LOG_OUTLIER_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("LOG_OUTLIER_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("LOG_OUTLIER_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("LOG_OUTLIER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_OUTLIER_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
}

func validate(cfg *Config) error {
	a := cfg.Analysis
	if a.WindowDays < 1 {
		return fmt.Errorf("analysis.windowDays must be >= 1, got %d", a.WindowDays)
	}
	if a.Buckets < 2 {
		return fmt.Errorf("analysis.buckets must be >= 2, got %d", a.Buckets)
	}
	if a.LowPercentile < 0 || a.HighPercentile > 100 || a.LowPercentile > a.HighPercentile {
		return fmt.Errorf("analysis percentiles must satisfy 0 <= low <= high <= 100")
	}
	if a.FFTDepth < 1 || a.FFTDepth > a.Buckets {
		return fmt.Errorf("analysis.fftDepth must be in [1, buckets]")
	}
	if a.FFTDecay <= 0 {
		return fmt.Errorf("analysis.fftDecay must be positive")
	}
	if _, err := time.LoadLocation(a.Timezone); err != nil {
		return fmt.Errorf("analysis.timezone: %w", err)
	}
	for _, cat := range cfg.Categories {
		if cat.Name == "" || cat.KeyField == "" {
			return fmt.Errorf("category entries need name and keyField")
		}
	}
	switch cfg.Storage.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("storage.backend must be memory or sqlite, got %q", cfg.Storage.Backend)
	}
	return nil
}

// Location resolves the configured reference timezone.
func (a AnalysisConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
