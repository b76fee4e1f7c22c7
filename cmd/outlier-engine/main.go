package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/esk1llz/ML-log-analysis/internal/api"
	"github.com/esk1llz/ML-log-analysis/internal/baseline"
	"github.com/esk1llz/ML-log-analysis/internal/cache"
	"github.com/esk1llz/ML-log-analysis/internal/config"
	"github.com/esk1llz/ML-log-analysis/internal/engine"
	"github.com/esk1llz/ML-log-analysis/internal/metrics"
	"github.com/esk1llz/ML-log-analysis/internal/patterns"
	"github.com/esk1llz/ML-log-analysis/internal/repo"
	"github.com/esk1llz/ML-log-analysis/internal/services"
	"github.com/esk1llz/ML-log-analysis/internal/storage"
	"github.com/esk1llz/ML-log-analysis/internal/utils"
	"github.com/esk1llz/ML-log-analysis/internal/vectorize"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config (or LOG_OUTLIER_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	slog.SetDefault(logger)
	logger.Info("starting outlier engine",
		slog.String("address", cfg.Server.Address),
		slog.Int("window_days", cfg.Analysis.WindowDays),
		slog.String("timezone", cfg.Analysis.Timezone))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New()
	if err := m.Register(registry); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	cacheProvider := newCacheProvider(cfg.Cache, logger)
	defer cacheProvider.Close()

	store, err := storage.New(cfg.Storage)
	if err != nil {
		return fmt.Errorf("open report store: %w", err)
	}
	defer store.Close()

	rules, err := vectorize.NewRuleSet(cfg.Categories)
	if err != nil {
		return fmt.Errorf("build category rules: %w", err)
	}
	loc := cfg.Analysis.Location()

	client := repo.NewLogStoreClient(cfg.LogStore, logger)
	normalizer := vectorize.NewNormalizer(rules, cfg.Analysis.Buckets, loc, logger)
	builder := baseline.NewBuilder(cfg.Analysis.LowPercentile, cfg.Analysis.HighPercentile, logger)
	scorer := engine.NewScorer(cfg.Analysis.FFTDepth, cfg.Analysis.FFTDecay,
		cfg.Analysis.GlobalThreshold, cfg.Analysis.PointThreshold)
	pipeline := engine.NewPipeline(logger, client, normalizer, builder, scorer,
		cacheProvider, cfg.Cache.DayVectorsTTL, cfg.Analysis.WindowDays, loc)

	miner := patterns.NewMiner(store, 2, logger)
	svc := services.NewAnalyzerService(logger, pipeline, store, miner, m, loc)

	apiServer := api.NewServer(cfg.Server.Address, svc, logger)
	metricsServer := &http.Server{
		Addr:              cfg.Server.MetricsAddress,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() { errCh <- apiServer.Start() }()
	go func() {
		logger.Info("metrics server listening", slog.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", slog.Any("error", err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Warn("api shutdown incomplete", slog.Any("error", err))
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.Warn("metrics shutdown incomplete", slog.Any("error", err))
	}
	return nil
}

// newCacheProvider falls back to the no-op cache when Valkey is disabled
// or unreachable; the engine works without it, just slower on re-runs.
func newCacheProvider(cfg config.CacheConfig, logger *slog.Logger) cache.Provider {
	if !cfg.Enabled {
		return cache.NoopProvider{}
	}
	provider, err := cache.NewValkeyProvider(cfg)
	if err != nil {
		logger.Warn("valkey unavailable, running without cache", slog.Any("error", err))
		return cache.NoopProvider{}
	}
	logger.Info("valkey cache connected", slog.String("addr", cfg.Addr))
	return provider
}
