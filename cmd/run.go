package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/UnknownOlympus/waypoint/internal/cache"
	"github.com/UnknownOlympus/waypoint/internal/config"
	"github.com/UnknownOlympus/waypoint/internal/fetch"
	"github.com/UnknownOlympus/waypoint/internal/geocoding"
	"github.com/UnknownOlympus/waypoint/internal/links"
	"github.com/UnknownOlympus/waypoint/internal/metrics"
	"github.com/UnknownOlympus/waypoint/internal/overpass"
	"github.com/UnknownOlympus/waypoint/internal/pagemeta"
	"github.com/UnknownOlympus/waypoint/internal/report"
	"github.com/UnknownOlympus/waypoint/internal/repository"
	"github.com/UnknownOlympus/waypoint/internal/resolver"
	"github.com/UnknownOlympus/waypoint/internal/retry"
	"github.com/UnknownOlympus/waypoint/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	errInput  = errors.New("cannot read links")
	errOutput = errors.New("cannot write reports")
)

// summary describes a finished batch.
type summary struct {
	Rows         int
	Failed       int
	CSVPath      string
	FailuresPath string
}

// run wires the application from cfg, processes the links file and writes both reports.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*summary, error) {
	inputDir := filepath.Dir(cfg.Input)
	for _, dir := range []string{inputDir, cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: failed to create directory %s: %w", errOutput, dir, err)
		}
	}

	input, err := links.Load(cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInput, err)
	}

	// Create a separate registry for metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	var checks []healthCheck

	sink, closeSink := setupSink(ctx, cfg, logger)
	defer closeSink()
	if sink != nil {
		checks = append(checks, healthCheck{name: "postgres", ping: sink.ping})
	}

	geoCache, closeCache := setupCache(ctx, cfg, logger)
	defer closeCache()

	provider, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:      geocoding.ProviderType(cfg.Provider.Type),
		APIKey:    cfg.Provider.APIKey,
		RateLimit: 10,
		BaseURL:   cfg.Provider.NominatimURL,
		UserAgent: cfg.Provider.UserAgent,
		Timeout:   cfg.HTTPTimeout,
		Logger:    logger,
	})
	if err != nil {
		logger.WarnContext(ctx, "Reverse geocoding disabled", "provider", cfg.Provider.Type, "error", err)
		provider = geocoding.DisabledProvider{}
	}
	provider = geocoding.NewCachedProvider(provider, geoCache, logger, appMetrics.CacheHits)
	logger.InfoContext(ctx, "Geocoding provider initialized", "type", cfg.Provider.Type)

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = uint64(cfg.MaxRetries)
	httpClient := fetch.NewHTTPClient(cfg.HTTPTimeout)

	var poi service.POIFinder
	if cfg.Overpass.URL != "" {
		poi = overpass.NewClient(httpClient, cfg.Overpass.URL, cfg.Provider.UserAgent, logger)
	}

	var resultSink service.ResultSink
	if sink != nil {
		resultSink = sink.repo
	}

	linkService := service.NewLinkService(
		logger,
		resolver.New(httpClient, logger, resolver.WithRetry(retryCfg)),
		pagemeta.NewReader(httpClient, retryCfg, logger),
		provider,
		poi,
		resultSink,
		appMetrics,
		service.Options{
			Workers:      cfg.Workers,
			LinkDelay:    cfg.LinkDelay,
			POIRadius:    cfg.Overpass.Radius,
			ProviderName: cfg.Provider.Type,
		},
	)

	if cfg.MetricsPort > 0 {
		srv := startMonitoringServer(ctx, logger, reg, checks, cfg.MetricsPort)
		defer shutdownMonitoringServer(logger, srv)
	}

	result := linkService.Run(ctx, input)

	out := &summary{
		Rows:         len(result.Rows),
		Failed:       len(result.Failed),
		CSVPath:      filepath.Join(cfg.OutputDir, report.CSVFileName),
		FailuresPath: filepath.Join(cfg.OutputDir, report.FailuresFileName),
	}

	if err = report.WriteCSV(out.CSVPath, result.Rows); err != nil {
		return nil, fmt.Errorf("%w: %w", errOutput, err)
	}
	if err = report.WriteFailures(out.FailuresPath, result.Failed); err != nil {
		return nil, fmt.Errorf("%w: %w", errOutput, err)
	}

	// Warn level so the summary survives the production handler.
	logger.WarnContext(ctx, "Reports written",
		"rows", out.Rows, "failed", out.Failed, "csv", out.CSVPath, "failures", out.FailuresPath)

	return out, nil
}

type postgresSink struct {
	repo repository.Interface
	ping func(ctx context.Context) error
}

// setupSink connects the optional PostgreSQL results sink. Connection problems only disable it.
func setupSink(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*postgresSink, func()) {
	noop := func() {}
	if cfg.Database.Host == "" {
		return nil, noop
	}

	dtb, err := repository.NewDatabase(
		ctx, cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
	)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to connect to DB, results will not be stored", "error", err)
		return nil, noop
	}

	repo := repository.NewRepository(dtb, logger)
	if err = repo.EnsureSchema(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to prepare DB schema, results will not be stored", "error", err)
		dtb.Close()
		return nil, noop
	}

	return &postgresSink{repo: repo, ping: dtb.Ping}, dtb.Close
}

// setupCache returns the Redis cache when configured and reachable, the in-memory cache otherwise.
func setupCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (geocoding.Cache, func()) {
	client := cache.OpenRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if client == nil {
		return cache.NewMemoryCache(), func() {}
	}

	redisCache := cache.NewRedisCache(client, cfg.Redis.TTL)
	if err := redisCache.Ping(ctx); err != nil {
		logger.WarnContext(ctx, "Redis unavailable, using in-memory cache", "addr", cfg.Redis.Addr, "error", err)
		_ = redisCache.Close()
		return cache.NewMemoryCache(), func() {}
	}

	return redisCache, func() { _ = redisCache.Close() }
}
