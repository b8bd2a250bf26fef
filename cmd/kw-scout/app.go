package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kwscout/kw-scout/internal/adsimport"
	"github.com/kwscout/kw-scout/internal/analytics"
	"github.com/kwscout/kw-scout/internal/automation"
	"github.com/kwscout/kw-scout/internal/bus"
	"github.com/kwscout/kw-scout/internal/collector"
	"github.com/kwscout/kw-scout/internal/config"
	"github.com/kwscout/kw-scout/internal/estimator"
	"github.com/kwscout/kw-scout/internal/fetch"
	"github.com/kwscout/kw-scout/internal/metrics"
	"github.com/kwscout/kw-scout/internal/miner"
	"github.com/kwscout/kw-scout/internal/pkg/logger"
	"github.com/kwscout/kw-scout/internal/ratelimit"
	"github.com/kwscout/kw-scout/internal/scoring"
	"github.com/kwscout/kw-scout/internal/seeds"
	"github.com/kwscout/kw-scout/internal/store"
	"github.com/kwscout/kw-scout/internal/tracker"
)

// app wires the pipeline services behind each CLI command.
type app struct {
	cfg *config.Config
	log *logger.Logger

	store        *store.Store
	events       bus.Bus
	pipe         *metrics.Pipeline
	metricsRedis *metrics.RedisStorage

	estimator *estimator.Estimator
	miner     *miner.Miner
	engine    *scoring.Engine
	tracker   *tracker.Tracker
	seeds     *seeds.Manager
	importer  *adsimport.Importer
	analyzer  *analytics.Analyzer
	runner    *automation.Runner
}

// newApp builds the full service graph from config and global flags.
func newApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logLevel := cfg.Log.Level
	if verbose {
		logLevel = "debug"
	}
	log := logger.New(logLevel, cfg.Log.Format)

	a := &app{cfg: cfg, log: log, estimator: estimator.New()}

	a.store, err = store.Open(cfg.DB.Path, log)
	if err != nil {
		return nil, err
	}

	a.events, err = bus.NewBus(cfg.Bus, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.pipe = metrics.NewPipeline()
	if cfg.Metrics.Enabled && cfg.Metrics.RedisURL != "" {
		a.metricsRedis, err = metrics.NewRedisStorage(cfg.Metrics.RedisURL)
		if err != nil {
			log.Warn("metrics Redis unavailable, using in-memory history", "error", err)
		} else {
			a.pipe = metrics.NewPipelineWithRedis(a.metricsRedis)
		}
	}

	limiter := ratelimit.NewRegistry()
	limiter.Register(collector.SourceAutocomplete, cfg.RateLimits.Autocomplete, cfg.RateLimits.Burst)
	limiter.Register(collector.SourceProduct, cfg.RateLimits.Product, cfg.RateLimits.Burst)
	limiter.Register(collector.SourceVolume, cfg.RateLimits.Volume, cfg.RateLimits.Burst)

	fetcher, err := fetch.New(fetch.Config{
		MaxAttempts: cfg.Fetch.MaxAttempts,
		BackoffBase: cfg.Fetch.BackoffBase,
		Timeout:     cfg.Fetch.Timeout,
		ProxyPool:   cfg.Fetch.ProxyPool,
		CacheTTL:    cfg.Fetch.CacheTTL,
	}, limiter, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	autocomplete := collector.NewAutocompleteClient(cfg.Sources.AutocompleteURL, cfg.Sources.MarketplaceID, fetcher, log)
	products := collector.NewProductClient(cfg.Sources.ProductURL, fetcher, log)
	volume := collector.NewVolumeClient(cfg.Volume.BaseURL, cfg.Volume.Login, cfg.Volume.APIKey, fetcher, log)

	a.miner = miner.New(autocomplete, a.store, a.events, a.pipe, log, cfg.Mining.Workers)
	a.engine = scoring.New(a.store, a.estimator, volume, a.events, a.pipe, log)
	a.tracker = tracker.New(a.store, products, a.estimator, a.events, a.pipe, log)
	a.seeds = seeds.New(a.store, log)
	a.importer = adsimport.New(a.store, a.events, a.pipe, log)
	a.analyzer = analytics.New(a.store, log)
	a.runner = automation.New(a.tracker, a.seeds, a.miner, a.engine, log)

	return a, nil
}

// department resolves the per-command department flag, falling back to config.
func (a *app) department(cmd *cobra.Command) string {
	if dept, _ := cmd.Flags().GetString("department"); dept != "" {
		return dept
	}
	return a.cfg.Mining.Department
}

// Close releases resources in reverse wiring order.
func (a *app) Close() {
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.log.Warn("closing event bus", "error", err)
		}
	}
	if a.metricsRedis != nil {
		if err := a.metricsRedis.Close(); err != nil {
			a.log.Warn("closing metrics storage", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("closing store", "error", err)
		}
	}
}
