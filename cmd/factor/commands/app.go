package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/wonny/factorpool/internal/factors"
	"github.com/wonny/factorpool/internal/feed"
	"github.com/wonny/factorpool/internal/frame"
	"github.com/wonny/factorpool/internal/metrics"
	"github.com/wonny/factorpool/internal/runstate"
	"github.com/wonny/factorpool/internal/scheduler/jobs"
	"github.com/wonny/factorpool/internal/store"
	"github.com/wonny/factorpool/internal/updateconfig"
	"github.com/wonny/factorpool/internal/updater"
	"github.com/wonny/factorpool/pkg/config"
	"github.com/wonny/factorpool/pkg/database"
	"github.com/wonny/factorpool/pkg/logger"
	"github.com/wonny/factorpool/pkg/redis"
)

// app holds the wired dependencies shared by the commands
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	layout   store.Layout
	updater  *updater.Updater
	runs     *runstate.Store
	metrics  *metrics.Collector
	lookback int

	db    *database.DB
	redis *redis.Client
}

// loadBase loads env config, logger and the dataset layout. Commands that only
// read persisted datasets stop here.
func loadBase() (*config.Config, *logger.Logger, error) {
	if env != "" {
		if err := os.Setenv("ENV", env); err != nil {
			return nil, nil, err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, logger.New(cfg), nil
}

// loadRunConfig reads the YAML run file named by --config or FACTOR_RUN_CONFIG
func loadRunConfig(cfg *config.Config) (*updateconfig.Config, string, error) {
	path := runConfigFile
	if path == "" {
		path = cfg.Factor.RunConfig
	}
	if path == "" {
		return nil, "", fmt.Errorf("run config is required (--config or FACTOR_RUN_CONFIG)")
	}

	runCfg, _, err := updateconfig.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("load run config: %w", err)
	}
	return runCfg, path, nil
}

// initApp wires the full orchestrator
func initApp(ctx context.Context) (*app, error) {
	// 1. Load config and logger
	cfg, log, err := loadBase()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		layout:   store.NewLayout(cfg.Factor.DataRoot),
		lookback: cfg.Factor.LookbackDays,
	}

	// 2. Load run config
	runCfg, path, err := loadRunConfig(cfg)
	if err != nil {
		return nil, err
	}
	settings, err := runCfg.Settings()
	if err != nil {
		return nil, fmt.Errorf("run config settings: %w", err)
	}
	if runCfg.Update.MergePolicy == "" {
		settings.MergePolicy = frame.ParseMergePolicy(cfg.Factor.MergePolicy)
	}
	if runCfg.Update.LookbackDays > 0 {
		a.lookback = runCfg.Update.LookbackDays
	}
	hash, err := updateconfig.Hash(runCfg)
	if err != nil {
		return nil, fmt.Errorf("hash run config: %w", err)
	}
	log.WithFields(map[string]interface{}{
		"run_id": runCfg.Meta.RunID,
		"hash":   hash[:12],
		"path":   path,
	}).Info("Run config loaded")

	// 3. Bar source
	loc, err := runCfg.Location()
	if err != nil {
		return nil, fmt.Errorf("run config timezone: %w", err)
	}
	var source feed.Source
	switch cfg.Bars.Source {
	case config.BarSourcePostgres:
		a.db, err = database.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		source = feed.NewPostgresSource(a.db.Pool, cfg.Bars.Table)
	default:
		source = feed.NewCSVSource(cfg.Bars.DataRoot, loc)
	}

	// 4. Run state
	a.redis, err = redis.New(cfg)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.runs = runstate.New(a.redis)

	opts := []updater.Option{updater.WithRecorder(a.runs)}

	// 5. Metrics
	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
		opts = append(opts, updater.WithObserver(a.metrics))
	}

	// 6. Orchestrator
	a.updater, err = updater.New(settings, a.layout, factors.Builtin(), source, log, opts...)
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// flusher returns the metrics flusher, or an untyped nil when metrics are off
func (a *app) flusher() jobs.Flusher {
	if a.metrics == nil {
		return nil
	}
	return a.metrics
}

// flushMetrics writes the textfile after a one-shot command
func (a *app) flushMetrics() {
	if a.metrics == nil || a.cfg.MetricsTextfile == "" {
		return
	}
	if err := a.metrics.WriteTextfile(a.cfg.MetricsTextfile); err != nil {
		a.log.WithError(err).Warn("Failed to flush metrics")
	}
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
