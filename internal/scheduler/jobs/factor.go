package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/factorpool/internal/updater"
	"github.com/wonny/factorpool/pkg/logger"
)

// Flusher persists metrics after a job
type Flusher interface {
	WriteTextfile(path string) error
}

// metricsSink flushes metrics to a textfile when both are configured
type metricsSink struct {
	flusher Flusher
	path    string
}

func (m metricsSink) flush(log *logger.Logger) {
	if m.flusher == nil || m.path == "" {
		return
	}
	if err := m.flusher.WriteTextfile(m.path); err != nil {
		log.WithError(err).Warn("Failed to flush metrics")
	}
}

// NewFactorJob writes every newly registered factor
// ⭐ SSOT: scheduled discovery of new factors happens in this job only
type NewFactorJob struct {
	updater  *updater.Updater
	schedule string
	metrics  metricsSink
	logger   *logger.Logger
}

// NewNewFactorJob creates the new-factor job
func NewNewFactorJob(u *updater.Updater, schedule string, flusher Flusher, textfile string, log *logger.Logger) *NewFactorJob {
	return &NewFactorJob{
		updater:  u,
		schedule: schedule,
		metrics:  metricsSink{flusher: flusher, path: textfile},
		logger:   log,
	}
}

// Name returns the job name
func (j *NewFactorJob) Name() string {
	return "factor_write_new"
}

// Schedule returns the cron schedule
func (j *NewFactorJob) Schedule() string {
	return j.schedule
}

// Run writes new factors
func (j *NewFactorJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled new factor write")
	defer j.metrics.flush(j.logger)

	summary, err := j.updater.WriteNewFactors(ctx)
	if summary != nil {
		j.logger.WithFields(map[string]interface{}{
			"written": len(summary.Succeeded),
			"skipped": len(summary.Skipped),
			"failed":  len(summary.Failed),
		}).Info("New factor write finished")
	}
	if err != nil {
		return fmt.Errorf("write new factors: %w", err)
	}
	return nil
}

// PoolUpdateJob extends every materialized factor with recent data
type PoolUpdateJob struct {
	updater      *updater.Updater
	schedule     string
	lookbackDays int
	metrics      metricsSink
	logger       *logger.Logger
}

// NewPoolUpdateJob creates the pool update job
func NewPoolUpdateJob(u *updater.Updater, schedule string, lookbackDays int, flusher Flusher, textfile string, log *logger.Logger) *PoolUpdateJob {
	return &PoolUpdateJob{
		updater:      u,
		schedule:     schedule,
		lookbackDays: lookbackDays,
		metrics:      metricsSink{flusher: flusher, path: textfile},
		logger:       log,
	}
}

// Name returns the job name
func (j *PoolUpdateJob) Name() string {
	return "factor_pool_update"
}

// Schedule returns the cron schedule
func (j *PoolUpdateJob) Schedule() string {
	return j.schedule
}

// Run updates the whole factor pool
func (j *PoolUpdateJob) Run(ctx context.Context) error {
	j.logger.WithField("lookback_days", j.lookbackDays).Info("Starting scheduled factor pool update")
	defer j.metrics.flush(j.logger)

	if _, err := j.updater.UpdateFactorPool(ctx, j.lookbackDays); err != nil {
		return fmt.Errorf("update factor pool: %w", err)
	}
	return nil
}
