package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/wonny/factorpool/internal/contracts"
	"github.com/wonny/factorpool/internal/factors"
	"github.com/wonny/factorpool/internal/feed"
	"github.com/wonny/factorpool/internal/report"
	"github.com/wonny/factorpool/internal/store"
	"github.com/wonny/factorpool/internal/writer"
	"github.com/wonny/factorpool/pkg/logger"
)

// ErrInsufficientData marks a factor whose return series is too short to test
var ErrInsufficientData = errors.New("insufficient data")

// RunRecorder stores the outcome of factor runs
type RunRecorder interface {
	Record(ctx context.Context, run *contracts.FactorRun) error
}

// RunObserver is notified of every finished factor run
type RunObserver interface {
	ObserveRun(run *contracts.FactorRun)
}

// Summary lists the factors of a batch operation by outcome
type Summary struct {
	Succeeded []string `json:"succeeded"`
	Skipped   []string `json:"skipped"`
	Failed    []string `json:"failed"`
}

// Updater discovers, writes and updates factor datasets
// ⭐ SSOT: every dataset mutation goes through this type
type Updater struct {
	settings Settings
	layout   store.Layout
	registry *factors.Registry
	source   feed.Source
	logger   *logger.Logger
	recorder RunRecorder
	observer RunObserver
	now      func() time.Time
}

// Option configures an Updater
type Option func(*Updater)

// WithRecorder stores every run record
func WithRecorder(r RunRecorder) Option {
	return func(u *Updater) { u.recorder = r }
}

// WithObserver reports every run to o
func WithObserver(o RunObserver) Option {
	return func(u *Updater) { u.observer = o }
}

// WithClock overrides the clock used for file stamps and run records
func WithClock(now func() time.Time) Option {
	return func(u *Updater) { u.now = now }
}

// New creates an updater; settings are validated
func New(settings Settings, layout store.Layout, registry *factors.Registry, source feed.Source, log *logger.Logger, opts ...Option) (*Updater, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	u := &Updater{
		settings: settings,
		layout:   layout,
		registry: registry,
		source:   source,
		logger:   log.Component("updater"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

// DiscoverNewFactors returns the sorted names of registered factors that have
// no dataset folder yet
func (u *Updater) DiscoverNewFactors() ([]string, error) {
	existing, err := u.layout.Factors()
	if err != nil {
		return nil, err
	}

	materialized := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		materialized[name] = struct{}{}
	}

	var fresh []string
	for _, name := range u.registry.Names() {
		if _, ok := materialized[name]; !ok {
			fresh = append(fresh, name)
		}
	}
	sort.Strings(fresh)

	if len(fresh) == 0 {
		u.logger.Info("No new factors")
	} else {
		u.logger.WithField("factors", fresh).Infof("Found %d new factors", len(fresh))
	}
	return fresh, nil
}

// WriteNewFactors computes and persists every newly discovered factor. A
// factor with too little data is skipped; a failing factor does not stop the
// others and its error is part of the returned error.
func (u *Updater) WriteNewFactors(ctx context.Context) (*Summary, error) {
	names, err := u.DiscoverNewFactors()
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	var errs []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		err := u.track(ctx, name, contracts.OperationWriteNew, func(run *contracts.FactorRun) error {
			return u.writeNewFactor(ctx, name, run)
		})

		switch {
		case errors.Is(err, ErrInsufficientData):
			summary.Skipped = append(summary.Skipped, name)
		case err != nil:
			u.logger.WithError(err).WithField("factor", name).Error("Write new factor failed")
			summary.Failed = append(summary.Failed, name)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		default:
			summary.Succeeded = append(summary.Succeeded, name)
		}
	}

	return summary, errors.Join(errs...)
}

func (u *Updater) writeNewFactor(ctx context.Context, name string, run *contracts.FactorRun) (err error) {
	p, err := u.runPipeline(ctx, name, u.settings.Start)
	if err != nil {
		return err
	}

	// a half-written factor would be taken as materialized by discovery
	defer func() {
		if err != nil && !errors.Is(err, ErrInsufficientData) {
			if rerr := os.RemoveAll(u.layout.FactorDir(name)); rerr != nil {
				u.logger.WithError(rerr).WithField("factor", name).Warn("Failed to remove partial dataset")
			}
		}
	}()

	// insufficient-data guard: nothing is written for this factor
	freq, n := p.shortestReturns()
	if n <= 2*u.settings.Lag {
		u.logger.WithFields(map[string]interface{}{
			"factor":    name,
			"frequency": freq.Label(),
			"returns":   n,
			"lag":       u.settings.Lag,
		}).Warn("Return series too short, factor not written")
		return fmt.Errorf("%s at %s: %d returns for lag %d: %w", name, freq.Label(), n, u.settings.Lag, ErrInsufficientData)
	}

	for _, f := range p.order {
		fc := p.byFreq[f]
		w := writer.New(u.layout, name, fc.harness, u.logger,
			writer.WithClock(u.now), writer.WithPolicy(u.settings.MergePolicy))
		if _, err := w.Write(writer.ModeNew, nil); err != nil {
			return fmt.Errorf("write %s: %w", f.Label(), err)
		}
		run.Frequencies = append(run.Frequencies, f.Label())

		em, err := report.New(u.layout, name, report.LiveHarness{Harness: fc.harness}, u.logger)
		if err != nil {
			return err
		}
		if _, err := em.Write(); err != nil {
			return fmt.Errorf("report %s: %w", f.Label(), err)
		}
	}
	return nil
}

// LatestEnd returns the latest timestamp persisted for factor over all
// frequencies and tables
func (u *Updater) LatestEnd(ctx context.Context, factor string) (time.Time, error) {
	all, err := u.layout.OpenAll(ctx, factor)
	if err != nil {
		return time.Time{}, err
	}

	var end time.Time
	for _, ds := range all {
		if e := ds.LatestEnd(); e.After(end) {
			end = e
		}
	}
	return end, nil
}

// UpdateFactor recomputes factor from lookbackDays business days before its
// latest persisted timestamp and appends the result to every frequency
func (u *Updater) UpdateFactor(ctx context.Context, name string, lookbackDays int) error {
	return u.track(ctx, name, contracts.OperationUpdate, func(run *contracts.FactorRun) error {
		return u.updateFactor(ctx, name, lookbackDays, run)
	})
}

func (u *Updater) updateFactor(ctx context.Context, name string, lookbackDays int, run *contracts.FactorRun) error {
	if !u.registry.Has(name) {
		return fmt.Errorf("%s: %w", name, factors.ErrUnknownFactor)
	}

	end, err := u.LatestEnd(ctx, name)
	if err != nil {
		return err
	}
	start := SubtractBusinessDays(end, lookbackDays)

	current := make(map[contracts.Frequency]*store.Dataset, len(u.settings.Frequencies))
	for _, f := range u.settings.Frequencies {
		ds, err := u.layout.Open(ctx, name, f)
		if err != nil {
			return err
		}
		current[f] = ds
	}

	u.logger.WithFields(map[string]interface{}{
		"factor":   name,
		"last_end": end,
		"start":    start,
		"lookback": lookbackDays,
	}).Info("Updating factor")

	p, err := u.runPipeline(ctx, name, start)
	if err != nil {
		return err
	}

	for _, f := range p.order {
		fc := p.byFreq[f]

		appended, err := u.appendFrequency(ctx, name, f, fc.harness, current[f].Stamp)
		if err != nil {
			return err
		}
		run.Appended += appended
		run.Frequencies = append(run.Frequencies, f.Label())
	}

	for _, f := range p.order {
		if err := u.WriteReport(ctx, name, f); err != nil {
			return err
		}
	}
	return nil
}

// appendFrequency archives the current files of one frequency folder and
// appends the fresh harness output to them. On failure the folder is put back
// to its pre-update state so the next update can retry.
func (u *Updater) appendFrequency(ctx context.Context, name string, f contracts.Frequency, harness contracts.Harness, stamp string) (int, error) {
	dir := u.layout.FreqDir(name, f)
	archived, err := store.Archive(dir, stamp)
	if err != nil {
		return 0, err
	}

	w := writer.New(u.layout, name, harness, u.logger,
		writer.WithClock(u.now), writer.WithPolicy(u.settings.MergePolicy))

	err = func() error {
		prior, err := store.OpenDir(ctx, archived, name, f)
		if err != nil {
			return fmt.Errorf("read archived %s: %w", f.Label(), err)
		}
		if _, err := w.Write(writer.ModeAppend, prior); err != nil {
			return fmt.Errorf("append %s: %w", f.Label(), err)
		}
		return nil
	}()
	if err != nil {
		if rerr := store.Restore(dir, archived); rerr != nil {
			u.logger.WithError(rerr).WithFields(map[string]interface{}{
				"factor":    name,
				"frequency": f.Label(),
				"archive":   archived,
			}).Error("Failed to restore archived dataset")
			return 0, errors.Join(err, rerr)
		}
		u.logger.WithFields(map[string]interface{}{
			"factor":    name,
			"frequency": f.Label(),
		}).Warn("Append failed, archived dataset restored")
		return 0, err
	}
	return w.Count(), nil
}

// WriteReport renders the report of factor at freq from its persisted dataset
func (u *Updater) WriteReport(ctx context.Context, name string, freq contracts.Frequency) error {
	ds, err := u.layout.Open(ctx, name, freq)
	if err != nil {
		return err
	}
	em, err := report.New(u.layout, name, report.PersistedReader{Dataset: ds}, u.logger)
	if err != nil {
		return err
	}
	if _, err := em.Write(); err != nil {
		return fmt.Errorf("report %s: %w", freq.Label(), err)
	}
	return nil
}

// UpdateFactorPool updates every materialized factor in name order. A failing
// factor is logged and the remaining factors are still updated.
func (u *Updater) UpdateFactorPool(ctx context.Context, lookbackDays int) (*Summary, error) {
	names, err := u.layout.Factors()
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	var errs []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if err := u.UpdateFactor(ctx, name, lookbackDays); err != nil {
			u.logger.WithError(err).WithField("factor", name).Error("Factor update failed, continuing")
			summary.Failed = append(summary.Failed, name)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		summary.Succeeded = append(summary.Succeeded, name)
	}

	u.logger.WithFields(map[string]interface{}{
		"updated": len(summary.Succeeded),
		"failed":  len(summary.Failed),
	}).Info("Factor pool update finished")

	return summary, errors.Join(errs...)
}

// track runs fn and records its outcome
func (u *Updater) track(ctx context.Context, name string, op contracts.Operation, fn func(run *contracts.FactorRun) error) error {
	run := &contracts.FactorRun{
		Factor:    name,
		Operation: op,
		StartedAt: u.now(),
	}

	err := fn(run)

	run.FinishedAt = u.now()
	run.Success = err == nil
	run.Skipped = errors.Is(err, ErrInsufficientData)
	if err != nil {
		run.Error = err.Error()
	}

	if u.observer != nil {
		u.observer.ObserveRun(run)
	}
	if u.recorder != nil {
		if rerr := u.recorder.Record(ctx, run); rerr != nil {
			u.logger.WithError(rerr).WithField("factor", name).Warn("Failed to record run")
		}
	}
	return err
}
