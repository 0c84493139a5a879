package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/factorpool/pkg/logger"
)

// Locker is a cross-process lock held for the duration of one job
type Locker interface {
	Acquire(ctx context.Context) error
	Release(ctx context.Context) error
}

// Scheduler runs factor jobs on cron schedules. Jobs never overlap: every run
// holds the in-process run lock and, when configured, the shared Locker.
// ⭐ SSOT: scheduled dataset writes start here only
type Scheduler struct {
	cron    *cron.Cron
	logger  *logger.Logger
	jobs    map[string]Job
	history map[string]*JobHistory
	mu      sync.RWMutex

	runMu  sync.Mutex
	locker Locker

	ctx    context.Context
	cancel context.CancelFunc

	maxRetries int
	retryDelay time.Duration
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithRetries sets how often a failed job is retried and the pause between attempts
func WithRetries(max int, delay time.Duration) Option {
	return func(s *Scheduler) {
		s.maxRetries = max
		s.retryDelay = delay
	}
}

// WithLocker adds a cross-process lock around every job
func WithLocker(l Locker) Option {
	return func(s *Scheduler) { s.locker = l }
}

// New creates a scheduler
func New(log *logger.Logger, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		logger:     log.Component("scheduler"),
		jobs:       make(map[string]Job),
		history:    make(map[string]*JobHistory),
		ctx:        ctx,
		cancel:     cancel,
		maxRetries: 1,
		retryDelay: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddJob registers a job under its cron schedule
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	_, err := s.cron.AddFunc(job.Schedule(), func() {
		s.runJob(job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = job
	s.history[name] = &JobHistory{}

	s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"schedule": job.Schedule(),
	}).Info("Job added to scheduler")

	return nil
}

// Start starts the cron loop
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// RunJob runs a job immediately and waits for it
func (s *Scheduler) RunJob(name string) (JobResult, error) {
	s.mu.RLock()
	job, exists := s.jobs[name]
	s.mu.RUnlock()

	if !exists {
		return JobResult{}, fmt.Errorf("job %s not found", name)
	}
	return s.runJob(job), nil
}

// runJob executes a job with retries under the run lock
func (s *Scheduler) runJob(job Job) JobResult {
	name := job.Name()
	log := s.logger.WithField("job", name)
	result := JobResult{JobName: name, StartTime: time.Now()}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	var lastErr error
	if s.locker != nil {
		if err := s.locker.Acquire(s.ctx); err != nil {
			lastErr = err
			result.Skipped = true
			log.WithError(err).Warn("Run lock not acquired, job skipped")
		} else {
			defer func() {
				if err := s.locker.Release(context.Background()); err != nil {
					log.WithError(err).Warn("Failed to release run lock")
				}
			}()
		}
	}

	if !result.Skipped {
		log.Info("Job started")
		for attempt := 0; attempt <= s.maxRetries; attempt++ {
			result.Attempts++

			err := job.Run(s.ctx)
			if err == nil {
				result.Success = true
				lastErr = nil
				break
			}
			lastErr = err

			if errors.Is(err, context.Canceled) || attempt == s.maxRetries {
				break
			}

			log.WithError(err).WithField("attempt", attempt+1).Warn("Job execution failed, retrying")
			select {
			case <-time.After(s.retryDelay):
			case <-s.ctx.Done():
				attempt = s.maxRetries
			}
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	if lastErr != nil {
		result.Error = lastErr.Error()
	}

	s.mu.Lock()
	if h, ok := s.history[name]; ok {
		h.AddResult(result)
	}
	s.mu.Unlock()

	switch {
	case result.Success:
		log.WithField("duration", result.Duration).Info("Job completed successfully")
	case result.Skipped:
	default:
		log.WithFields(map[string]interface{}{
			"duration": result.Duration,
			"attempts": result.Attempts,
			"error":    result.Error,
		}).Error("Job failed after all retries")
	}

	return result
}

// History returns the result history of a job
func (s *Scheduler) History(name string) (*JobHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, exists := s.history[name]
	if !exists {
		return nil, fmt.Errorf("job %s not found", name)
	}
	return h, nil
}

// Jobs returns the sorted names of registered jobs
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats returns run statistics for every job
func (s *Scheduler) Stats() map[string]JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]JobStats, len(s.history))
	for name, h := range s.history {
		st := JobStats{
			JobName:      name,
			Schedule:     s.jobs[name].Schedule(),
			TotalRuns:    len(h.Results),
			FailureCount: len(h.Failures()),
			SuccessRate:  h.SuccessRate(),
		}
		st.SuccessCount = int(st.SuccessRate*float64(st.TotalRuns) + 0.5)

		if latest := h.Latest(1); len(latest) == 1 {
			last := latest[0].StartTime
			st.LastRun = &last
			if latest[0].Success {
				st.LastSuccess = &last
			} else if !latest[0].Skipped {
				st.LastFailure = &last
			}
		}
		stats[name] = st
	}
	return stats
}

// JobStats summarizes the history of one job
type JobStats struct {
	JobName      string     `json:"job_name"`
	Schedule     string     `json:"schedule"`
	TotalRuns    int        `json:"total_runs"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	LastFailure  *time.Time `json:"last_failure,omitempty"`
}
