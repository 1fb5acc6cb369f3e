// Package scheduler runs background maintenance jobs on fixed intervals.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a unit of periodic work
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobFunc adapts a function to Job
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

// Name returns the job name
func (f JobFunc) Name() string { return f.JobName }

// Run calls Fn
func (f JobFunc) Run(ctx context.Context) error { return f.Fn(ctx) }

// Schedule controls when a job runs
type Schedule struct {
	// Interval between ticks; ticks that fire while a run is in flight are dropped
	Interval time.Duration
	// Timeout bounds a single run; zero means no limit
	Timeout time.Duration
	// RunOnStart runs the job once immediately on Start
	RunOnStart bool
}

type entry struct {
	job      Job
	schedule Schedule
}

// Scheduler runs registered jobs, each on its own ticker. Runs of the same job
// never overlap.
type Scheduler struct {
	logger  *zap.Logger
	entries []entry

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// New creates a scheduler
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{logger: logger}
}

// Register adds a job. Jobs must be registered before Start.
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	if job == nil || job.Name() == "" {
		return fmt.Errorf("%w: job must have a name", ErrInvalidConfig)
	}
	if schedule.Interval <= 0 {
		return fmt.Errorf("%w: interval of %s must be positive", ErrInvalidConfig, job.Name())
	}
	if schedule.Timeout < 0 {
		return fmt.Errorf("%w: timeout of %s cannot be negative", ErrInvalidConfig, job.Name())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrSchedulerRunning
	}
	for _, e := range s.entries {
		if e.job.Name() == job.Name() {
			return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name())
		}
	}
	s.entries = append(s.entries, entry{job: job, schedule: schedule})
	return nil
}

// Start launches one loop per registered job
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	entries := append([]entry(nil), s.entries...)
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, e := range entries {
		s.wg.Add(1)
		go s.loop(ctx, e)
	}

	s.logger.Info("Scheduler started", zap.Int("jobs", len(entries)))
	return nil
}

// Stop cancels every loop and waits for in-flight runs to finish or ctx to
// expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether Start has been called without a matching Stop
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *Scheduler) loop(ctx context.Context, e entry) {
	defer s.wg.Done()

	log := s.logger.With(zap.String("job", e.job.Name()))
	log.Debug("Job loop started", zap.Duration("interval", e.schedule.Interval))

	if e.schedule.RunOnStart {
		s.execute(ctx, e, log)
	}

	ticker := time.NewTicker(e.schedule.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("Job loop stopping")
			return
		case <-ticker.C:
			s.execute(ctx, e, log)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, e entry, log *zap.Logger) {
	if ctx.Err() != nil {
		return
	}

	runCtx := ctx
	if e.schedule.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.schedule.Timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error("Job panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	if err := e.job.Run(runCtx); err != nil {
		log.Error("Job failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return
	}
	log.Debug("Job completed", zap.Duration("duration", time.Since(start)))
}
