// Package scheduler runs the ledger's periodic background jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"go.uber.org/zap"

	"github.com/erp/ledger/internal/infrastructure/telemetry"
)

// JobFunc is the body of a periodic job
type JobFunc func(ctx context.Context) error

// Job is a named task run every Interval
type Job struct {
	Name     string
	Interval time.Duration
	Run      JobFunc
}

// Config holds scheduler configuration
type Config struct {
	// JobTimeout bounds a single run
	JobTimeout time.Duration
	// LockTTL is how long a run holds its distributed lock
	LockTTL time.Duration
	// LockPrefix namespaces lock keys in Redis
	LockPrefix string
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		JobTimeout: 5 * time.Minute,
		LockTTL:    5 * time.Minute,
		LockPrefix: "ledger:scheduler:",
	}
}

// Scheduler runs registered jobs on their own tickers. With a locker set,
// each run first takes a Redis lock so that only one instance of a
// multi-instance deployment executes it.
type Scheduler struct {
	config Config
	locker *redislock.Client
	logger *zap.Logger

	jobs      map[string]Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewScheduler creates a scheduler. locker may be nil.
func NewScheduler(config Config, locker *redislock.Client, logger *zap.Logger) (*Scheduler, error) {
	def := DefaultConfig()
	if config.JobTimeout == 0 {
		config.JobTimeout = def.JobTimeout
	}
	if config.LockTTL == 0 {
		config.LockTTL = config.JobTimeout
	}
	if config.LockPrefix == "" {
		config.LockPrefix = def.LockPrefix
	}
	if config.JobTimeout < 0 || config.LockTTL < 0 {
		return nil, fmt.Errorf("%w: negative timeout", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config: config,
		locker: locker,
		logger: logger,
		jobs:   make(map[string]Job),
	}, nil
}

// Register adds a job. Jobs must be registered before Start.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Run == nil || job.Interval <= 0 {
		return fmt.Errorf("%w: job needs a name, a body and a positive interval", ErrInvalidConfig)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrSchedulerRunning
	}
	if _, ok := s.jobs[job.Name]; ok {
		return fmt.Errorf("%w: %s", ErrJobExists, job.Name)
	}
	s.jobs[job.Name] = job
	return nil
}

// Start launches one goroutine per job
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, job)
	}

	s.logger.Info("Scheduler started",
		zap.Int("jobs", len(s.jobs)),
		zap.Bool("distributed_lock", s.locker != nil),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for them until ctx expires
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

// RunOnce executes the named job immediately, honouring the lock
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.execute(ctx, job)
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.execute(ctx, job); err != nil {
				s.logger.Error("Scheduled job failed", zap.String("job", job.Name), zap.Error(err))
			}
		}
	}
}

// execute runs job once under the distributed lock. A lock held by another
// instance skips the run without error.
func (s *Scheduler) execute(ctx context.Context, job Job) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, s.config.LockPrefix+job.Name, s.config.LockTTL, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			s.logger.Debug("Job lock held elsewhere, skipping", zap.String("job", job.Name))
			return nil
		}
		if err != nil {
			return fmt.Errorf("obtain lock for %s: %w", job.Name, err)
		}
		defer func() {
			// Release uses a fresh context so an expired job context still frees the lock.
			relCtx, relCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer relCancel()
			if err := lock.Release(relCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				s.logger.Warn("Failed to release job lock", zap.String("job", job.Name), zap.Error(err))
			}
		}()
	}

	start := time.Now()
	var runErr error
	telemetry.WithProfilingLabels(ctx, map[string]string{telemetry.ProfilingLabelJob: job.Name}, func(ctx context.Context) {
		ctx, span := telemetry.StartServiceSpan(ctx, "scheduler", job.Name)
		defer span.End()
		runErr = job.Run(ctx)
		telemetry.RecordError(span, runErr)
	})
	s.logger.Debug("Job finished",
		zap.String("job", job.Name),
		zap.Duration("duration", time.Since(start)),
		zap.Bool("ok", runErr == nil),
	)
	return runErr
}
