package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/infrastructure/config"
)

// JobFunc is the work a scheduled job performs. It runs under a timeout
// derived from the scheduler configuration.
type JobFunc func(ctx context.Context) error

// Job is a registered periodic task.
type Job struct {
	Name string
	Run  JobFunc

	// Interval triggers the job every Interval. Mutually exclusive with Daily.
	Interval time.Duration

	// Daily triggers the job once per day at Hour:Minute local time.
	Daily  bool
	Hour   int
	Minute int
}

// Scheduler runs registered jobs on their configured cadence. Jobs run in
// their own goroutine loop; a slow job never delays the others.
type Scheduler struct {
	config config.SchedulerConfig
	jobs   []Job
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// New creates a scheduler. Jobs are registered before Start.
func New(cfg config.SchedulerConfig, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		config: cfg,
		logger: logger,
	}
}

// Register adds a job. Must be called before Start.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" {
		return fmt.Errorf("scheduler job requires a name")
	}
	if job.Run == nil {
		return fmt.Errorf("scheduler job %q requires a run function", job.Name)
	}
	if job.Daily == (job.Interval > 0) {
		return fmt.Errorf("scheduler job %q must set exactly one of interval or daily", job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return fmt.Errorf("cannot register job %q while scheduler is running", job.Name)
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// Start launches one loop per registered job.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	jobs := make([]Job, len(s.jobs))
	copy(jobs, s.jobs)
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, job := range jobs {
		s.wg.Add(1)
		if job.Daily {
			go s.runDaily(ctx, job)
		} else {
			go s.runInterval(ctx, job)
		}
	}

	s.logger.Info("Scheduler started", zap.Int("jobs", len(jobs)))
	return nil
}

// Stop cancels all job loops and waits for in-flight runs to finish.
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
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runInterval(ctx context.Context, job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	s.logger.Info("Scheduled job registered",
		zap.String("job", job.Name),
		zap.Duration("interval", job.Interval))

	// First run happens immediately; the ticker covers subsequent runs.
	s.execute(ctx, job)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.execute(ctx, job)
		}
	}
}

func (s *Scheduler) runDaily(ctx context.Context, job Job) {
	defer s.wg.Done()

	s.logger.Info("Scheduled job registered",
		zap.String("job", job.Name),
		zap.Int("hour", job.Hour),
		zap.Int("minute", job.Minute))

	for {
		wait := untilNext(time.Now(), job.Hour, job.Minute)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.execute(ctx, job)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, job Job) {
	// A panicking job must not take down the process or its own loop.
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scheduled job panicked",
				zap.String("job", job.Name),
				zap.Any("panic", r))
		}
	}()

	timeout := s.config.JobTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	if err := job.Run(runCtx); err != nil {
		s.logger.Error("Scheduled job failed",
			zap.String("job", job.Name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return
	}
	s.logger.Info("Scheduled job completed",
		zap.String("job", job.Name),
		zap.Duration("duration", time.Since(start)))
}

// untilNext returns the duration from now to the next occurrence of
// hour:minute, always strictly positive.
func untilNext(now time.Time, hour, minute int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
