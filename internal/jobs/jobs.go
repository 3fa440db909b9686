// Package jobs runs the periodic maintenance sweeps of the service.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweep removes expired records and reports how many were deleted.
type Sweep func(ctx context.Context) (int64, error)

// Job binds a sweep to a cron schedule such as "@every 10m".
type Job struct {
	Name     string
	Schedule string
	Run      Sweep
	// Timeout bounds a single run. Zero means one minute.
	Timeout time.Duration
}

// Scheduler wraps a cron runner with structured logging.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	ctx    context.Context
}

// New registers jobs on a cron runner. The runner is not started.
func New(ctx context.Context, logger *slog.Logger, jobs ...Job) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "jobs")
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		logger: logger,
		ctx:    context.WithoutCancel(ctx),
	}

	for _, job := range jobs {
		if job.Run == nil {
			return nil, fmt.Errorf("job %q has no sweep", job.Name)
		}
		if _, err := s.cron.AddFunc(job.Schedule, s.wrap(job)); err != nil {
			return nil, fmt.Errorf("schedule job %q: %w", job.Name, err)
		}
	}
	return s, nil
}

func (s *Scheduler) wrap(job Job) func() {
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	return func() {
		s.RunNow(job, timeout)
	}
}

// RunNow executes job once in the calling goroutine.
func (s *Scheduler) RunNow(job Job, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	logger := s.logger.With("job", job.Name)
	start := time.Now()
	removed, err := job.Run(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "job failed", "error", err, "duration", time.Since(start))
		return
	}
	logger.DebugContext(ctx, "job completed", "removed", removed, "duration", time.Since(start))
}

// Len reports the number of scheduled jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("job scheduler started", "jobs", s.Len())
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("job scheduler stopped")
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("jobs still running at shutdown"), ctx.Err())
	}
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
