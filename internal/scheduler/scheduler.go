// Package scheduler runs the bot's periodic background jobs.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// JobRecorder receives job run outcomes.
type JobRecorder interface {
	RecordJobRun(job, status string)
}

// JobFunc is one run of a periodic job.
type JobFunc func(ctx context.Context) error

type job struct {
	name       string
	interval   time.Duration
	runAtStart bool
	fn         JobFunc
}

// Scheduler runs each registered job on its own ticker. A failing or
// panicking run is logged and the schedule continues.
type Scheduler struct {
	jobs    []job
	metrics JobRecorder
	logger  *zap.Logger
}

// New creates an empty scheduler.
func New(metrics JobRecorder, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{metrics: metrics, logger: logger.Named("scheduler")}
}

// Every registers fn to run every interval, and once immediately when
// runAtStart is set. Must be called before Run.
func (s *Scheduler) Every(name string, interval time.Duration, runAtStart bool, fn JobFunc) {
	s.jobs = append(s.jobs, job{name: name, interval: interval, runAtStart: runAtStart, fn: fn})
}

// Jobs returns the registered job names.
func (s *Scheduler) Jobs() []string {
	names := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		names[i] = j.name
	}
	return names
}

// Run blocks until ctx is cancelled and every job loop has returned.
func (s *Scheduler) Run(ctx context.Context) error {
	var g errgroup.Group
	for _, j := range s.jobs {
		if j.interval <= 0 {
			return fmt.Errorf("job %s: interval must be positive", j.name)
		}
	}
	for _, j := range s.jobs {
		j := j
		g.Go(func() error {
			s.loop(ctx, j)
			return nil
		})
	}
	s.logger.Info("🚀 Scheduler started", zap.Strings("jobs", s.Jobs()))
	err := g.Wait()
	s.logger.Info("Scheduler stopped")
	return err
}

func (s *Scheduler) loop(ctx context.Context, j job) {
	if j.runAtStart {
		s.runOnce(ctx, j)
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx, j)
		case <-ctx.Done():
			s.logger.Debug("Job stopped", zap.String("job", j.name))
			return
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, j job) {
	if ctx.Err() != nil {
		return
	}

	status := "ok"
	defer func() {
		if r := recover(); r != nil {
			status = "panic"
			s.logger.Error("Job panic",
				zap.String("job", j.name),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
		if s.metrics != nil {
			s.metrics.RecordJobRun(j.name, status)
		}
	}()

	if err := j.fn(ctx); err != nil {
		status = "error"
		s.logger.Warn("Job run failed", zap.String("job", j.name), zap.Error(err))
	}
}
