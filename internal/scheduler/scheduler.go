//-------------------------------------------------------------------------
//
// Minimart Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package scheduler runs the pipeline and auxiliary jobs on cron
// schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/pgEdge/minimart-etl/internal/logging"
)

// JobTimeout indicates a job exceeded its allotted run time and was
// cancelled through its context.
type JobTimeout struct {
	Job     string
	Timeout time.Duration
}

func (e *JobTimeout) Error() string {
	return fmt.Sprintf("job %s timed out after %s", e.Job, e.Timeout)
}

// cronLogger adapts zerolog to the cron.Logger interface.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

// JobFunc is the body of a scheduled job. It must honor ctx cancellation.
type JobFunc func(ctx context.Context) error

// Scheduler owns the cron runner. Each job entry is wrapped so that a
// still-running invocation skips the next tick instead of overlapping,
// a panic is recovered instead of killing the process, and the body runs
// under a per-invocation timeout. One job's failure never affects
// another; the next tick is the retry mechanism.
type Scheduler struct {
	cron       *cron.Cron
	jobTimeout time.Duration
}

// New creates a Scheduler with the given per-job timeout.
func New(jobTimeout time.Duration) *Scheduler {
	logger := cronLogger{logger: logging.Logger}
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(logger),
			cron.Recover(logger),
		)),
		jobTimeout: jobTimeout,
	}
}

// AddJob registers fn under the given cron spec. Specs use the standard
// five-field form or descriptors like @every 6h. An invalid spec is
// rejected here, before the scheduler starts.
func (s *Scheduler) AddJob(name, spec string, fn JobFunc) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.runJob(name, fn)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, name, err)
	}
	logging.Info().Str("job", name).Str("schedule", spec).Msg("Scheduled job")
	return nil
}

func (s *Scheduler) runJob(name string, fn JobFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	started := time.Now()
	logging.Info().Str("job", name).Msg("Job started")

	err := fn(ctx)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = &JobTimeout{Job: name, Timeout: s.jobTimeout}
	}
	if err != nil {
		logging.Error().Err(err).Str("job", name).Dur("elapsed", time.Since(started)).Msg("Job failed")
		return
	}

	logging.Info().Str("job", name).Dur("elapsed", time.Since(started)).Msg("Job completed")
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	logging.Info().Msg("Scheduler started")
}

// Stop stops scheduling and waits for in-flight jobs, bounded by the job
// timeout so shutdown can't hang on a stuck job.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(s.jobTimeout):
		logging.Warn().Msg("Gave up waiting for in-flight jobs")
	}
	logging.Info().Msg("Scheduler stopped")
}
