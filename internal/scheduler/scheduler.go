// Package scheduler runs a job on a cron schedule, one run at a time.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/TobiSchelling/plexrec/internal/logging"
)

// Job is one scheduled run.
type Job func(ctx context.Context) error

// Scheduler fires a job on a six-field (seconds first) cron spec. A run
// that is still going when the next tick fires causes that tick to be
// skipped.
type Scheduler struct {
	spec string
	job  Job
	cron *cron.Cron
}

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New validates spec and creates a scheduler.
func New(spec string, job Job) (*Scheduler, error) {
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	l := cronLogger{}
	return &Scheduler{
		spec: spec,
		job:  job,
		cron: cron.New(cron.WithParser(parser), cron.WithLogger(l), cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l))),
	}, nil
}

// Next returns the first activation after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	sched, _ := parser.Parse(s.spec)
	return sched.Next(t)
}

// Start runs the job on schedule until ctx is cancelled, then waits for a
// running job to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		started := time.Now()
		logging.Info().Msg("Scheduled run starting")
		if err := s.job(ctx); err != nil {
			logging.Error().Err(err).Dur("duration", time.Since(started)).Msg("Scheduled run failed")
			return
		}
		logging.Info().Dur("duration", time.Since(started)).Msg("Scheduled run finished")
	})
	if err != nil {
		return fmt.Errorf("adding cron job: %w", err)
	}

	s.cron.Start()
	logging.Info().Str("schedule", s.spec).Time("next", s.Next(time.Now())).Msg("Scheduler started")

	<-ctx.Done()
	<-s.cron.Stop().Done()
	logging.Info().Msg("Scheduler stopped")
	return ctx.Err()
}

// cronLogger routes cron's own messages through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logging.Debug().Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logging.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
