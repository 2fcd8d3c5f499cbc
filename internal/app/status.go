package app

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"routined/internal/config"
	"routined/internal/routine"
	logx "routined/pkg/logx"
)

// statusReporter logs a runner snapshot on a cron schedule.
type statusReporter struct {
	runner *routine.Runner
	log    logx.Logger
	loc    *time.Location

	mu       sync.Mutex
	c        *cron.Cron
	schedule string
}

func newStatusReporter(r *routine.Runner, loc *time.Location, log logx.Logger) *statusReporter {
	if loc == nil {
		loc = time.Local
	}
	return &statusReporter{runner: r, loc: loc, log: log}
}

// Apply (re)starts the cron for sc. A disabled config stops it.
func (s *statusReporter) Apply(ctx context.Context, sc config.StatusConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule := config.StatusSchedule(sc)
	if !sc.Enabled {
		s.stopLocked(ctx)
		return nil
	}
	if s.c != nil && s.schedule == schedule {
		return nil
	}
	c := cron.New(cron.WithLocation(s.loc))
	if _, err := c.AddFunc(schedule, s.report); err != nil {
		return err
	}
	s.stopLocked(ctx)
	s.c = c
	s.schedule = schedule
	c.Start()
	s.log.Info("status reporter started", logx.String("schedule", schedule), logx.String("tz", s.loc.String()))
	return nil
}

func (s *statusReporter) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(ctx)
}

func (s *statusReporter) stopLocked(ctx context.Context) {
	if s.c == nil {
		return
	}
	select {
	case <-s.c.Stop().Done():
	case <-ctx.Done():
	}
	s.c = nil
	s.schedule = ""
}

func (s *statusReporter) report() {
	snap := s.runner.Snapshot()
	fields := []logx.Field{
		logx.Time("now", snap.Now),
		logx.String("daily_window", snap.DailyWindow),
		logx.Int("entries", snap.Entries),
		logx.Bool("day_off_today", snap.DayOffToday),
		logx.Int("pending_batches", snap.PendingBatches),
		logx.Int("pending_tasks", snap.PendingTasks),
		logx.Uint64("submitted", snap.Submitted),
		logx.Uint64("suppressed", snap.Suppressed),
		logx.Uint64("duplicates", snap.Duplicates),
		logx.Uint64("dropped", snap.Dropped),
		logx.Uint64("failed", snap.Failed),
		logx.Bool("running", snap.Running),
	}
	if !snap.NextWake.IsZero() {
		fields = append(fields, logx.Time("next_wake", snap.NextWake))
	}
	if snap.Loops != nil {
		fields = append(fields, logx.Int64("loops_active", snap.Loops.Active))
		if snap.Loops.FirstError != "" {
			fields = append(fields, logx.String("loops_first_error", snap.Loops.FirstError))
		}
	}
	s.log.Info("routine status", fields...)
}
