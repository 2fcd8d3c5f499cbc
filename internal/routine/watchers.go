package routine

import (
	"context"
	"time"

	logx "routined/pkg/logx"
)

type dayPhase int

const (
	phaseStart dayPhase = iota
	phaseEnd
)

func (p dayPhase) String() string {
	if p == phaseStart {
		return "start"
	}
	return "end"
}

func nextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}

// pollUntil re-reads the clock every PollInterval until cond holds or ctx is
// done. The clock may run faster than wall time, so waits never sleep for a
// computed duration.
func (r *Runner) pollUntil(ctx context.Context, cond func(now time.Time) bool) (time.Time, error) {
	t := time.NewTicker(r.cfg.PollInterval)
	defer t.Stop()
	for {
		now := r.clock.Now().In(r.loc)
		if cond(now) {
			return now, nil
		}
		select {
		case <-ctx.Done():
			return now, ctx.Err()
		case <-t.C:
		}
	}
}

// runMidnightLoop starts a new day whenever the clock's date moves past the
// current day. Dates compare as YYYY-MM-DD strings, so a clock that steps
// backwards never triggers.
func (r *Runner) runMidnightLoop(ctx context.Context) error {
	for {
		r.mu.Lock()
		cur := r.currentDay
		r.mu.Unlock()

		r.log.Debug("waiting for midnight", logx.String("day", cur))
		if _, err := r.pollUntil(ctx, func(now time.Time) bool { return now.Format(dateLayout) > cur }); err != nil {
			return err
		}
		r.NewDay(ctx)
	}
}

// runDayWindowLoop fires the start callback once daily_start is reached and
// the end callback once daily_end is reached, at most once each per date.
// A day first seen after daily_end is skipped entirely.
func (r *Runner) runDayWindowLoop(ctx context.Context) error {
	for {
		var p dayPhase
		now, err := r.pollUntil(ctx, func(now time.Time) bool {
			var ok bool
			p, ok = r.duePhase(now)
			return ok
		})
		if err != nil {
			return err
		}
		r.firePhase(ctx, p, now)
	}
}

// duePhase reports which callback, if any, should fire at now.
func (r *Runner) duePhase(now time.Time) (dayPhase, bool) {
	tod := TimeOf(now)
	day := now.Format(dateLayout)

	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case tod.Before(r.daily.Start):
		return 0, false
	case r.fired[phaseStart] != day:
		return phaseStart, !r.daily.End.Before(tod)
	case r.fired[phaseEnd] != day:
		return phaseEnd, !tod.Before(r.daily.End)
	}
	return 0, false
}

// firePhase records the phase before calling back so that a callback which
// panics is not repeated when the loop restarts.
func (r *Runner) firePhase(ctx context.Context, p dayPhase, now time.Time) {
	day := now.Format(dateLayout)
	r.mu.Lock()
	r.fired[p] = day
	r.mu.Unlock()

	r.log.Info("triggering day "+p.String()+" callback", logx.String("day", day), logx.Time("now", now))
	typ := EventDayStart
	fn := r.onDayStart
	if p == phaseEnd {
		typ = EventDayEnd
		fn = r.onDayEnd
	}
	r.publish(typ, DayEvent{Day: day})
	if fn != nil {
		fn(ctx)
	}
}
