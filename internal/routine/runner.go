package routine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"routined/internal/eventbus"
	"routined/internal/runtime/supervisor"
	"routined/internal/storage"
	logx "routined/pkg/logx"
)

const (
	DefaultPreStartWindow    = 15 * time.Minute
	DefaultPollInterval      = time.Second
	DefaultMaxPendingBatches = 64
)

// Config is the runner's static configuration.
type Config struct {
	DailyStart TimeOfDay
	DailyEnd   TimeOfDay

	// PreStartWindow is how long before StartAfter a task becomes ready.
	PreStartWindow time.Duration
	// PollInterval is how often waits re-read the clock.
	PollInterval time.Duration
	// MaxPendingBatches bounds the dispatcher; 0 means default.
	MaxPendingBatches int
	// Location is where days begin and end; nil means time.Local.
	Location *time.Location
}

func (c Config) withDefaults() Config {
	if c.PreStartWindow <= 0 {
		c.PreStartWindow = DefaultPreStartWindow
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxPendingBatches <= 0 {
		c.MaxPendingBatches = DefaultMaxPendingBatches
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	return c
}

type Option func(*Runner)

func WithClock(c Clock) Option {
	return func(r *Runner) {
		if c != nil {
			r.clock = c
		}
	}
}

func WithLogger(log logx.Logger) Option { return func(r *Runner) { r.log = log } }

// WithStore enables submission dedup and the submission audit.
func WithStore(st storage.Store) Option { return func(r *Runner) { r.store = st } }

func WithBus(b eventbus.Bus) Option { return func(r *Runner) { r.bus = b } }

// WithAllowed sets the admission predicate consulted before every submission.
func WithAllowed(fn func() bool) Option { return func(r *Runner) { r.allowed = fn } }

// WithDayStart sets a callback fired once per day when daily_start is reached.
func WithDayStart(fn func(ctx context.Context)) Option { return func(r *Runner) { r.onDayStart = fn } }

// WithDayEnd sets a callback fired once per day when daily_end is reached.
func WithDayEnd(fn func(ctx context.Context)) Option { return func(r *Runner) { r.onDayEnd = fn } }

// Runner owns the routine entries and the day-off sets and drives the daily
// cycle.
type Runner struct {
	cfg   Config
	daily Window
	loc   *time.Location
	clock Clock
	sub   Submitter
	store storage.Store
	bus   eventbus.Bus
	log   logx.Logger
	warn  *logx.Throttle

	allowed    func() bool
	onDayStart func(ctx context.Context)
	onDayEnd   func(ctx context.Context)

	mu         sync.Mutex
	entries    []Entry
	keySeq     map[string]int
	off        *dayOffSet
	fired      map[dayPhase]string
	currentDay string
	lastNewDay time.Time

	disp *dispatcher

	submitted  atomic.Uint64
	suppressed atomic.Uint64
	duplicates atomic.Uint64
	dropped    atomic.Uint64
	failed     atomic.Uint64

	lifeMu sync.Mutex
	sup    *supervisor.Supervisor
}

// NewRunner validates cfg and builds an idle runner. Call Start to run the
// daily cycle.
func NewRunner(cfg Config, sub Submitter, opts ...Option) (*Runner, error) {
	if sub == nil {
		return nil, errors.New("routine: submitter required")
	}
	cfg = cfg.withDefaults()
	daily := Window{Start: cfg.DailyStart, End: cfg.DailyEnd}
	if !daily.Start.Valid() || !daily.End.Valid() || !daily.Valid() {
		return nil, fmt.Errorf("daily window %s: %w", daily, ErrInvalidWindow)
	}

	r := &Runner{
		cfg:     cfg,
		daily:   daily,
		loc:     cfg.Location,
		clock:   SystemClock{},
		sub:     sub,
		allowed: func() bool { return true },
		keySeq:  map[string]int{},
		fired:   map[dayPhase]string{},
		warn:    logx.NewThrottle(5*time.Second, 1),
	}
	for _, o := range opts {
		if o != nil {
			o(r)
		}
	}
	if r.log.IsZero() {
		r.log = logx.Nop()
	}
	if r.allowed == nil {
		r.allowed = func() bool { return true }
	}
	now := r.clock.Now().In(r.loc)
	r.off = newDayOffSet(now)
	r.currentDay = now.Format(dateLayout)
	r.disp = newDispatcher(r.clock, cfg.PollInterval, cfg.MaxPendingBatches, r.log, r.reclassify)
	return r, nil
}

// AddTasks stores one entry per (routine, task) and places them for today.
//
// Each window is first bounded by the daily window. Every entry is checked
// before any is stored, so a failing call leaves the runner unchanged.
// Placement for today is non-strict: tasks whose window has already passed
// are dropped for today and kept for the following days. When the clock has
// crossed midnight but NewDay has not run yet, placement is left to NewDay.
func (r *Runner) AddTasks(ctx context.Context, routines []Routine) error {
	type candidate struct {
		window Window
		task   Task
	}
	var add []candidate
	for _, rt := range routines {
		w, startClamped, endClamped := rt.Window.Clamp(r.daily)
		if startClamped || endClamped {
			r.log.Info("bounding routine window to daily window",
				logx.String("window", rt.Window.String()),
				logx.String("bounded", w.String()),
			)
		}
		for _, t := range rt.Tasks {
			if err := CheckWindow(w, t); err != nil {
				return err
			}
			add = append(add, candidate{window: w, task: t.Clone()})
		}
	}
	if len(add) == 0 {
		return nil
	}

	r.mu.Lock()
	added := make([]Entry, 0, len(add))
	for _, c := range add {
		base := c.task.Name + "@" + c.window.String()
		n := r.keySeq[base]
		r.keySeq[base] = n + 1
		e := Entry{Key: fmt.Sprintf("%s#%d", base, n), Window: c.window, Task: c.task}
		r.entries = append(r.entries, e)
		added = append(added, e)
	}
	total := len(r.entries)
	day := r.currentDay
	now := r.clock.Now().In(r.loc)
	r.mu.Unlock()

	r.log.Info("routine entries added", logx.Int("added", len(added)), logx.Int("total", total))

	// Past midnight but before NewDay: the pending NewDay sees these entries.
	if now.Format(dateLayout) != day {
		r.log.Debug("new day pending, placement deferred to it", logx.String("day", day))
		return nil
	}
	return r.place(ctx, InstantiateForDay(added, now, r.loc), false)
}

// AddDayOff marks a weekday as a day without submissions. name must be one
// of the exact names Weekdays returns, e.g. "Saturday".
func (r *Runner) AddDayOff(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.off.addDay(name)
}

// AddDateOff marks one calendar date as a day without submissions. The date's
// own year, month and day are used.
func (r *Runner) AddDateOff(date time.Time) {
	r.mu.Lock()
	k := r.off.addDate(date)
	r.mu.Unlock()
	r.log.Debug("date off added", logx.String("date", k))
}

// IsDayOff reports whether submissions are suppressed on now's date.
func (r *Runner) IsDayOff(now time.Time) bool {
	now = now.In(r.loc)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.off.contains(now)
}

// Weekdays returns the accepted AddDayOff names, starting at the day the
// runner was built.
func (r *Runner) Weekdays() []string {
	return slices.Clone(r.off.weekdays)
}

// Entries returns a copy of the stored entries.
func (r *Runner) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		out[i] = e
		out[i].Task = e.Task.Clone()
	}
	return out
}

// NewDay instantiates every stored entry for the clock's current date and
// places the instances. The midnight loop calls it; it is exported for
// manual triggering.
func (r *Runner) NewDay(ctx context.Context) {
	now := r.clock.Now().In(r.loc)

	day := now.Format(dateLayout)

	r.mu.Lock()
	entries := slices.Clone(r.entries)
	r.lastNewDay = now
	if day > r.currentDay {
		r.currentDay = day
	}
	r.mu.Unlock()

	r.log.Info("new day", logx.String("day", day), logx.Int("entries", len(entries)))
	r.publish(EventNewDay, DayEvent{Day: day})

	_ = r.place(ctx, InstantiateForDay(entries, now, r.loc), false)
}

// place classifies tasks at the current instant and routes the result.
func (r *Runner) place(ctx context.Context, tasks []Task, strict bool) error {
	if len(tasks) == 0 {
		return nil
	}
	now := r.clock.Now()
	c, err := Classify(tasks, now, r.cfg.PreStartWindow, strict)
	if err != nil {
		return err
	}
	r.log.Info("tasks classified",
		logx.Int("ready", len(c.Ready)),
		logx.Int("deferred", len(c.Deferred)),
		logx.Int("dropped", len(c.Dropped)),
	)
	r.route(ctx, c, now, true)
	return nil
}

// reclassify is the dispatcher's expiry path: always non-strict, and any
// remainder goes back on the heap rather than being retried inline.
func (r *Runner) reclassify(ctx context.Context, tasks []Task) {
	now := r.clock.Now()
	c, _ := Classify(tasks, now, r.cfg.PreStartWindow, false)
	r.log.Debug("deferred tasks reclassified",
		logx.Int("ready", len(c.Ready)),
		logx.Int("deferred", len(c.Deferred)),
		logx.Int("dropped", len(c.Dropped)),
	)
	r.route(ctx, c, now, false)
}

func (r *Runner) route(ctx context.Context, c Classification, now time.Time, allowImmediate bool) {
	r.noteDropped(c.Dropped, now)
	r.deferTasks(ctx, c.Deferred, now, allowImmediate)
	r.submit(ctx, c.Ready)
}

// deferTasks parks tasks until the earliest of them reaches its
// pre-submission offset. A target already past is reclassified immediately
// when allowImmediate is set.
func (r *Runner) deferTasks(ctx context.Context, tasks []Task, now time.Time, allowImmediate bool) {
	if len(tasks) == 0 {
		return
	}
	target := earliestStart(tasks).Add(-r.cfg.PreStartWindow)
	if allowImmediate && target.Before(now) {
		r.reclassify(ctx, tasks)
		return
	}
	r.log.Debug("delaying tasks",
		logx.Int("tasks", len(tasks)),
		logx.Time("until", target),
		logx.Duration("delay", target.Sub(now)),
	)
	r.disp.push(target, tasks)
}

func (r *Runner) noteDropped(tasks []Task, now time.Time) {
	if len(tasks) == 0 {
		return
	}
	r.dropped.Add(uint64(len(tasks)))
	for _, t := range tasks {
		r.log.Debug("task too late to schedule, dropped",
			logx.String("task", t.Name),
			logx.Time("end_before", t.EndBefore),
			logx.Duration("max_duration", t.MaxDuration),
			logx.Time("now", now),
		)
	}
	r.publish(EventDropped, BatchEvent{Day: now.In(r.loc).Format(dateLayout), Tasks: taskNames(tasks), Reason: "infeasible"})
}

func (r *Runner) publish(typ string, data any) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(eventbus.Event{Type: typ, Time: r.clock.Now(), Data: data})
}

// Start launches the dispatcher, the midnight loop and, when a day callback
// is set, the day-window loop. It is a no-op if already started.
func (r *Runner) Start(ctx context.Context) error {
	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()
	if r.sup != nil {
		return nil
	}
	sup := supervisor.New(ctx, supervisor.WithLogger(r.log))
	sup.GoRestart("routine.dispatcher", r.disp.run)
	sup.GoRestart("routine.midnight", r.runMidnightLoop)
	if r.onDayStart != nil || r.onDayEnd != nil {
		sup.GoRestart("routine.day_window", r.runDayWindowLoop)
	}
	r.sup = sup
	r.log.Info("runner started",
		logx.String("daily_window", r.daily.String()),
		logx.Duration("pre_start_window", r.cfg.PreStartWindow),
		logx.Duration("poll_interval", r.cfg.PollInterval),
		logx.String("tz", r.loc.String()),
	)
	return nil
}

// Stop cancels the background loops and waits for them within ctx.
// Pending deferred batches are discarded.
func (r *Runner) Stop(ctx context.Context) error {
	r.lifeMu.Lock()
	sup := r.sup
	r.sup = nil
	r.lifeMu.Unlock()
	if sup == nil {
		return nil
	}
	start := time.Now()
	err := sup.Stop(ctx)
	if n := r.disp.reset(); n > 0 {
		r.log.Info("discarded pending batches", logx.Int("batches", n))
	}
	r.log.Info("runner stopped", logx.Duration("took", time.Since(start)))
	return err
}
