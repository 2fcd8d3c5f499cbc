package routine

import (
	"time"

	"routined/internal/runtime/supervisor"
)

// Snapshot is a point-in-time view of the runner for status reports.
type Snapshot struct {
	Now            time.Time     `json:"now"`
	Location       string        `json:"location"`
	DailyWindow    string        `json:"daily_window"`
	PreStartWindow time.Duration `json:"pre_start_window"`

	Entries     int       `json:"entries"`
	DaysOff     []string  `json:"days_off,omitempty"`
	DatesOff    []string  `json:"dates_off,omitempty"`
	DayOffToday bool      `json:"day_off_today"`
	LastNewDay  time.Time `json:"last_new_day,omitempty"`

	PendingBatches int       `json:"pending_batches"`
	PendingTasks   int       `json:"pending_tasks"`
	NextWake       time.Time `json:"next_wake,omitempty"`
	Merged         uint64    `json:"merged"`

	Submitted  uint64 `json:"submitted"`
	Suppressed uint64 `json:"suppressed"`
	Duplicates uint64 `json:"duplicates"`
	Dropped    uint64 `json:"dropped"`
	Failed     uint64 `json:"failed"`

	Running bool                 `json:"running"`
	Loops   *supervisor.Snapshot `json:"loops,omitempty"`
}

func (r *Runner) Snapshot() Snapshot {
	now := r.clock.Now().In(r.loc)
	snap := Snapshot{
		Now:            now,
		Location:       r.loc.String(),
		DailyWindow:    r.daily.String(),
		PreStartWindow: r.cfg.PreStartWindow,
		Submitted:      r.submitted.Load(),
		Suppressed:     r.suppressed.Load(),
		Duplicates:     r.duplicates.Load(),
		Dropped:        r.dropped.Load(),
		Failed:         r.failed.Load(),
	}

	r.mu.Lock()
	snap.Entries = len(r.entries)
	snap.DaysOff, snap.DatesOff = r.off.lists()
	snap.DayOffToday = r.off.contains(now)
	snap.LastNewDay = r.lastNewDay
	r.mu.Unlock()

	ds := r.disp.stats()
	snap.PendingBatches = ds.Batches
	snap.PendingTasks = ds.Tasks
	snap.NextWake = ds.NextWake
	snap.Merged = ds.Merged

	r.lifeMu.Lock()
	sup := r.sup
	r.lifeMu.Unlock()
	if sup != nil {
		ls := sup.Snapshot()
		snap.Running = true
		snap.Loops = &ls
	}
	return snap
}
