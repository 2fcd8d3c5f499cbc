package routine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CheckWindow reports whether task can run inside w at all.
func CheckWindow(w Window, task Task) error {
	if !w.Valid() {
		return fmt.Errorf("task %q: window %s: %w", task.Name, w, ErrInvalidWindow)
	}
	if w.Length() < task.MaxDuration {
		return fmt.Errorf("task %q: window %s for max duration %s: %w", task.Name, w, task.MaxDuration, ErrWindowTooShort)
	}
	return nil
}

// Instantiate binds e to the calendar date of day in loc. The returned task
// gets a fresh ID.
func Instantiate(e Entry, day time.Time, loc *time.Location) Task {
	t := e.Task.Clone()
	t.ID = uuid.NewString()
	t.EntryKey = e.Key
	t.StartAfter = e.Window.Start.On(day, loc)
	t.EndBefore = e.Window.End.On(day, loc)
	return t
}

func InstantiateForDay(entries []Entry, day time.Time, loc *time.Location) []Task {
	out := make([]Task, 0, len(entries))
	for _, e := range entries {
		out = append(out, Instantiate(e, day, loc))
	}
	return out
}

// Classification is the outcome of Classify. Ready, Deferred and Dropped are
// disjoint.
type Classification struct {
	Ready    []Task
	Deferred []Task
	Dropped  []Task // infeasible; only filled when not strict
}

// Classify sorts tasks by admission at now.
//
// Feasibility is checked first: a task that can no longer finish before its
// EndBefore is infeasible even if it is not open yet. When strict, the first
// infeasible task fails the whole call with ErrTaskUnschedulable. A task is
// ready once now is past StartAfter-offset; everything else is deferred.
func Classify(tasks []Task, now time.Time, offset time.Duration, strict bool) (Classification, error) {
	var c Classification
	for _, t := range tasks {
		if now.Add(t.MaxDuration).After(t.EndBefore) {
			if strict {
				return Classification{}, fmt.Errorf("task %q must end before %s but needs %s from %s: %w",
					t.Name, t.EndBefore.Format(time.RFC3339), t.MaxDuration, now.Format(time.RFC3339), ErrTaskUnschedulable)
			}
			c.Dropped = append(c.Dropped, t)
			continue
		}
		if now.After(t.StartAfter.Add(-offset)) {
			c.Ready = append(c.Ready, t)
		} else {
			c.Deferred = append(c.Deferred, t)
		}
	}
	return c, nil
}
