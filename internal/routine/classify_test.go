package routine

import (
	"errors"
	"testing"
	"time"
)

func TestCheckWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		w       Window
		max     time.Duration
		wantErr error
	}{
		{name: "ok", w: Window{Start: At(8, 0, 0), End: At(10, 0, 0)}, max: 2 * time.Hour},
		{name: "empty", w: Window{Start: At(10, 0, 0), End: At(10, 0, 0)}, wantErr: ErrInvalidWindow},
		{name: "reversed", w: Window{Start: At(11, 0, 0), End: At(10, 0, 0)}, wantErr: ErrInvalidWindow},
		{name: "too short", w: Window{Start: At(8, 0, 0), End: At(9, 0, 0)}, max: 61 * time.Minute, wantErr: ErrWindowTooShort},
	}
	for _, tt := range tests {
		err := CheckWindow(tt.w, patrol(tt.max))
		if tt.wantErr == nil {
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", tt.name, err)
			}
			continue
		}
		if !errors.Is(err, tt.wantErr) {
			t.Fatalf("%s: err = %v, want %v", tt.name, err, tt.wantErr)
		}
	}
}

func taskAt(name string, startAfter, endBefore time.Time, maxDuration time.Duration) Task {
	return Task{Name: name, MaxDuration: maxDuration, StartAfter: startAfter, EndBefore: endBefore}
}

func TestClassifyReadyWithinOffset(t *testing.T) {
	t.Parallel()

	now := day(19, 9, 0, 0)
	task := taskAt("patrol", now.Add(10*time.Minute), now.Add(2*time.Hour), 30*time.Minute)

	c, err := Classify([]Task{task}, now, 15*time.Minute, true)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(c.Ready) != 1 || len(c.Deferred) != 0 || len(c.Dropped) != 0 {
		t.Fatalf("got ready=%d deferred=%d dropped=%d, want 1/0/0", len(c.Ready), len(c.Deferred), len(c.Dropped))
	}
}

func TestClassifyInfeasibleBeforeReadiness(t *testing.T) {
	t.Parallel()

	now := day(19, 9, 0, 0)
	for _, startAfter := range []time.Time{now.Add(-time.Hour), now.Add(5 * time.Hour)} {
		task := taskAt("late", startAfter, now.Add(-time.Second), 0)

		if _, err := Classify([]Task{task}, now, 15*time.Minute, true); !errors.Is(err, ErrTaskUnschedulable) {
			t.Fatalf("strict: err = %v, want ErrTaskUnschedulable", err)
		}

		c, err := Classify([]Task{task}, now, 15*time.Minute, false)
		if err != nil {
			t.Fatalf("non-strict: %v", err)
		}
		if len(c.Dropped) != 1 || len(c.Ready)+len(c.Deferred) != 0 {
			t.Fatalf("non-strict: got %+v, want one dropped", c)
		}
	}
}

func TestClassifyPartitions(t *testing.T) {
	t.Parallel()

	now := day(19, 9, 0, 0)
	tasks := []Task{
		taskAt("ready", now.Add(-time.Minute), now.Add(time.Hour), 30*time.Minute),
		taskAt("later", now.Add(time.Hour), now.Add(3*time.Hour), 30*time.Minute),
		taskAt("no-time-left", now, now.Add(20*time.Minute), 30*time.Minute),
		taskAt("edge", now.Add(15*time.Minute), now.Add(time.Hour), 0),
	}

	c, err := Classify(tasks, now, 15*time.Minute, false)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got := taskNames(c.Ready); len(got) != 1 || got[0] != "ready" {
		t.Fatalf("ready = %v", got)
	}
	// now == StartAfter-offset is not yet ready.
	if got := taskNames(c.Deferred); len(got) != 2 || got[0] != "later" || got[1] != "edge" {
		t.Fatalf("deferred = %v", got)
	}
	if got := taskNames(c.Dropped); len(got) != 1 || got[0] != "no-time-left" {
		t.Fatalf("dropped = %v", got)
	}
}

func TestInstantiateOnTwoDates(t *testing.T) {
	t.Parallel()

	e := Entry{
		Key:    "patrol@10:00:00-12:00:00#0",
		Window: Window{Start: At(10, 0, 0), End: TimeOfDay{Hour: 12, Nanosecond: 5}},
		Task:   patrol(30 * time.Minute),
	}
	a := Instantiate(e, day(19, 3, 0, 0), time.UTC)
	b := Instantiate(e, day(22, 23, 0, 0), time.UTC)

	if TimeOf(a.StartAfter) != TimeOf(b.StartAfter) || TimeOf(a.EndBefore) != TimeOf(b.EndBefore) {
		t.Fatalf("time of day differs: %v/%v vs %v/%v", a.StartAfter, a.EndBefore, b.StartAfter, b.EndBefore)
	}
	if d := b.StartAfter.Sub(a.StartAfter); d != 72*time.Hour {
		t.Fatalf("dates differ by %s, want 72h", d)
	}
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("instances need distinct IDs: %q %q", a.ID, b.ID)
	}
	if a.EntryKey != e.Key {
		t.Fatalf("EntryKey = %q, want %q", a.EntryKey, e.Key)
	}

	a.Args["route"] = "west"
	if e.Task.Args["route"] != "east" {
		t.Fatal("instance shares args with its entry")
	}
}
