package routine

import (
	"maps"
	"time"
)

// Task is the payload handed to the Submitter.
//
// The runner only reads MaxDuration and writes StartAfter/EndBefore, once per
// instantiation. Everything else is carried through untouched.
type Task struct {
	ID          string            `json:"id,omitempty"`
	EntryKey    string            `json:"entry_key,omitempty"`
	Name        string            `json:"name"`
	Action      string            `json:"action,omitempty"`
	StartNodeID string            `json:"start_node_id,omitempty"`
	MaxDuration time.Duration     `json:"max_duration"`
	Args        map[string]string `json:"args,omitempty"`

	StartAfter time.Time `json:"start_after"`
	EndBefore  time.Time `json:"end_before"`
}

func (t Task) Clone() Task {
	cp := t
	if t.Args != nil {
		cp.Args = maps.Clone(t.Args)
	}
	return cp
}

// Entry is one stored (window, task) pair that recurs every day.
type Entry struct {
	Key    string `json:"key"`
	Window Window `json:"window"`
	Task   Task   `json:"task"`
}

// Routine is one builder output: every task in Tasks runs once in Window.
type Routine struct {
	Tasks  []Task
	Window Window
}

func earliestStart(tasks []Task) time.Time {
	var earliest time.Time
	for i, t := range tasks {
		if i == 0 || t.StartAfter.Before(earliest) {
			earliest = t.StartAfter
		}
	}
	return earliest
}

func taskNames(tasks []Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Name)
	}
	return out
}
