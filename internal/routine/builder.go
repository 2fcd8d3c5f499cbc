package routine

import "time"

// Builder collects (tasks, window) routines for a daily window.
//
// It does no validation; Runner.AddTasks owns feasibility checks.
type Builder struct {
	daily    Window
	routines []Routine
}

func NewBuilder(dailyStart, dailyEnd TimeOfDay) *Builder {
	return &Builder{daily: Window{Start: dailyStart, End: dailyEnd}}
}

// RepeatEveryDay runs tasks `times` times across the whole daily window.
func (b *Builder) RepeatEveryDay(tasks []Task, times int) *Builder {
	return b.RepeatEvery(tasks, b.daily.Start, b.daily.End, times)
}

// RepeatEveryMinutes partitions the daily window into sub-windows of the
// given length and runs tasks `times` times in each.
func (b *Builder) RepeatEveryMinutes(tasks []Task, minutes, times int) *Builder {
	return b.repeatEveryPeriod(tasks, time.Duration(minutes)*time.Minute, times)
}

// RepeatEveryHour is RepeatEveryMinutes in hours.
func (b *Builder) RepeatEveryHour(tasks []Task, hours, times int) *Builder {
	return b.repeatEveryPeriod(tasks, time.Duration(hours)*time.Hour, times)
}

func (b *Builder) repeatEveryPeriod(tasks []Task, period time.Duration, times int) *Builder {
	if period <= 0 {
		return b
	}
	start := b.daily.Start
	for start.Before(b.daily.End) {
		end := start.Add(period)
		if b.daily.End.Before(end) {
			end = b.daily.End
		}
		if !start.Before(end) {
			break
		}
		b.RepeatEvery(tasks, start, end, times)
		start = end
	}
	return b
}

// RepeatEvery appends `times` copies of (tasks, [start, end]).
func (b *Builder) RepeatEvery(tasks []Task, start, end TimeOfDay, times int) *Builder {
	for i := 0; i < times; i++ {
		cp := make([]Task, len(tasks))
		for j, t := range tasks {
			cp[j] = t.Clone()
		}
		b.routines = append(b.routines, Routine{Tasks: cp, Window: Window{Start: start, End: end}})
	}
	return b
}

// Routines returns a copy of the collected routines in insertion order.
func (b *Builder) Routines() []Routine {
	out := make([]Routine, len(b.routines))
	copy(out, b.routines)
	return out
}
