package config

import (
	"fmt"
	"strings"
	"time"

	"routined/internal/routine"
)

// Location resolves Timezone; empty means time.Local.
func (c RoutineConfig) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("routine.timezone: %w", err)
	}
	return loc, nil
}

// RunnerConfig converts the section into a routine.Config.
func (c RoutineConfig) RunnerConfig() (routine.Config, error) {
	var out routine.Config
	var err error
	if out.DailyStart, err = routine.ParseTimeOfDay(c.DailyStart); err != nil {
		return routine.Config{}, fmt.Errorf("routine.daily_start: %w", err)
	}
	if out.DailyEnd, err = routine.ParseTimeOfDay(c.DailyEnd); err != nil {
		return routine.Config{}, fmt.Errorf("routine.daily_end: %w", err)
	}
	if !out.DailyStart.Before(out.DailyEnd) {
		return routine.Config{}, fmt.Errorf("routine: daily_start %s must be before daily_end %s: %w",
			out.DailyStart, out.DailyEnd, routine.ErrInvalidWindow)
	}
	if out.PreStartWindow, err = ParseDurationOrDefault("routine.pre_start_window", c.PreStartWindow, routine.DefaultPreStartWindow); err != nil {
		return routine.Config{}, err
	}
	if out.PollInterval, err = ParseDurationOrDefault("routine.poll_interval", c.PollInterval, routine.DefaultPollInterval); err != nil {
		return routine.Config{}, err
	}
	if c.MaxPendingBatches < 0 {
		return routine.Config{}, fmt.Errorf("routine.max_pending_batches must be >= 0")
	}
	out.MaxPendingBatches = c.MaxPendingBatches
	if out.Location, err = c.Location(); err != nil {
		return routine.Config{}, err
	}
	return out, nil
}

// Routines builds the configured tasks into routines for the daily window.
func (c RoutineConfig) Routines(dailyStart, dailyEnd routine.TimeOfDay) ([]routine.Routine, error) {
	b := routine.NewBuilder(dailyStart, dailyEnd)
	seen := map[string]struct{}{}
	for i, tc := range c.Tasks {
		path := fmt.Sprintf("routine.tasks[%d]", i)
		name := strings.TrimSpace(tc.Name)
		if name == "" {
			return nil, fmt.Errorf("%s.name required", path)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%s: duplicate task name %q", path, name)
		}
		seen[name] = struct{}{}

		maxDur, err := ParseDurationField(path+".max_duration", tc.MaxDuration)
		if err != nil {
			return nil, err
		}
		spec, err := routine.ParseRepeat(tc.Repeat)
		if err != nil {
			return nil, fmt.Errorf("%s.repeat: %w", path, err)
		}
		task := routine.Task{
			Name:        name,
			Action:      strings.TrimSpace(tc.Action),
			StartNodeID: strings.TrimSpace(tc.StartNodeID),
			MaxDuration: maxDur,
			Args:        tc.Args,
		}
		spec.Apply(b, []routine.Task{task})
	}
	return b.Routines(), nil
}

// Dates parses DatesOff ("YYYY-MM-DD") in loc.
func (c RoutineConfig) Dates(loc *time.Location) ([]time.Time, error) {
	out := make([]time.Time, 0, len(c.DatesOff))
	for i, raw := range c.DatesOff {
		d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(raw), loc)
		if err != nil {
			return nil, fmt.Errorf("routine.dates_off[%d]: invalid date %q (use YYYY-MM-DD)", i, raw)
		}
		out = append(out, d)
	}
	return out, nil
}

// SimulationStart parses Simulation.Start; ok is false without simulation.
func (c RoutineConfig) SimulationStart(loc *time.Location) (start time.Time, rate float64, ok bool, err error) {
	if c.Simulation == nil {
		return time.Time{}, 0, false, nil
	}
	raw := strings.TrimSpace(c.Simulation.Start)
	if raw == "" {
		start = time.Now().In(loc)
	} else if start, err = time.Parse(time.RFC3339, raw); err != nil {
		return time.Time{}, 0, false, fmt.Errorf("routine.simulation.start: invalid time %q (use RFC3339)", raw)
	}
	if c.Simulation.Rate < 0 {
		return time.Time{}, 0, false, fmt.Errorf("routine.simulation.rate must be >= 0")
	}
	return start, c.Simulation.Rate, true, nil
}
