package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"routined/internal/config"
	"routined/internal/eventbus"
	"routined/internal/routine"
	"routined/internal/storage"
	logx "routined/pkg/logx"
)

// newRunner builds the runner from the routine section and registers the
// configured days and dates off. Tasks are added separately (addTasks).
func newRunner(cfg *Config, sub routine.Submitter, store storage.Store, bus eventbus.Bus, log logx.Logger) (*routine.Runner, routine.Config, error) {
	rc, err := cfg.Routine.RunnerConfig()
	if err != nil {
		return nil, routine.Config{}, err
	}
	opts := []routine.Option{
		routine.WithLogger(log),
		routine.WithBus(bus),
		routine.WithDayStart(func(context.Context) { log.Info("daily window opened") }),
		routine.WithDayEnd(func(context.Context) { log.Info("daily window closed") }),
	}
	if store != nil {
		opts = append(opts, routine.WithStore(store))
	}

	start, rate, simulated, err := cfg.Routine.SimulationStart(rc.Location)
	if err != nil {
		return nil, routine.Config{}, err
	}
	if simulated {
		clk := routine.NewScaledClock(start, rate)
		opts = append(opts, routine.WithClock(clk))
		log.Warn("using simulated clock", logx.Time("origin", start), logx.Any("rate", clk.Rate()))
	}

	r, err := routine.NewRunner(rc, sub, opts...)
	if err != nil {
		return nil, routine.Config{}, err
	}
	if err := addDaysOff(r, cfg.Routine.DaysOff, cfg.Routine.DatesOff, rc); err != nil {
		return nil, routine.Config{}, err
	}
	return r, rc, nil
}

func addDaysOff(r *routine.Runner, days, dates []string, rc routine.Config) error {
	for _, d := range days {
		name, ok := config.CanonicalWeekday(d)
		if !ok {
			return fmt.Errorf("routine.days_off: %q: %w", d, routine.ErrUnknownWeekday)
		}
		if err := r.AddDayOff(name); err != nil {
			return fmt.Errorf("routine.days_off: %w", err)
		}
	}
	parsed, err := config.RoutineConfig{DatesOff: dates}.Dates(rc.Location)
	if err != nil {
		return err
	}
	for _, d := range parsed {
		r.AddDateOff(d)
	}
	return nil
}

// addTasks builds the named tasks (all when names is nil) and adds them.
func addTasks(ctx context.Context, r *routine.Runner, rcfg config.RoutineConfig, rc routine.Config, names []string) (int, error) {
	if names != nil {
		rcfg.Tasks = slices.DeleteFunc(slices.Clone(rcfg.Tasks), func(tc config.TaskConfig) bool {
			return !slices.Contains(names, strings.TrimSpace(tc.Name))
		})
	}
	if len(rcfg.Tasks) == 0 {
		return 0, nil
	}
	routines, err := rcfg.Routines(rc.DailyStart, rc.DailyEnd)
	if err != nil {
		return 0, err
	}
	if err := r.AddTasks(ctx, routines); err != nil {
		return 0, err
	}
	return len(rcfg.Tasks), nil
}

// routineUpdate is what a reload can apply to a running runner. The runner
// only grows: removed or edited entries need a restart.
type routineUpdate struct {
	DaysOff  []string
	DatesOff []string
	NewTasks []string

	RestartRequired []string
}

func (u routineUpdate) empty() bool {
	return len(u.DaysOff) == 0 && len(u.DatesOff) == 0 && len(u.NewTasks) == 0 && len(u.RestartRequired) == 0
}

func diffRoutine(oldCfg, newCfg config.RoutineConfig) routineUpdate {
	var u routineUpdate
	if strings.TrimSpace(oldCfg.DailyStart) != strings.TrimSpace(newCfg.DailyStart) ||
		strings.TrimSpace(oldCfg.DailyEnd) != strings.TrimSpace(newCfg.DailyEnd) {
		u.RestartRequired = append(u.RestartRequired, "daily window")
	}
	if oldCfg.PreStartWindow != newCfg.PreStartWindow || oldCfg.PollInterval != newCfg.PollInterval ||
		oldCfg.MaxPendingBatches != newCfg.MaxPendingBatches || oldCfg.Timezone != newCfg.Timezone {
		u.RestartRequired = append(u.RestartRequired, "runner settings")
	}
	if (oldCfg.Simulation == nil) != (newCfg.Simulation == nil) ||
		(oldCfg.Simulation != nil && *oldCfg.Simulation != *newCfg.Simulation) {
		u.RestartRequired = append(u.RestartRequired, "simulation")
	}

	sameDay := func(a, b string) bool { return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) }
	for _, d := range newCfg.DaysOff {
		if !slices.ContainsFunc(oldCfg.DaysOff, func(o string) bool { return sameDay(o, d) }) {
			u.DaysOff = append(u.DaysOff, d)
		}
	}
	for _, d := range newCfg.DatesOff {
		if !slices.Contains(oldCfg.DatesOff, d) {
			u.DatesOff = append(u.DatesOff, d)
		}
	}
	removedDay := slices.ContainsFunc(oldCfg.DaysOff, func(o string) bool {
		return !slices.ContainsFunc(newCfg.DaysOff, func(d string) bool { return sameDay(o, d) })
	})
	removedDate := slices.ContainsFunc(oldCfg.DatesOff, func(o string) bool { return !slices.Contains(newCfg.DatesOff, o) })
	if removedDay || removedDate {
		u.RestartRequired = append(u.RestartRequired, "removed days off")
	}

	oldTasks := map[string]config.TaskConfig{}
	for _, tc := range oldCfg.Tasks {
		oldTasks[strings.TrimSpace(tc.Name)] = tc
	}
	editedTasks := false
	for _, tc := range newCfg.Tasks {
		name := strings.TrimSpace(tc.Name)
		prev, ok := oldTasks[name]
		if !ok {
			u.NewTasks = append(u.NewTasks, name)
			continue
		}
		delete(oldTasks, name)
		if !prev.Equal(tc) {
			editedTasks = true
		}
	}
	if editedTasks || len(oldTasks) > 0 {
		u.RestartRequired = append(u.RestartRequired, "edited or removed tasks")
	}
	return u
}
