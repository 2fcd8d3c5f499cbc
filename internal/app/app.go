package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"routined/internal/eventbus"
	"routined/internal/routine"
	"routined/internal/storage"
	"routined/internal/submit"
	logx "routined/pkg/logx"
	"routined/pkg/systemd"
)

type App struct {
	cfgPath string

	cfgm *ConfigManager
	sup  *Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	closeSubmit func() error

	runner *routine.Runner
	rc     routine.Config
	status *statusReporter
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := NewConfigManager(cfgPath)
	cfg, err := cfgm.Load(context.Background())
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	// Storage (optional)
	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	subCfg, err := mapSubmitConfig(cfg)
	if err != nil {
		closeStore(store)
		return nil, err
	}
	sub, closeSubmit, err := submit.New(subCfg, log.With(logx.String("comp", "submit")))
	if err != nil {
		closeStore(store)
		return nil, err
	}

	runner, rc, err := newRunner(cfg, sub, store, bus, log.With(logx.String("comp", "routine")))
	if err != nil {
		_ = closeSubmit()
		closeStore(store)
		return nil, err
	}

	return &App{
		cfgPath:     cfgPath,
		cfgm:        cfgm,
		log:         log,
		logs:        logSvc,
		bus:         bus,
		store:       store,
		closeSubmit: closeSubmit,
		runner:      runner,
		rc:          rc,
		status:      newStatusReporter(runner, rc.Location, log.With(logx.String("comp", "status"))),
	}, nil
}

func closeStore(st storage.Store) {
	if st != nil {
		_ = st.Close()
	}
}

func mapLoggingConfig(cfg *Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

// Runner exposes the routine runner (status, manual NewDay).
func (a *App) Runner() *routine.Runner { return a.runner }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = NewSupervisor(ctx, WithLogger(a.log), WithCancelOnError(true))
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))

	// Lifecycle events for observability; submissions are logged by the runner itself.
	events, unsub := a.bus.Subscribe(128, "routine.")
	a.sup.Go("eventbus.log", func(c context.Context) error {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				a.logEvent(e)
			}
		}
	})

	if err := a.runner.Start(a.sup.Context()); err != nil {
		return err
	}
	cfg := a.cfgm.Get()
	n, err := addTasks(a.sup.Context(), a.runner, cfg.Routine, a.rc, nil)
	if err != nil {
		return err
	}
	a.log.Info("routine tasks loaded", logx.Int("tasks", n), logx.Int("entries", len(a.runner.Entries())))

	if err := a.status.Apply(a.sup.Context(), cfg.Status); err != nil {
		return fmt.Errorf("status reporter: %w", err)
	}

	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return nil
			case newCfg, ok := <-sub:
				if !ok {
					return nil
				}
				a.applyConfig(c, lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})
	a.sup.Go("systemd.watchdog", func(c context.Context) error {
		return systemd.Watchdog(c, a.log.With(logx.String("comp", "systemd")))
	})

	a.log.Info("app started", logx.String("config", a.cfgPath))
	return nil
}

func (a *App) logEvent(e eventbus.Event) {
	switch d := e.Data.(type) {
	case routine.DayEvent:
		a.log.Debug("event", logx.String("type", e.Type), logx.String("day", d.Day))
	case routine.BatchEvent:
		fields := []logx.Field{logx.String("type", e.Type), logx.String("day", d.Day), logx.Strings("tasks", d.Tasks)}
		if d.Reason != "" {
			fields = append(fields, logx.String("reason", d.Reason))
		}
		if d.Err != "" {
			fields = append(fields, logx.String("err", d.Err))
		}
		a.log.Debug("event", fields...)
	default:
		a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
	}
}

// applyConfig applies what can change at runtime: logging, status schedule,
// added days/dates off and new tasks. The rest is logged as needing a restart.
func (a *App) applyConfig(ctx context.Context, oldCfg, newCfg *Config) {
	sections, attrs := SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Debug("config change summary", fields...)

	for _, s := range sections {
		switch s {
		case "logging":
			a.logs.Apply(mapLoggingConfig(newCfg))
		case "routine":
			a.applyRoutine(ctx, oldCfg, newCfg)
		case "status":
			if err := a.status.Apply(ctx, newCfg.Status); err != nil {
				a.log.Warn("invalid status config; keeping previous", logx.Err(err))
			}
		case "storage", "submit":
			a.log.Warn("config section changed; restart required for changes to take effect", logx.String("section", s))
		}
	}
	a.log.Info("config reloaded", fields...)
}

func (a *App) applyRoutine(ctx context.Context, oldCfg, newCfg *Config) {
	u := diffRoutine(oldCfg.Routine, newCfg.Routine)
	if u.empty() {
		return
	}
	if len(u.RestartRequired) > 0 {
		a.log.Warn("routine changes need a restart to take effect", logx.Strings("changes", u.RestartRequired))
	}
	if err := addDaysOff(a.runner, u.DaysOff, u.DatesOff, a.rc); err != nil {
		a.log.Warn("apply days off failed", logx.Err(err))
	}
	if len(u.NewTasks) > 0 {
		n, err := addTasks(ctx, a.runner, newCfg.Routine, a.rc, u.NewTasks)
		if err != nil {
			a.log.Warn("add tasks failed", logx.Strings("tasks", u.NewTasks), logx.Err(err))
			return
		}
		a.log.Info("routine tasks added", logx.Int("tasks", n))
	}
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// Cancel first so background loops start unwinding immediately.
	a.sup.Cancel()

	// step bounds one shutdown step so a stuck component can't stall the rest.
	step := func(name string, limit time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx := ctx
		if limit > 0 {
			var cancel context.CancelFunc
			stepCtx, cancel = context.WithTimeout(ctx, limit)
			defer cancel()
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Err(stepCtx.Err()),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	step("status", time.Second, func(c context.Context) error { a.status.Stop(c); return nil })
	step("runner", 3*time.Second, a.runner.Stop)
	step("submit", time.Second, func(context.Context) error { return a.closeSubmit() })
	step("storage", time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
