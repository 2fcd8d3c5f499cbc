package config

import (
	"maps"
	"slices"
	"strings"

	logx "routined/pkg/logx"
)

// SummarizeConfigChange returns the changed sections and safe structured
// attrs for logging. Secrets (passwords, header values) never appear.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 16)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	or, nr := oldCfg.Routine, newCfg.Routine
	if strings.TrimSpace(or.DailyStart) != strings.TrimSpace(nr.DailyStart) ||
		strings.TrimSpace(or.DailyEnd) != strings.TrimSpace(nr.DailyEnd) ||
		or.PreStartWindow != nr.PreStartWindow ||
		or.PollInterval != nr.PollInterval ||
		or.MaxPendingBatches != nr.MaxPendingBatches ||
		or.Timezone != nr.Timezone ||
		!slices.Equal(or.DaysOff, nr.DaysOff) ||
		!slices.Equal(or.DatesOff, nr.DatesOff) ||
		!tasksEqual(or.Tasks, nr.Tasks) {
		changed = append(changed, "routine")
		attrs = append(attrs,
			logx.String("routine.daily_start", nr.DailyStart),
			logx.String("routine.daily_end", nr.DailyEnd),
			logx.Int("routine.tasks", len(nr.Tasks)),
			logx.Int("routine.days_off", len(nr.DaysOff)),
			logx.Int("routine.dates_off", len(nr.DatesOff)),
		)
	}

	var oldSt, newSt StorageConfig
	if oldCfg.Storage != nil {
		oldSt = *oldCfg.Storage
	}
	if newCfg.Storage != nil {
		newSt = *newCfg.Storage
	}
	if oldSt != newSt {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", newSt.Driver),
			logx.Bool("storage.password_set", newSt.Password != ""),
		)
	}

	if !submitEqual(oldCfg.Submit, newCfg.Submit) {
		changed = append(changed, "submit")
		attrs = append(attrs,
			logx.Bool("submit.log", newCfg.Submit.Log),
			logx.Bool("submit.http", newCfg.Submit.HTTP != nil),
			logx.Bool("submit.redis", newCfg.Submit.Redis != nil),
		)
	}

	if oldCfg.Status != newCfg.Status {
		changed = append(changed, "status")
		attrs = append(attrs,
			logx.Bool("status.enabled", newCfg.Status.Enabled),
			logx.String("status.schedule", StatusSchedule(newCfg.Status)),
		)
	}

	return changed, attrs
}

func tasksEqual(a, b []TaskConfig) bool {
	return slices.EqualFunc(a, b, TaskConfig.Equal)
}

// Equal compares every field, Args included.
func (t TaskConfig) Equal(o TaskConfig) bool {
	return t.Name == o.Name && t.Action == o.Action && t.StartNodeID == o.StartNodeID &&
		t.MaxDuration == o.MaxDuration && t.Repeat == o.Repeat && maps.Equal(t.Args, o.Args)
}

func submitEqual(a, b SubmitConfig) bool {
	if a.Log != b.Log || (a.HTTP == nil) != (b.HTTP == nil) || (a.Redis == nil) != (b.Redis == nil) {
		return false
	}
	if a.HTTP != nil && (a.HTTP.URL != b.HTTP.URL || a.HTTP.Timeout != b.HTTP.Timeout || !maps.Equal(a.HTTP.Headers, b.HTTP.Headers)) {
		return false
	}
	if a.Redis != nil && *a.Redis != *b.Redis {
		return false
	}
	return true
}
