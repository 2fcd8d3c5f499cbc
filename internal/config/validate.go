package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"routined/internal/routine"
)

// DefaultStatusSchedule is used when status.schedule is empty.
const DefaultStatusSchedule = "@every 15m"

// Validate checks everything the daemon would otherwise only find at startup
// or on the next reload. Errors from all sections are joined.
func Validate(_ context.Context, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error

	rc, err := cfg.Routine.RunnerConfig()
	if err != nil {
		errs = append(errs, err)
	} else {
		if _, err := cfg.Routine.Routines(rc.DailyStart, rc.DailyEnd); err != nil {
			errs = append(errs, err)
		}
		if _, err := cfg.Routine.Dates(rc.Location); err != nil {
			errs = append(errs, err)
		}
		if _, _, _, err := cfg.Routine.SimulationStart(rc.Location); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, validateDaysOff(cfg.Routine.DaysOff))

	if st := cfg.Storage; st != nil {
		switch strings.ToLower(strings.TrimSpace(st.Driver)) {
		case "", "none", "file", "sqlite", "sqlite3":
		case "redis":
			if strings.TrimSpace(st.Addr) == "" {
				errs = append(errs, errors.New("storage.addr required for redis"))
			}
		default:
			errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", st.Driver))
		}
		if _, err := ParseDurationField("storage.busy_timeout", st.BusyTimeout); err != nil {
			errs = append(errs, err)
		}
	}

	if h := cfg.Submit.HTTP; h != nil {
		u, err := url.Parse(strings.TrimSpace(h.URL))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("submit.http.url: invalid URL %q", h.URL))
		}
		if _, err := ParseDurationField("submit.http.timeout", h.Timeout); err != nil {
			errs = append(errs, err)
		}
	}
	if r := cfg.Submit.Redis; r != nil && strings.TrimSpace(r.Addr) == "" {
		errs = append(errs, errors.New("submit.redis.addr required"))
	}

	if cfg.Status.Enabled {
		if _, err := cron.ParseStandard(StatusSchedule(cfg.Status)); err != nil {
			errs = append(errs, fmt.Errorf("status.schedule: %w", err))
		}
	}

	return errors.Join(errs...)
}

// validateDaysOff accepts English weekday names in any case.
func validateDaysOff(days []string) error {
	for i, d := range days {
		if _, ok := CanonicalWeekday(d); !ok {
			return fmt.Errorf("routine.days_off[%d]: %q: %w", i, d, routine.ErrUnknownWeekday)
		}
	}
	return nil
}

// CanonicalWeekday maps a config weekday ("sunday", " SUNDAY") to the exact
// name the runner accepts ("Sunday").
func CanonicalWeekday(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), name) {
			return d.String(), true
		}
	}
	return "", false
}

// StatusSchedule returns the configured schedule or the default.
func StatusSchedule(c StatusConfig) string {
	if s := strings.TrimSpace(c.Schedule); s != "" {
		return s
	}
	return DefaultStatusSchedule
}
