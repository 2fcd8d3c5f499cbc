package routine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RepeatKind is the normalized kind of a repeat string.
type RepeatKind int

const (
	RepeatDaily RepeatKind = iota
	RepeatPeriod
	RepeatWindow
)

func (k RepeatKind) String() string {
	switch k {
	case RepeatDaily:
		return "daily"
	case RepeatPeriod:
		return "period"
	case RepeatWindow:
		return "window"
	default:
		return "unknown"
	}
}

// RepeatSpec is a parsed repeat string.
//
// Supported forms (times defaults to 1):
//   - "daily", "daily x3"                 whole daily window
//   - "every 2h", "every 90m x2"          contiguous sub-windows of a period
//   - "every 01:30"                       period as HH:MM
//   - "08:00-10:00", "08:00-10:00 x2"     explicit window
//
// An optional "repeat:" prefix is ignored.
type RepeatSpec struct {
	Kind   RepeatKind
	Every  time.Duration
	Window Window
	Times  int
}

var (
	reRepeatTimes  = regexp.MustCompile(`^(.*?)\s+[xX](\d+)$`)
	reRepeatWindow = regexp.MustCompile(`^([0-9:.]+)\s*-\s*([0-9:.]+)$`)
	reHHMM         = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

// ParseRepeat parses a repeat string from the config file.
func ParseRepeat(raw string) (RepeatSpec, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(s), "repeat:") {
		s = strings.TrimSpace(s[len("repeat:"):])
	}
	if s == "" {
		return RepeatSpec{}, fmt.Errorf("repeat required")
	}

	spec := RepeatSpec{Times: 1}
	if m := reRepeatTimes.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[2])
		if err != nil || n < 1 {
			return RepeatSpec{}, fmt.Errorf("invalid repeat count in %q", raw)
		}
		spec.Times = n
		s = strings.TrimSpace(m[1])
	}

	low := strings.ToLower(s)
	switch {
	case low == "daily":
		spec.Kind = RepeatDaily
		return spec, nil

	case strings.HasPrefix(low, "every "):
		d, err := parsePeriod(strings.TrimSpace(s[len("every "):]))
		if err != nil {
			return RepeatSpec{}, fmt.Errorf("invalid repeat %q: %w", raw, err)
		}
		spec.Kind = RepeatPeriod
		spec.Every = d
		return spec, nil

	case reRepeatWindow.MatchString(s):
		m := reRepeatWindow.FindStringSubmatch(s)
		start, err := ParseTimeOfDay(m[1])
		if err != nil {
			return RepeatSpec{}, err
		}
		end, err := ParseTimeOfDay(m[2])
		if err != nil {
			return RepeatSpec{}, err
		}
		spec.Kind = RepeatWindow
		spec.Window = Window{Start: start, End: end}
		return spec, nil
	}

	return RepeatSpec{}, fmt.Errorf(
		"invalid repeat %q (use 'daily', 'every 2h', 'every 01:30' or '08:00-10:00', optionally followed by 'x2')",
		raw,
	)
}

func parsePeriod(v string) (time.Duration, error) {
	if m := reHHMM.FindStringSubmatch(v); m != nil {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if mm > 59 {
			return 0, fmt.Errorf("invalid minutes in %q", v)
		}
		d := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
		if d <= 0 {
			return 0, fmt.Errorf("period must be > 0")
		}
		return d, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid period %q (use HH:MM or Go duration like '90m')", v)
	}
	if d <= 0 {
		return 0, fmt.Errorf("period must be > 0")
	}
	return d, nil
}

// Apply adds tasks to b according to the spec.
func (s RepeatSpec) Apply(b *Builder, tasks []Task) *Builder {
	switch s.Kind {
	case RepeatDaily:
		return b.RepeatEveryDay(tasks, s.Times)
	case RepeatPeriod:
		return b.repeatEveryPeriod(tasks, s.Every, s.Times)
	case RepeatWindow:
		return b.RepeatEvery(tasks, s.Window.Start, s.Window.End, s.Times)
	}
	return b
}
