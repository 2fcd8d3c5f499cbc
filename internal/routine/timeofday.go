package routine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time without a date.
//
// Ordering is field by field (hour, minute, second, nanosecond). Never
// compare TimeOfDay values by converting them to time.Time.
type TimeOfDay struct {
	Hour       int
	Minute     int
	Second     int
	Nanosecond int
}

// Midnight is 00:00:00.
var Midnight = TimeOfDay{}

// EndOfDay is the last representable instant of a day.
var EndOfDay = TimeOfDay{Hour: 23, Minute: 59, Second: 59, Nanosecond: 999999999}

// At returns a TimeOfDay with whole seconds.
func At(hour, minute, second int) TimeOfDay {
	return TimeOfDay{Hour: hour, Minute: minute, Second: second}
}

// TimeOf extracts the time of day of t in t's own location.
func TimeOf(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(), Nanosecond: t.Nanosecond()}
}

var reTimeOfDay = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})(?::(\d{2})(?:\.(\d{1,9}))?)?\s*$`)

// ParseTimeOfDay parses "HH:MM", "HH:MM:SS" or "HH:MM:SS.fff".
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	m := reTimeOfDay.FindStringSubmatch(raw)
	if m == nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q (use HH:MM or HH:MM:SS)", raw)
	}
	var t TimeOfDay
	t.Hour, _ = strconv.Atoi(m[1])
	t.Minute, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		t.Second, _ = strconv.Atoi(m[3])
	}
	if m[4] != "" {
		frac := m[4] + strings.Repeat("0", 9-len(m[4]))
		t.Nanosecond, _ = strconv.Atoi(frac)
	}
	if !t.Valid() {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", raw)
	}
	return t, nil
}

// MustParseTimeOfDay is ParseTimeOfDay for constants; it panics on error.
func MustParseTimeOfDay(raw string) TimeOfDay {
	t, err := ParseTimeOfDay(raw)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour < 24 &&
		t.Minute >= 0 && t.Minute < 60 &&
		t.Second >= 0 && t.Second < 60 &&
		t.Nanosecond >= 0 && t.Nanosecond < int(time.Second)
}

// Compare returns -1, 0 or +1.
func (t TimeOfDay) Compare(o TimeOfDay) int {
	switch {
	case t.Hour != o.Hour:
		return cmpInt(t.Hour, o.Hour)
	case t.Minute != o.Minute:
		return cmpInt(t.Minute, o.Minute)
	case t.Second != o.Second:
		return cmpInt(t.Second, o.Second)
	default:
		return cmpInt(t.Nanosecond, o.Nanosecond)
	}
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func (t TimeOfDay) Before(o TimeOfDay) bool { return t.Compare(o) < 0 }
func (t TimeOfDay) After(o TimeOfDay) bool  { return t.Compare(o) > 0 }
func (t TimeOfDay) Equal(o TimeOfDay) bool  { return t.Compare(o) == 0 }

func (t TimeOfDay) sinceMidnight() time.Duration {
	return time.Duration(t.Hour)*time.Hour +
		time.Duration(t.Minute)*time.Minute +
		time.Duration(t.Second)*time.Second +
		time.Duration(t.Nanosecond)
}

func fromSinceMidnight(d time.Duration) TimeOfDay {
	if d <= 0 {
		return Midnight
	}
	if d > EndOfDay.sinceMidnight() {
		return EndOfDay
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	return TimeOfDay{Hour: int(h), Minute: int(m), Second: int(s), Nanosecond: int(d)}
}

// Add returns t+d clamped to [Midnight, EndOfDay]; it never wraps.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	return fromSinceMidnight(t.sinceMidnight() + d)
}

// Sub returns t-o.
func (t TimeOfDay) Sub(o TimeOfDay) time.Duration {
	return t.sinceMidnight() - o.sinceMidnight()
}

// On combines t with the calendar date of day (as seen in loc).
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = day.Location()
	}
	y, m, d := day.In(loc).Date()
	return time.Date(y, m, d, t.Hour, t.Minute, t.Second, t.Nanosecond, loc)
}

func (t TimeOfDay) String() string {
	s := fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
	if t.Nanosecond != 0 {
		s += strings.TrimRight(fmt.Sprintf(".%09d", t.Nanosecond), "0")
	}
	return s
}

func (t TimeOfDay) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Window is a daily time window [Start, End].
type Window struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

func (w Window) Valid() bool { return w.Start.Before(w.End) }

func (w Window) Length() time.Duration { return w.End.Sub(w.Start) }

// Clamp bounds w by b and reports which sides were moved.
func (w Window) Clamp(b Window) (out Window, startClamped, endClamped bool) {
	out = w
	if out.Start.Before(b.Start) {
		out.Start = b.Start
		startClamped = true
	}
	if b.End.Before(out.End) {
		out.End = b.End
		endClamped = true
	}
	return out, startClamped, endClamped
}

func (w Window) String() string { return w.Start.String() + "-" + w.End.String() }
