package routine

import (
	"fmt"
	"slices"
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// dayOffSet holds weekday names and calendar dates on which nothing is
// submitted. It is owned by the Runner and guarded by Runner.mu.
type dayOffSet struct {
	weekdays []string // canonical names, fixed at construction
	days     map[string]struct{}
	dates    map[string]struct{}
}

// newDayOffSet builds the canonical weekday names from seven consecutive days
// starting at today.
func newDayOffSet(today time.Time) *dayOffSet {
	names := make([]string, 0, 7)
	for i := 0; i < 7; i++ {
		names = append(names, today.AddDate(0, 0, i).Format("Monday"))
	}
	return &dayOffSet{
		weekdays: names,
		days:     map[string]struct{}{},
		dates:    map[string]struct{}{},
	}
}

func (s *dayOffSet) addDay(name string) error {
	if !slices.Contains(s.weekdays, name) {
		return fmt.Errorf("day name %q must be one of %v: %w", name, s.weekdays, ErrUnknownWeekday)
	}
	s.days[name] = struct{}{}
	return nil
}

// addDate uses the calendar fields of date as given, without converting zones.
func (s *dayOffSet) addDate(date time.Time) string {
	k := date.Format(dateLayout)
	s.dates[k] = struct{}{}
	return k
}

// contains reports whether now (already in the runner's location) is off.
func (s *dayOffSet) contains(now time.Time) bool {
	if _, ok := s.days[now.Format("Monday")]; ok {
		return true
	}
	_, ok := s.dates[now.Format(dateLayout)]
	return ok
}

func (s *dayOffSet) lists() (days, dates []string) {
	for d := range s.days {
		days = append(days, d)
	}
	for d := range s.dates {
		dates = append(dates, d)
	}
	sort.Strings(days)
	sort.Strings(dates)
	return days, dates
}
