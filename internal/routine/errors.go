package routine

import "errors"

var (
	// ErrInvalidWindow means a window (or the daily window) does not have start < end.
	ErrInvalidWindow = errors.New("invalid window")
	// ErrWindowTooShort means a window is shorter than a task's max duration.
	ErrWindowTooShort = errors.New("window shorter than task max duration")
	// ErrUnknownWeekday is returned by AddDayOff for names outside the weekday set.
	ErrUnknownWeekday = errors.New("unknown weekday")
	// ErrTaskUnschedulable is returned by strict classification for a task
	// that can no longer finish before its end_before deadline.
	ErrTaskUnschedulable = errors.New("task unschedulable")
)
