package routine

// Event types published on the bus (see WithBus).
const (
	EventNewDay       = "routine.new_day"
	EventDayStart     = "routine.day_start"
	EventDayEnd       = "routine.day_end"
	EventSubmitted    = "routine.submitted"
	EventSubmitFailed = "routine.submit_failed"
	EventSuppressed   = "routine.suppressed"
	EventDropped      = "routine.dropped"
)

type DayEvent struct {
	Day string `json:"day"`
}

type BatchEvent struct {
	Day    string   `json:"day"`
	Tasks  []string `json:"tasks"`
	Reason string   `json:"reason,omitempty"`
	Err    string   `json:"err,omitempty"`
}
