package config

// Config is the on-disk configuration (JSON or YAML).
//
// Durations are Go duration strings ("15m", "1s"); times of day are
// "HH:MM" or "HH:MM:SS".
type Config struct {
	Logging LoggingConfig  `json:"logging"`
	Routine RoutineConfig  `json:"routine"`
	Storage *StorageConfig `json:"storage,omitempty"`
	Submit  SubmitConfig   `json:"submit"`
	Status  StatusConfig   `json:"status"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// RoutineConfig configures the runner and its recurring tasks.
//
// Defaults (when fields are omitted/zero):
//   - pre_start_window: "15m"
//   - poll_interval: "1s"
//   - max_pending_batches: 64
//   - timezone: local
type RoutineConfig struct {
	DailyStart        string `json:"daily_start"`
	DailyEnd          string `json:"daily_end"`
	PreStartWindow    string `json:"pre_start_window,omitempty"`
	PollInterval      string `json:"poll_interval,omitempty"`
	MaxPendingBatches int    `json:"max_pending_batches,omitempty"`
	Timezone          string `json:"timezone,omitempty"`

	// DaysOff are weekday names ("Saturday"); DatesOff are "YYYY-MM-DD".
	DaysOff  []string `json:"days_off,omitempty"`
	DatesOff []string `json:"dates_off,omitempty"`

	// Simulation replaces the wall clock with a scaled clock.
	Simulation *SimulationConfig `json:"simulation,omitempty"`

	Tasks []TaskConfig `json:"tasks"`
}

// SimulationConfig starts the clock at Start (RFC3339) running Rate times
// faster than real time.
type SimulationConfig struct {
	Start string  `json:"start"`
	Rate  float64 `json:"rate"`
}

// TaskConfig is one recurring task.
//
// Repeat forms: "daily", "daily x3", "every 2h", "every 90m x2",
// "every 01:30", "08:00-10:00", "08:00-10:00 x2".
type TaskConfig struct {
	Name        string            `json:"name"`
	Action      string            `json:"action,omitempty"`
	StartNodeID string            `json:"start_node_id,omitempty"`
	MaxDuration string            `json:"max_duration"`
	Repeat      string            `json:"repeat"`
	Args        map[string]string `json:"args,omitempty"`
}

// StorageConfig controls the optional persistence layer used for submission
// dedup and the submission audit.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./routined.sqlite" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite

	Addr      string `json:"addr,omitempty"`     // redis
	Password  string `json:"password,omitempty"` // redis (do not log)
	DB        int    `json:"db,omitempty"`       // redis
	KeyPrefix string `json:"key_prefix,omitempty"`
}

// SubmitConfig selects where ready tasks go. With nothing set, tasks are
// only logged.
type SubmitConfig struct {
	Log   bool               `json:"log,omitempty"`
	HTTP  *SubmitHTTPConfig  `json:"http,omitempty"`
	Redis *SubmitRedisConfig `json:"redis,omitempty"`
}

type SubmitHTTPConfig struct {
	URL     string            `json:"url"`
	Timeout string            `json:"timeout,omitempty"`
	Headers map[string]string `json:"headers,omitempty"` // values are never logged
}

type SubmitRedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
	Key      string `json:"key,omitempty"`
}

// StatusConfig controls the periodic status report.
type StatusConfig struct {
	Enabled bool `json:"enabled"`
	// Schedule is a cron expression or descriptor; default "@every 15m".
	Schedule string `json:"schedule,omitempty"`
}
