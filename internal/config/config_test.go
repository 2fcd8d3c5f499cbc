package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"routined/internal/routine"
)

const sampleYAML = `
logging:
  level: debug
  console: true
routine:
  daily_start: "08:00"
  daily_end: "18:00"
  pre_start_window: 10m
  timezone: UTC
  days_off: [Sunday]
  dates_off: ["2026-12-25"]
  tasks:
    - name: patrol
      action: patrol
      max_duration: 30m
      repeat: every 2h
      args:
        route: east
    - name: charge
      max_duration: 1h
      repeat: "16:00-18:00"
storage:
  driver: sqlite
  path: ./routined.sqlite
submit:
  log: true
status:
  enabled: true
  schedule: "@every 5m"
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestDecodeYAML(t *testing.T) {
	t.Parallel()

	cfg, err := Decode("routined.yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.Routine.DailyStart != "08:00" || len(cfg.Routine.Tasks) != 2 || cfg.Routine.Tasks[0].Args["route"] != "east" {
		t.Fatalf("unexpected routine section: %+v", cfg.Routine)
	}
	if cfg.Storage == nil || cfg.Storage.Driver != "sqlite" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if err := Validate(context.Background(), cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestDecodeStrict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, path, body string
	}{
		{name: "unknown yaml key", path: "c.yaml", body: "routine:\n  daily_begin: \"08:00\"\n"},
		{name: "unknown json key", path: "c.json", body: `{"scheduler":{}}`},
		{name: "trailing json", path: "c.json", body: `{} {}`},
		{name: "broken yaml", path: "c.yml", body: "routine: [\n"},
	}
	for _, tt := range tests {
		if _, err := Decode(tt.path, []byte(tt.body)); err == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
	}
}

func TestRoutineConversion(t *testing.T) {
	t.Parallel()

	cfg, err := Decode("routined.yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	rc, err := cfg.Routine.RunnerConfig()
	if err != nil {
		t.Fatalf("RunnerConfig: %v", err)
	}
	if rc.PreStartWindow != 10*time.Minute || rc.PollInterval != routine.DefaultPollInterval || rc.Location != time.UTC {
		t.Fatalf("runner config = %+v", rc)
	}

	rs, err := cfg.Routine.Routines(rc.DailyStart, rc.DailyEnd)
	if err != nil {
		t.Fatalf("Routines: %v", err)
	}
	// every 2h over 08-18 gives five windows, plus one explicit window.
	if len(rs) != 6 {
		t.Fatalf("got %d routines, want 6", len(rs))
	}
	last := rs[5]
	if last.Tasks[0].Name != "charge" || last.Tasks[0].MaxDuration != time.Hour || last.Window.Start != routine.At(16, 0, 0) {
		t.Fatalf("last routine = %+v", last)
	}

	dates, err := cfg.Routine.Dates(rc.Location)
	if err != nil || len(dates) != 1 || dates[0].Month() != time.December {
		t.Fatalf("Dates = %v, %v", dates, err)
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	base := func() *Config {
		return &Config{Routine: RoutineConfig{
			DailyStart: "08:00",
			DailyEnd:   "18:00",
			Tasks:      []TaskConfig{{Name: "patrol", MaxDuration: "30m", Repeat: "daily"}},
		}}
	}
	if err := Validate(context.Background(), base()); err != nil {
		t.Fatalf("base config invalid: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "reversed daily window", mutate: func(c *Config) { c.Routine.DailyStart = "19:00" }, wantErr: routine.ErrInvalidWindow},
		{name: "unknown weekday", mutate: func(c *Config) { c.Routine.DaysOff = []string{"Funday"} }, wantErr: routine.ErrUnknownWeekday},
		{name: "bad repeat", mutate: func(c *Config) { c.Routine.Tasks[0].Repeat = "weekly" }},
		{name: "missing task name", mutate: func(c *Config) { c.Routine.Tasks[0].Name = " " }},
		{name: "duplicate task", mutate: func(c *Config) { c.Routine.Tasks = append(c.Routine.Tasks, c.Routine.Tasks[0]) }},
		{name: "bad duration", mutate: func(c *Config) { c.Routine.PollInterval = "soon" }},
		{name: "bad date", mutate: func(c *Config) { c.Routine.DatesOff = []string{"25/12/2026"} }},
		{name: "bad timezone", mutate: func(c *Config) { c.Routine.Timezone = "Mars/Olympus" }},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage = &StorageConfig{Driver: "etcd"} }},
		{name: "redis without addr", mutate: func(c *Config) { c.Storage = &StorageConfig{Driver: "redis"} }},
		{name: "bad submit url", mutate: func(c *Config) { c.Submit.HTTP = &SubmitHTTPConfig{URL: "localhost:8080"} }},
		{name: "bad status schedule", mutate: func(c *Config) { c.Status = StatusConfig{Enabled: true, Schedule: "every now and then"} }},
	}
	for _, tt := range tests {
		cfg := base()
		tt.mutate(cfg)
		err := Validate(context.Background(), cfg)
		if err == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
		if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
			t.Fatalf("%s: err = %v, want %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()

	if d, err := ParseDurationOrDefault("x", "", time.Second); err != nil || d != time.Second {
		t.Fatalf("empty = %v, %v", d, err)
	}
	if d, err := ParseDurationOrDefault("x", "250ms", time.Second); err != nil || d != 250*time.Millisecond {
		t.Fatalf("250ms = %v, %v", d, err)
	}
	if _, err := ParseDurationOrDefault("x", "-1s", time.Second); err == nil {
		t.Fatal("expected error for negative duration")
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()

	oldCfg, err := Decode("c.yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	newCfg, _ := Decode("c.yaml", []byte(sampleYAML))

	if changed, _ := SummarizeConfigChange(oldCfg, newCfg); len(changed) != 0 {
		t.Fatalf("identical configs reported changes: %v", changed)
	}

	newCfg.Routine.Tasks[0].Args = map[string]string{"route": "west"}
	newCfg.Logging.Level = "info"
	newCfg.Storage.Password = "secret"
	changed, attrs := SummarizeConfigChange(oldCfg, newCfg)
	if !slices.Equal(changed, []string{"logging", "routine", "storage"}) {
		t.Fatalf("changed = %v", changed)
	}
	if len(attrs) == 0 {
		t.Fatal("expected attrs")
	}
}

func TestManagerLoadAndReload(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "routined.yaml", sampleYAML)
	m := NewConfigManager(path)
	ctx := context.Background()

	cfg, err := m.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Get() != cfg {
		t.Fatal("Get does not return the loaded config")
	}
	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)

	if published, err := m.Reload(ctx); err != nil || published {
		t.Fatalf("unchanged reload = %v, %v", published, err)
	}

	// An invalid edit is rejected and the committed config stays.
	if err := os.WriteFile(path, []byte("routine:\n  daily_start: \"19:00\"\n  daily_end: \"18:00\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := m.Reload(ctx); err == nil {
		t.Fatal("expected invalid reload to fail")
	}
	if m.Get() != cfg {
		t.Fatal("invalid reload replaced the committed config")
	}

	if err := os.WriteFile(path, []byte(sampleYAML+"  \n"+"# comment\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if published, _ := m.Reload(ctx); published {
		t.Fatal("comment-only change should not publish")
	}

	edited := sampleYAML[:len(sampleYAML)-len("\"@every 5m\"\n")] + "\"@every 1m\"\n"
	if err := os.WriteFile(path, []byte(edited), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	published, err := m.Reload(ctx)
	if err != nil || !published {
		t.Fatalf("reload = %v, %v", published, err)
	}
	select {
	case got := <-sub:
		if got.Status.Schedule != "@every 1m" {
			t.Fatalf("published schedule = %q", got.Status.Schedule)
		}
	default:
		t.Fatal("subscriber did not receive the new config")
	}
}

func TestManagerWatch(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "routined.yaml", sampleYAML)
	m := NewConfigManager(path)
	if _, err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	sub := m.Subscribe(1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = m.Watch(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	edited := sampleYAML + "  \n"
	edited = edited[:len(edited)-len("\"@every 5m\"\n  \n")] + "\"@every 2m\"\n"
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(300 * time.Millisecond)
	defer tick.Stop()
	for {
		// Rewrite until the watcher is up and sees a change.
		if err := os.WriteFile(path, []byte(edited), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		select {
		case got := <-sub:
			if got.Status.Schedule != "@every 2m" {
				t.Fatalf("schedule = %q", got.Status.Schedule)
			}
			return
		case <-deadline:
			t.Fatal("watcher did not publish the edit")
		case <-tick.C:
		}
	}
}

func TestCanonicalWeekday(t *testing.T) {
	t.Parallel()

	tests := map[string]string{"sunday": "Sunday", " SATURDAY ": "Saturday", "Monday": "Monday", "Funday": "", "mon": ""}
	for in, want := range tests {
		got, ok := CanonicalWeekday(in)
		if got != want || ok != (want != "") {
			t.Fatalf("CanonicalWeekday(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
}
