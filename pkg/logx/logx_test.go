package logx

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestWriterLoggerFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWriter(&buf, "info").With(String("comp", "routine"))
	log.Debug("hidden")
	log.Info("submitted", Int("tasks", 2), Strings("names", []string{"patrol", "charge"}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["comp"] != "routine" || m["tasks"] != float64(2) || m["message"] != "submitted" {
		t.Fatalf("unexpected line: %v", m)
	}
}

func TestZeroLoggerIsNoop(t *testing.T) {
	t.Parallel()

	var log Logger
	if !log.IsZero() {
		t.Fatal("zero logger should report IsZero")
	}
	log.Error("dropped")
	if Nop().IsZero() {
		t.Fatal("Nop logger is not the zero value")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]zerolog.Level{
		"debug":     zerolog.DebugLevel,
		" WARNING ": zerolog.WarnLevel,
		"error":     zerolog.ErrorLevel,
		"bogus":     zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in, zerolog.InfoLevel); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestServiceFileSink(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "routined.log")
	svc, log := New(Config{Level: "info", File: FileConfig{Enabled: true, Path: path}})
	log.With(String("comp", "app")).Info("started")

	svc.Apply(Config{Level: "error", File: FileConfig{Enabled: true, Path: path}})
	log.Info("filtered after apply")
	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), `"message":"started"`) || strings.Contains(string(b), "filtered after apply") {
		t.Fatalf("unexpected log file: %s", b)
	}
}

func TestThrottlePerKey(t *testing.T) {
	t.Parallel()

	th := NewThrottle(time.Hour, 1)
	if !th.Allow("a") || th.Allow("a") {
		t.Fatal("key a: want one allowed line then throttled")
	}
	if !th.Allow("b") {
		t.Fatal("key b should have its own bucket")
	}
	var nilThrottle *Throttle
	if !nilThrottle.Allow("x") {
		t.Fatal("nil throttle must allow")
	}
}
