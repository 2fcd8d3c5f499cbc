package routine

import (
	"context"
	"sync"
	"testing"
	"time"

	"routined/internal/storage"
	logx "routined/pkg/logx"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// memStore is an in-memory storage.Store.
type memStore struct {
	mu      sync.Mutex
	dedup   map[string]time.Time
	records []storage.SubmissionRecord
}

func newMemStore() *memStore { return &memStore{dedup: map[string]time.Time{}} }

func (s *memStore) AppendSubmission(_ context.Context, r storage.SubmissionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

func (s *memStore) PutDedup(_ context.Context, key string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dedup[key] = until
	return nil
}

func (s *memStore) GetDedup(_ context.Context, key string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.dedup[key]
	return until, ok, nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) outcomes() []storage.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]storage.Outcome, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Outcome)
	}
	return out
}

// recorder is a Submitter that forwards every batch to a channel.
type recorder struct {
	ch chan []Task
}

func newRecorder() *recorder { return &recorder{ch: make(chan []Task, 16)} }

func (r *recorder) Submit(_ context.Context, tasks []Task) error {
	r.ch <- append([]Task(nil), tasks...)
	return nil
}

func (r *recorder) wait(t *testing.T) []Task {
	t.Helper()
	select {
	case tasks := <-r.ch:
		return tasks
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for submission")
		return nil
	}
}

func (r *recorder) none(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case tasks := <-r.ch:
		t.Fatalf("unexpected submission: %v", taskNames(tasks))
	case <-time.After(d):
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// 2026-10-19 is a Monday.
func day(d, hh, mm, ss int) time.Time {
	return time.Date(2026, time.October, d, hh, mm, ss, 0, time.UTC)
}

func testConfig() Config {
	return Config{
		DailyStart:     At(8, 0, 0),
		DailyEnd:       At(18, 0, 0),
		PreStartWindow: 15 * time.Minute,
		PollInterval:   5 * time.Millisecond,
		Location:       time.UTC,
	}
}

func patrol(maxDuration time.Duration) Task {
	return Task{Name: "patrol", Action: "patrol", MaxDuration: maxDuration, Args: map[string]string{"route": "east"}}
}

func testLogger() logx.Logger { return logx.Nop() }
