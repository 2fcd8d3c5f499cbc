package eventbus

import (
	"testing"
	"time"
)

func TestPublishFiltersByPrefix(t *testing.T) {
	t.Parallel()
	b := New()
	all, unsubAll := b.Subscribe(4)
	defer unsubAll()
	day, unsubDay := b.Subscribe(4, "routine.day.")
	defer unsubDay()

	b.Publish(Event{Type: "routine.day.start"})
	b.Publish(Event{Type: "routine.submitted"})

	if got := len(all); got != 2 {
		t.Fatalf("all subscriber got %d events, want 2", got)
	}
	if got := len(day); got != 1 {
		t.Fatalf("prefix subscriber got %d events, want 1", got)
	}
	e := <-day
	if e.Type != "routine.day.start" {
		t.Fatalf("Type = %q", e.Type)
	}
	if e.Time.IsZero() {
		t.Fatal("expected Publish to stamp Time")
	}
}

func TestPublishDropsWhenSubscriberFull(t *testing.T) {
	t.Parallel()
	b := New()
	_, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: "a", Time: time.Now()})
	b.Publish(Event{Type: "b", Time: time.Now()})

	if got := Dropped(b); got != 1 {
		t.Fatalf("Dropped = %d, want 1", got)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	unsub()
	unsub() // idempotent
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}
	// Publishing after unsubscribe must not panic.
	b.Publish(Event{Type: "x"})
}
