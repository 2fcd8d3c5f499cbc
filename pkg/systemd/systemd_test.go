package systemd

import (
	"context"
	"testing"

	logx "routined/pkg/logx"
)

func TestNoopOutsideSystemd(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	t.Setenv("WATCHDOG_USEC", "")

	if sent, err := Ready(); sent || err != nil {
		t.Fatalf("Ready() = %v, %v", sent, err)
	}
	if sent, err := Status("idle"); sent || err != nil {
		t.Fatalf("Status() = %v, %v", sent, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Watchdog(ctx, logx.Nop()); err != nil {
		t.Fatalf("Watchdog() = %v", err)
	}
}
