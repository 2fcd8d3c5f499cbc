// Package systemd wraps sd_notify for Type=notify units. Outside systemd
// (NOTIFY_SOCKET unset) every call is a no-op that reports false.
package systemd

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "routined/pkg/logx"
)

func Ready() (bool, error)    { return daemon.SdNotify(false, daemon.SdNotifyReady) }
func Stopping() (bool, error) { return daemon.SdNotify(false, daemon.SdNotifyStopping) }

// Status sets the free-form unit status shown by systemctl status.
func Status(msg string) (bool, error) { return daemon.SdNotify(false, "STATUS="+msg) }

// Watchdog pings the service manager at half the configured WatchdogSec
// until ctx is done. It returns immediately when the watchdog is off.
func Watchdog(ctx context.Context, log logx.Logger) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return err
	}
	every := interval / 2
	log.Debug("systemd watchdog enabled", logx.Duration("interval", interval))

	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
				log.Warn("systemd watchdog notify failed", logx.Err(err))
			}
		}
	}
}
