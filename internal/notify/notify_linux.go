//go:build linux

package notify

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsName = "org.freedesktop.Notifications"
	notificationsPath = dbus.ObjectPath("/org/freedesktop/Notifications")
	expireMs          = int32(5000)
)

// platformSend calls org.freedesktop.Notifications.Notify on the session bus.
func platformSend(ctx context.Context, summary, body string) error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("connect to session bus: %w", err)
	}

	obj := conn.Object(notificationsName, notificationsPath)
	call := obj.CallWithContext(ctx, notificationsName+".Notify", 0,
		AppName,
		uint32(0), // replaces_id
		"dialog-warning",
		summary,
		body,
		[]string{},
		map[string]dbus.Variant{},
		expireMs,
	)
	if call.Err != nil {
		return fmt.Errorf("notify: %w", call.Err)
	}
	return nil
}
