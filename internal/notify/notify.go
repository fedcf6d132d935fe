// Package notify shows desktop notifications.
package notify

import (
	"context"
	"errors"
	"log/slog"
)

// AppName identifies the sender to the notification daemon.
const AppName = "timestampus"

// ErrUnsupported is returned where no notification backend exists.
var ErrUnsupported = errors.New("desktop notifications not supported on this platform")

// Notifier sends notifications when enabled and does nothing otherwise.
type Notifier struct {
	enabled bool
	log     *slog.Logger
	send    func(ctx context.Context, summary, body string) error
}

// New returns a notifier. A disabled notifier accepts and discards every
// notification.
func New(enabled bool, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{enabled: enabled, log: logger, send: platformSend}
}

// Notify shows summary and body.
func (n *Notifier) Notify(ctx context.Context, summary, body string) error {
	if !n.enabled {
		return nil
	}
	if err := n.send(ctx, summary, body); err != nil {
		n.log.Debug("notification not delivered", "summary", summary, "error", err)
		return err
	}
	return nil
}
