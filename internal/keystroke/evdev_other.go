//go:build !linux

package keystroke

import "context"

// EvdevSource is only available on Linux.
type EvdevSource struct{}

func newEvdevSource(device string) Source {
	return &EvdevSource{}
}

// Available returns false off Linux.
func (e *EvdevSource) Available() (bool, string) {
	return false, "evdev input is Linux only"
}

// Start returns ErrNotAvailable.
func (e *EvdevSource) Start(ctx context.Context) (<-chan KeyEvent, error) {
	return nil, ErrNotAvailable
}

// Stop is a no-op.
func (e *EvdevSource) Stop() error {
	return nil
}
