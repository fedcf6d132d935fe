//go:build !cgo

package keystroke

import "context"

// HookSource is a stub when cgo is not available; libuiohook needs it.
type HookSource struct{}

func newHookSource() Source {
	return &HookSource{}
}

// Available returns false without cgo.
func (h *HookSource) Available() (bool, string) {
	return false, "keyboard hook requires cgo (rebuild with CGO_ENABLED=1)"
}

// Start returns ErrNotAvailable.
func (h *HookSource) Start(ctx context.Context) (<-chan KeyEvent, error) {
	return nil, ErrNotAvailable
}

// Stop is a no-op.
func (h *HookSource) Stop() error {
	return nil
}
