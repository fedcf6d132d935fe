//go:build !cgo

package keystroke

import "context"

// Injector is a stub when cgo is not available.
type Injector struct{}

// NewInjector returns the stub injector.
func NewInjector() *Injector {
	return &Injector{}
}

// Available returns false without cgo.
func (i *Injector) Available() (bool, string) {
	return false, "key injection requires cgo (rebuild with CGO_ENABLED=1)"
}

// Tap returns ErrNotAvailable.
func (i *Injector) Tap(ctx context.Context, key string, mods ...string) error {
	return ErrNotAvailable
}
