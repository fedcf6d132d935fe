//go:build cgo

package keystroke

import (
	"context"
	"os"
	"runtime"

	"github.com/go-vgo/robotgo"
)

// Injector synthesizes key presses into the focused application.
type Injector struct{}

// NewInjector returns the platform injector.
func NewInjector() *Injector {
	return &Injector{}
}

// Available reports whether synthetic input can reach the desktop.
func (i *Injector) Available() (bool, string) {
	if runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" {
		return false, "key injection needs an X11 display (DISPLAY unset)"
	}
	return true, "robotgo key injection"
}

// Tap presses and releases key with the given modifiers held. Key and
// modifier names follow robotgo ("a", "backspace", "ctrl", "cmd").
func (i *Injector) Tap(ctx context.Context, key string, mods ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	args := make([]interface{}, len(mods))
	for n, m := range mods {
		args[n] = m
	}
	return robotgo.KeyTap(key, args...)
}
