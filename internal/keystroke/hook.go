//go:build cgo

package keystroke

import (
	"context"
	"os"
	"runtime"
	"sync"
	"unicode"

	hook "github.com/robotn/gohook"
)

// libuiohook virtual key codes.
const (
	vcBackspace uint16 = 0x000E
	vcEnter     uint16 = 0x001C
	vcKPEnter   uint16 = 0x0E1C
)

// libuiohook modifier mask bits for control and meta, either side.
const shortcutMask uint16 = 1<<1 | 1<<2 | 1<<5 | 1<<6

// HookSource is the process-wide keyboard hook.
type HookSource struct {
	mu      sync.Mutex
	running bool
	done    chan struct{}
}

func newHookSource() Source {
	return &HookSource{}
}

// Available checks the session the hook would attach to.
func (h *HookSource) Available() (bool, string) {
	switch runtime.GOOS {
	case "linux":
		if os.Getenv("DISPLAY") == "" {
			return false, "no X11 display (DISPLAY unset); use the evdev source on Wayland or the console"
		}
		return true, "X11 keyboard hook on " + os.Getenv("DISPLAY")
	case "darwin":
		return true, "event tap (grant Accessibility permission to the terminal)"
	case "windows":
		return true, "low-level keyboard hook"
	default:
		return false, "keyboard hook not implemented for " + runtime.GOOS
	}
}

// Start installs the hook.
func (h *HookSource) Start(ctx context.Context) (<-chan KeyEvent, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return nil, ErrAlreadyRunning
	}

	raw := hook.Start()
	out := make(chan KeyEvent, 64)
	h.done = make(chan struct{})
	h.running = true

	go h.forward(ctx, raw, out, h.done)
	return out, nil
}

func (h *HookSource) forward(ctx context.Context, raw chan hook.Event, out chan<- KeyEvent, done <-chan struct{}) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case ev, ok := <-raw:
			if !ok {
				return
			}
			ke, keep := fromHookEvent(ev)
			if !keep {
				continue
			}
			select {
			case out <- ke:
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}
}

// Stop removes the hook.
func (h *HookSource) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return nil
	}
	close(h.done)
	hook.End()
	h.running = false
	return nil
}

// fromHookEvent keeps typed characters and the backspace and enter
// presses. libuiohook reports characters on its "typed" event (KeyDown)
// and raw keys on its "pressed" event (KeyHold).
func fromHookEvent(ev hook.Event) (KeyEvent, bool) {
	switch ev.Kind {
	case hook.KeyDown:
		if ev.Mask&shortcutMask != 0 {
			return KeyEvent{}, false
		}
		ke := CharEvent(ev.Keychar)
		if ke.Kind == KindIgnored || !unicode.IsPrint(ev.Keychar) {
			return KeyEvent{}, false
		}
		ke.When = ev.When
		return ke, true
	case hook.KeyHold:
		switch ev.Keycode {
		case vcBackspace:
			return KeyEvent{Kind: KindBackspace, When: ev.When}, true
		case vcEnter, vcKPEnter:
			return KeyEvent{Kind: KindEnter, When: ev.When}, true
		}
	}
	return KeyEvent{}, false
}
