// Package keystroke delivers system-wide key-down events and injects
// synthetic key presses.
//
// Platform support:
//   - cgo builds: process-wide hook via libuiohook (X11 on Linux, an event
//     tap on macOS requiring the Accessibility permission, a low-level
//     hook on Windows)
//   - Linux without cgo: /dev/input/event* (requires the input group or root)
//   - Any terminal: raw-mode stdin, for trying triggers without a hook
//
// Sources drop key releases and modifier, navigation and function keys, and
// translate the rest into the four kinds the trigger buffer cares about.
package keystroke

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode"
)

// Kind classifies a key-down event.
type Kind int

const (
	KindIgnored Kind = iota
	KindChar
	KindSpace
	KindBackspace
	KindEnter
)

func (k Kind) String() string {
	switch k {
	case KindChar:
		return "char"
	case KindSpace:
		return "space"
	case KindBackspace:
		return "backspace"
	case KindEnter:
		return "enter"
	default:
		return "ignored"
	}
}

// KeyEvent is one key-down.
type KeyEvent struct {
	Kind Kind
	Char rune
	When time.Time
}

// CharEvent returns the event for typing r, classifying space and control
// characters.
func CharEvent(r rune) KeyEvent {
	switch {
	case r == ' ':
		return KeyEvent{Kind: KindSpace, Char: ' '}
	case unicode.IsPrint(r):
		return KeyEvent{Kind: KindChar, Char: r}
	default:
		return KeyEvent{Kind: KindIgnored, Char: r}
	}
}

// Backspace returns a backspace event.
func Backspace() KeyEvent { return KeyEvent{Kind: KindBackspace} }

// Enter returns an enter event.
func Enter() KeyEvent { return KeyEvent{Kind: KindEnter} }

// Events returns the events for typing s.
func Events(s string) []KeyEvent {
	out := make([]KeyEvent, 0, len(s))
	for _, r := range s {
		out = append(out, CharEvent(r))
	}
	return out
}

// Source produces key-down events until stopped.
type Source interface {
	// Start begins delivering events. The channel is closed when the
	// source stops or ctx is done.
	Start(ctx context.Context) (<-chan KeyEvent, error)

	// Stop releases the hook.
	Stop() error

	// Available reports whether the source can run with the current
	// platform and permissions, with a human readable reason.
	Available() (bool, string)
}

// ErrNotAvailable is returned when a source cannot run on this platform.
var ErrNotAvailable = errors.New("keyboard hook not available on this platform")

// ErrAlreadyRunning is returned when Start is called twice.
var ErrAlreadyRunning = errors.New("keyboard source already running")

// Source kinds accepted by NewSource.
const (
	SourceAuto  = "auto"
	SourceHook  = "hook"
	SourceEvdev = "evdev"
)

// SourceKinds lists the accepted source kinds.
func SourceKinds() []string {
	return []string{SourceAuto, SourceHook, SourceEvdev}
}

// NewSource returns the system-wide source of the given kind. device
// overrides evdev device discovery. Auto prefers the hook and falls back
// to evdev when the hook cannot run.
func NewSource(kind, device string) (Source, error) {
	switch kind {
	case SourceHook:
		return newHookSource(), nil
	case SourceEvdev:
		return newEvdevSource(device), nil
	case SourceAuto, "":
		hook := newHookSource()
		if ok, _ := hook.Available(); ok {
			return hook, nil
		}
		evdev := newEvdevSource(device)
		if ok, _ := evdev.Available(); ok {
			return evdev, nil
		}
		return hook, nil
	default:
		return nil, fmt.Errorf("unknown key source %q", kind)
	}
}
