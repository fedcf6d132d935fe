// Package actuator replaces the trigger text in the focused application
// with a token by driving the clipboard and synthetic key presses.
package actuator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"timestampus/internal/timestamp"
)

// Keyboard injects key presses.
type Keyboard interface {
	Tap(ctx context.Context, key string, mods ...string) error
}

// Clipboard reads and writes the system clipboard.
type Clipboard interface {
	Read() (string, error)
	Write(text string) error
}

// Hotkey is a key with modifiers held.
type Hotkey struct {
	Key  string
	Mods []string
}

func (h Hotkey) String() string {
	if len(h.Mods) == 0 {
		return h.Key
	}
	return strings.Join(h.Mods, "+") + "+" + h.Key
}

// Hotkeys are the keys used to replace the trigger text.
type Hotkeys struct {
	SelectAll Hotkey
	Paste     Hotkey
	Delete    string
}

// HotkeysFor returns the platform hotkeys for goos.
func HotkeysFor(goos string) Hotkeys {
	mod := "ctrl"
	if goos == "darwin" {
		mod = "cmd"
	}
	return Hotkeys{
		SelectAll: Hotkey{Key: "a", Mods: []string{mod}},
		Paste:     Hotkey{Key: "v", Mods: []string{mod}},
		Delete:    "backspace",
	}
}

// Options tune the replacement sequence.
type Options struct {
	// Settle is the pause before the first key press, letting the target
	// application finish handling the flag keystroke.
	Settle time.Duration

	// KeyDelay follows every injected key press.
	KeyDelay time.Duration

	// RestoreClipboard puts the snapshot back after pasting.
	RestoreClipboard bool
	RestoreDelay     time.Duration

	Hotkeys Hotkeys
}

// DefaultOptions returns the default timings with the hotkeys of goos.
func DefaultOptions(goos string) Options {
	return Options{
		Settle:       100 * time.Millisecond,
		KeyDelay:     10 * time.Millisecond,
		RestoreDelay: 100 * time.Millisecond,
		Hotkeys:      HotkeysFor(goos),
	}
}

// Actuator performs replacements. It is safe for concurrent use, though
// the watcher only ever runs one replacement at a time.
type Actuator struct {
	kb  Keyboard
	cb  Clipboard
	log *slog.Logger

	mu   sync.RWMutex
	opts Options

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an actuator.
func New(kb Keyboard, cb Clipboard, opts Options, logger *slog.Logger) *Actuator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Actuator{
		kb:    kb,
		cb:    cb,
		log:   logger,
		opts:  opts,
		sleep: sleepCtx,
	}
}

// SetOptions replaces the options used by later replacements.
func (a *Actuator) SetOptions(opts Options) {
	a.mu.Lock()
	a.opts = opts
	a.mu.Unlock()
}

// Options returns the current options.
func (a *Actuator) Options() Options {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.opts
}

// Replace selects everything in the focused field, deletes it and pastes
// token. Only a failed clipboard write is returned as an error; other step
// failures are logged and the sequence goes on.
func (a *Actuator) Replace(ctx context.Context, token timestamp.Token) error {
	opts := a.Options()

	snapshot, snapErr := a.Snapshot()
	if snapErr != nil {
		a.log.Warn("clipboard snapshot failed", "error", snapErr)
	}

	if err := a.sleep(ctx, opts.Settle); err != nil {
		return err
	}

	a.tap(ctx, opts.Hotkeys.SelectAll, opts.KeyDelay)
	a.tap(ctx, Hotkey{Key: opts.Hotkeys.Delete}, opts.KeyDelay)

	if err := a.cb.Write(token.String()); err != nil {
		return fmt.Errorf("write token to clipboard: %w", err)
	}

	a.tap(ctx, opts.Hotkeys.Paste, opts.KeyDelay)

	if opts.RestoreClipboard && snapErr == nil {
		if err := a.sleep(ctx, opts.RestoreDelay); err != nil {
			return err
		}
		if err := a.Restore(snapshot); err != nil {
			a.log.Warn("clipboard restore failed", "error", err)
		}
	}
	return nil
}

// Snapshot returns the current clipboard text.
func (a *Actuator) Snapshot() (string, error) {
	return a.cb.Read()
}

// Restore writes a snapshot back to the clipboard.
func (a *Actuator) Restore(snapshot string) error {
	return a.cb.Write(snapshot)
}

func (a *Actuator) tap(ctx context.Context, h Hotkey, delay time.Duration) {
	if err := a.kb.Tap(ctx, h.Key, h.Mods...); err != nil {
		a.log.Warn("key press failed", "key", h.String(), "error", err)
	}
	if err := a.sleep(ctx, delay); err != nil {
		a.log.Debug("key delay interrupted", "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
