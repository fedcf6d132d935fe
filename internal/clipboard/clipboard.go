// Package clipboard reads and writes the system text clipboard.
//
// Transfers go through github.com/atotto/clipboard, which uses the Win32
// API on Windows and these helpers elsewhere:
//   - macOS: pbpaste / pbcopy
//   - Linux: wl-paste / wl-copy (Wayland sessions), xclip, xsel
package clipboard

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	sysclip "github.com/atotto/clipboard"
)

var (
	// ErrNoClipboardTool is returned when no helper is installed.
	ErrNoClipboardTool = errors.New("no clipboard tool found")

	// ErrTimeout is returned when a transfer does not finish in time.
	ErrTimeout = errors.New("clipboard transfer timed out")
)

// transferTimeout bounds one transfer; xclip can hang when no X selection
// owner answers.
const transferTimeout = 2 * time.Second

// Backend moves text in and out of the clipboard.
type Backend interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

type nativeBackend struct{}

func (nativeBackend) ReadAll() (string, error)   { return sysclip.ReadAll() }
func (nativeBackend) WriteAll(text string) error { return sysclip.WriteAll(text) }

// Helper is an external program pair the backend needs.
type Helper struct {
	Name     string
	Commands []string
}

// System is the clipboard of the running desktop session.
type System struct {
	backend  Backend
	helpers  []Helper
	lookPath func(string) (string, error)
	timeout  time.Duration
}

// New returns the clipboard for the current platform.
func New() *System {
	return NewWith(nativeBackend{}, HelpersFor(runtime.GOOS, os.Getenv), exec.LookPath)
}

// NewWith returns a clipboard over backend. helpers lists the programs of
// which one must be installed; nil means the backend needs none.
func NewWith(backend Backend, helpers []Helper, lookPath func(string) (string, error)) *System {
	return &System{
		backend:  backend,
		helpers:  helpers,
		lookPath: lookPath,
		timeout:  transferTimeout,
	}
}

// HelpersFor lists the helpers the backend can use on goos, in the order
// it tries them.
func HelpersFor(goos string, getenv func(string) string) []Helper {
	switch goos {
	case "windows":
		return nil
	case "darwin":
		return []Helper{{Name: "pbcopy", Commands: []string{"pbcopy", "pbpaste"}}}
	default:
		helpers := []Helper{
			{Name: "xclip", Commands: []string{"xclip"}},
			{Name: "xsel", Commands: []string{"xsel"}},
		}
		wayland := Helper{Name: "wl-clipboard", Commands: []string{"wl-copy", "wl-paste"}}
		if getenv("WAYLAND_DISPLAY") != "" {
			return append([]Helper{wayland}, helpers...)
		}
		return append(helpers, wayland)
	}
}

// Available reports whether the clipboard can be used.
func (s *System) Available() (bool, string) {
	if s.helpers == nil {
		return true, "native clipboard API"
	}
	if h, ok := s.helper(); ok {
		return true, fmt.Sprintf("using %s", h.Name)
	}
	names := make([]string, len(s.helpers))
	for i, h := range s.helpers {
		names[i] = h.Name
	}
	return false, fmt.Sprintf("install one of: %s", strings.Join(names, ", "))
}

func (s *System) helper() (Helper, bool) {
	for _, h := range s.helpers {
		installed := true
		for _, c := range h.Commands {
			if _, err := s.lookPath(c); err != nil {
				installed = false
				break
			}
		}
		if installed {
			return h, true
		}
	}
	return Helper{}, false
}

// Read returns the clipboard text.
func (s *System) Read() (string, error) {
	var text string
	err := s.transfer("read", func() error {
		var err error
		text, err = s.backend.ReadAll()
		return err
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// Write replaces the clipboard text.
func (s *System) Write(text string) error {
	return s.transfer("write", func() error {
		return s.backend.WriteAll(text)
	})
}

func (s *System) transfer(op string, fn func() error) error {
	if ok, _ := s.Available(); !ok {
		return fmt.Errorf("%s clipboard: %w", op, ErrNoClipboardTool)
	}

	done := make(chan error, 1)
	go func() { done <- fn() }()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%s clipboard: %w", op, err)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("%s clipboard: %w", op, ErrTimeout)
	}
}
