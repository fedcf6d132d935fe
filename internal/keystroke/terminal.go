package keystroke

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/term"
)

// ErrNotTerminal is returned when stdin is not a terminal.
var ErrNotTerminal = errors.New("stdin is not a terminal")

// TerminalSource reads keys from a raw-mode terminal. It only sees what is
// typed into its own terminal, which makes it safe for trying triggers.
type TerminalSource struct {
	in *os.File

	mu      sync.Mutex
	running bool
	state   *term.State
	done    chan struct{}
}

// NewTerminalSource reads from in, usually os.Stdin.
func NewTerminalSource(in *os.File) *TerminalSource {
	return &TerminalSource{in: in}
}

// Available reports whether in is a terminal.
func (t *TerminalSource) Available() (bool, string) {
	if !term.IsTerminal(int(t.in.Fd())) {
		return false, ErrNotTerminal.Error()
	}
	return true, "raw terminal input"
}

// Start puts the terminal in raw mode. The channel closes on Ctrl+C,
// Ctrl+D, Esc, end of input, or Stop.
func (t *TerminalSource) Start(ctx context.Context) (<-chan KeyEvent, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return nil, ErrAlreadyRunning
	}

	fd := int(t.in.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNotTerminal
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}

	t.state = state
	t.done = make(chan struct{})
	t.running = true

	out := make(chan KeyEvent, 16)
	go t.readLoop(ctx, out, t.done)
	return out, nil
}

func (t *TerminalSource) readLoop(ctx context.Context, out chan<- KeyEvent, done <-chan struct{}) {
	defer close(out)

	buf := make([]byte, 64)
	for {
		n, err := t.in.Read(buf)
		if n > 0 {
			events, quit := parseTerminalInput(buf[:n], time.Now())
			for _, ev := range events {
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				case <-done:
					return
				}
			}
			if quit {
				return
			}
		}
		if err != nil {
			// io.EOF or a closed descriptor both end the session.
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		default:
		}
	}
}

// Stop restores the terminal.
func (t *TerminalSource) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}
	close(t.done)
	t.running = false
	return term.Restore(int(t.in.Fd()), t.state)
}

// parseTerminalInput converts one read of raw terminal bytes into key
// events. quit is set for Ctrl+C, Ctrl+D and a lone Esc. Escape sequences
// (arrows, function keys) are dropped.
func parseTerminalInput(b []byte, when time.Time) (events []KeyEvent, quit bool) {
	s := string(b)
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == 0x03 || c == 0x04:
			return events, true
		case c == 0x1b:
			if i == len(s)-1 {
				return events, true
			}
			i = skipEscape(s, i)
			continue
		case c == 0x7f || c == 0x08:
			events = append(events, KeyEvent{Kind: KindBackspace, When: when})
		case c == '\r' || c == '\n':
			events = append(events, KeyEvent{Kind: KindEnter, When: when})
		case c < 0x20:
			// Other control keys.
		default:
			r, size := utf8.DecodeRuneInString(s[i:])
			ev := CharEvent(r)
			if ev.Kind != KindIgnored && r != utf8.RuneError {
				ev.When = when
				events = append(events, ev)
			}
			i += size
			continue
		}
		i++
	}
	return events, false
}

// skipEscape returns the index just past the escape sequence starting at i.
func skipEscape(s string, i int) int {
	i++ // ESC
	if i >= len(s) {
		return i
	}
	switch s[i] {
	case '[':
		// CSI: parameters then a final byte in 0x40..0x7e.
		i++
		for i < len(s) && (s[i] < 0x40 || s[i] > 0x7e) {
			i++
		}
		return i + 1
	case 'O':
		// SS3: one final byte.
		return i + 2
	default:
		// Alt+key.
		return i + 1
	}
}
