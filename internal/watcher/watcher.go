// Package watcher turns a stream of key events into timestamp
// replacements.
//
// A Watcher owns the input buffer and the processing flag. Each key event
// updates the buffer; when the buffer ends in a complete trigger the
// watcher formats it, hands the token to the replacer and clears the
// buffer. Events that arrive while a replacement is in flight are dropped.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"timestampus/internal/keystroke"
	"timestampus/internal/timestamp"
	"timestampus/internal/trigger"
)

// Formatter converts matched fields into a token.
type Formatter interface {
	Format(date, clock string, flag rune) (timestamp.Token, error)
}

// Replacer swaps the trigger text for the token in the focused field.
type Replacer interface {
	Replace(ctx context.Context, token timestamp.Token) error
}

// Notifier tells the user about a failed trigger.
type Notifier interface {
	Notify(ctx context.Context, summary, body string) error
}

// Lifecycle is the watcher's position in handling a trigger.
type Lifecycle int32

const (
	Idle Lifecycle = iota
	Matched
	Formatting
	Formatted
	Replacing
	FormatFailed
)

func (l Lifecycle) String() string {
	switch l {
	case Idle:
		return "idle"
	case Matched:
		return "matched"
	case Formatting:
		return "formatting"
	case Formatted:
		return "formatted"
	case Replacing:
		return "replacing"
	case FormatFailed:
		return "format-failed"
	default:
		return fmt.Sprintf("lifecycle(%d)", int32(l))
	}
}

// Stats counts what the watcher has seen.
type Stats struct {
	Events       uint64
	Dropped      uint64
	Matches      uint64
	Replacements uint64
	Failures     uint64
}

// Result describes one handled trigger.
type Result struct {
	Match trigger.Match
	Token timestamp.Token
	Err   error
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithBuffer replaces the default buffer, e.g. for a custom keyword.
func WithBuffer(b *trigger.Buffer) Option {
	return func(w *Watcher) {
		if b != nil {
			w.buf = b
		}
	}
}

// WithNotifier reports format failures to the user.
func WithNotifier(n Notifier) Option {
	return func(w *Watcher) { w.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// WithResultHook calls fn after every trigger, successful or not.
func WithResultHook(fn func(Result)) Option {
	return func(w *Watcher) { w.onResult = fn }
}

// Watcher handles key events. HandleKey must be called from one goroutine
// at a time; the inspection methods are safe from any goroutine.
type Watcher struct {
	buf       *trigger.Buffer
	formatter Formatter
	replacer  Replacer
	notifier  Notifier
	log       *slog.Logger
	onResult  func(Result)

	processing atomic.Bool
	state      atomic.Int32

	// settledAt is when the last replacement finished. Events stamped
	// earlier were typed during the replacement and are dropped.
	settledAt atomic.Int64

	// text mirrors the buffer for readers on other goroutines.
	textMu sync.RWMutex
	text   string

	events       atomic.Uint64
	dropped      atomic.Uint64
	matches      atomic.Uint64
	replacements atomic.Uint64
	failures     atomic.Uint64
}

// New creates a watcher with the default keyword and buffer size.
func New(f Formatter, r Replacer, opts ...Option) *Watcher {
	buf, _ := trigger.NewBuffer(trigger.MustGrammar(trigger.DefaultKeyword), trigger.DefaultMaxLen)
	w := &Watcher{
		buf:       buf,
		formatter: f,
		replacer:  r,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HandleKey processes one key event synchronously, including any
// replacement it triggers.
func (w *Watcher) HandleKey(ctx context.Context, ev keystroke.KeyEvent) {
	w.events.Add(1)

	if w.processing.Load() {
		w.dropped.Add(1)
		return
	}
	if !ev.When.IsZero() && ev.When.UnixNano() < w.settledAt.Load() {
		w.dropped.Add(1)
		return
	}

	switch ev.Kind {
	case keystroke.KindBackspace:
		w.buf.Backspace()
	case keystroke.KindEnter:
		w.buf.Reset()
		w.sync()
		return
	case keystroke.KindSpace:
		w.buf.Append(' ')
	case keystroke.KindChar:
		w.buf.Append(ev.Char)
	default:
		return
	}
	w.sync()

	m, ok := w.buf.Match()
	if !ok {
		return
	}
	w.handleMatch(ctx, m)
}

func (w *Watcher) handleMatch(ctx context.Context, m trigger.Match) {
	w.processing.Store(true)
	defer func() {
		w.buf.Reset()
		w.sync()
		w.settledAt.Store(time.Now().UnixNano())
		w.setState(Idle)
		w.processing.Store(false)
	}()

	w.matches.Add(1)
	w.setState(Matched)
	w.log.Info("trigger matched", "date", m.Date, "time", m.Time, "flag", string(m.Flag))

	w.setState(Formatting)
	token, err := w.formatter.Format(m.Date, m.Time, m.Flag)
	if err != nil {
		w.setState(FormatFailed)
		w.failures.Add(1)
		w.log.Warn("cannot format trigger", "text", m.Text, "error", err)
		w.notify(ctx, m, err)
		w.report(Result{Match: m, Err: err})
		return
	}
	w.setState(Formatted)

	w.setState(Replacing)
	if err := w.replacer.Replace(ctx, token); err != nil {
		w.failures.Add(1)
		w.log.Error("replacement failed", "token", token.String(), "error", err)
		w.report(Result{Match: m, Token: token, Err: err})
		return
	}

	w.replacements.Add(1)
	w.log.Info("replaced trigger", "token", token.String())
	w.report(Result{Match: m, Token: token})
}

func (w *Watcher) notify(ctx context.Context, m trigger.Match, cause error) {
	if w.notifier == nil {
		return
	}
	body := fmt.Sprintf("%s %s is not a valid date and time", m.Date, m.Time)
	if !errors.Is(cause, timestamp.ErrInvalidDateTime) {
		body = cause.Error()
	}
	if err := w.notifier.Notify(ctx, "Timestamp not inserted", body); err != nil {
		w.log.Debug("notification failed", "error", err)
	}
}

func (w *Watcher) report(r Result) {
	if w.onResult != nil {
		w.onResult(r)
	}
}

func (w *Watcher) setState(l Lifecycle) {
	w.state.Store(int32(l))
}

func (w *Watcher) sync() {
	s := w.buf.String()
	w.textMu.Lock()
	w.text = s
	w.textMu.Unlock()
	w.log.Debug("buffer", "buffer", s, "stage", w.buf.Progress().String())
}

// Run feeds events from src to HandleKey until ctx is done or the source
// closes. The source is stopped on return.
func (w *Watcher) Run(ctx context.Context, src keystroke.Source) error {
	events, err := src.Start(ctx)
	if err != nil {
		return fmt.Errorf("start key source: %w", err)
	}
	defer func() {
		if err := src.Stop(); err != nil {
			w.log.Warn("stop key source", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			w.HandleKey(ctx, ev)
		}
	}
}

// Buffer returns the buffered text.
func (w *Watcher) Buffer() string {
	w.textMu.RLock()
	defer w.textMu.RUnlock()
	return w.text
}

// Processing reports whether a replacement is in flight.
func (w *Watcher) Processing() bool {
	return w.processing.Load()
}

// State returns the lifecycle state.
func (w *Watcher) State() Lifecycle {
	return Lifecycle(w.state.Load())
}

// Progress returns how far the buffer is into a trigger. Call it from the
// goroutine that calls HandleKey.
func (w *Watcher) Progress() trigger.Stage {
	return w.buf.Progress()
}

// Pattern describes the trigger this watcher recognizes.
func (w *Watcher) Pattern() string {
	return w.buf.Grammar().Pattern()
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() Stats {
	return Stats{
		Events:       w.events.Load(),
		Dropped:      w.dropped.Load(),
		Matches:      w.matches.Load(),
		Replacements: w.replacements.Load(),
		Failures:     w.failures.Load(),
	}
}
