// Package timestamp converts typed dates into chat timestamp tokens of the
// form <t:SECONDS:FLAG>.
package timestamp

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrInvalidDateTime is returned when the typed fields do not name a real
// calendar moment.
var ErrInvalidDateTime = errors.New("invalid date or time")

// ErrInvalidToken is returned by ParseToken for malformed tokens.
var ErrInvalidToken = errors.New("invalid timestamp token")

// Input layouts, for messages.
const (
	DateLayout = "DD.MM.YYYY"
	TimeLayout = "HH:MM"
)

// Flag selects how a chat client renders a token.
type Flag rune

const (
	ShortTime     Flag = 't'
	LongTime      Flag = 'T'
	ShortDate     Flag = 'd'
	LongDate      Flag = 'D'
	ShortDateTime Flag = 'f'
	LongDateTime  Flag = 'F'
	Relative      Flag = 'R'
)

// DefaultFlag is used when a typed flag is not recognized.
const DefaultFlag = ShortDateTime

var allFlags = []Flag{ShortTime, LongTime, ShortDate, LongDate, ShortDateTime, LongDateTime, Relative}

// Flags returns the recognized flags in display order.
func Flags() []Flag {
	out := make([]Flag, len(allFlags))
	copy(out, allFlags)
	return out
}

// Valid reports whether f is a recognized flag.
func (f Flag) Valid() bool {
	for _, v := range allFlags {
		if f == v {
			return true
		}
	}
	return false
}

func (f Flag) String() string { return string(rune(f)) }

// Description names the display style.
func (f Flag) Description() string {
	switch f {
	case ShortTime:
		return "short time"
	case LongTime:
		return "long time"
	case ShortDate:
		return "short date"
	case LongDate:
		return "long date"
	case ShortDateTime:
		return "short date/time"
	case LongDateTime:
		return "long date/time"
	case Relative:
		return "relative time"
	default:
		return "unknown"
	}
}

// NormalizeFlag maps a typed character to a flag. A lowercase r selects
// relative time. The second result is false for unrecognized characters.
func NormalizeFlag(r rune) (Flag, bool) {
	if r == 'r' {
		return Relative, true
	}
	f := Flag(r)
	return f, f.Valid()
}

// ParseFlag parses a one-character flag name, as used in configuration.
func ParseFlag(s string) (Flag, error) {
	if len(s) != 1 {
		return 0, fmt.Errorf("flag %q: must be one of %s", s, flagList())
	}
	f, ok := NormalizeFlag(rune(s[0]))
	if !ok {
		return 0, fmt.Errorf("flag %q: must be one of %s", s, flagList())
	}
	return f, nil
}

func flagList() string {
	parts := make([]string, len(allFlags))
	for i, f := range allFlags {
		parts[i] = f.String()
	}
	return strings.Join(parts, ", ")
}

// Token is a formatted timestamp reference.
type Token struct {
	unix int64
	flag Flag
}

// NewToken returns the token for t rendered with f.
func NewToken(t time.Time, f Flag) Token {
	return Token{unix: t.Unix(), flag: f}
}

// Unix returns the token's epoch seconds.
func (t Token) Unix() int64 { return t.unix }

// Flag returns the token's display flag.
func (t Token) Flag() Flag { return t.flag }

// Time returns the moment the token denotes, in loc.
func (t Token) Time(loc *time.Location) time.Time {
	return time.Unix(t.unix, 0).In(loc)
}

func (t Token) String() string {
	return fmt.Sprintf("<t:%d:%c>", t.unix, t.flag)
}

// ParseToken parses "<t:SECONDS>" or "<t:SECONDS:FLAG>".
func ParseToken(s string) (Token, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "<t:") || !strings.HasSuffix(s, ">") {
		return Token{}, fmt.Errorf("%w: %q", ErrInvalidToken, s)
	}
	body := strings.TrimSuffix(strings.TrimPrefix(s, "<t:"), ">")

	secs, flagPart, hasFlag := strings.Cut(body, ":")
	unix, err := strconv.ParseInt(secs, 10, 64)
	if err != nil {
		return Token{}, fmt.Errorf("%w: seconds %q", ErrInvalidToken, secs)
	}

	flag := DefaultFlag
	if hasFlag {
		if len(flagPart) != 1 || !Flag(flagPart[0]).Valid() {
			return Token{}, fmt.Errorf("%w: flag %q", ErrInvalidToken, flagPart)
		}
		flag = Flag(flagPart[0])
	}
	return Token{unix: unix, flag: flag}, nil
}

// Formatter turns typed dates into tokens. The zero value is not usable;
// use NewFormatter.
type Formatter struct {
	mu          sync.RWMutex
	loc         *time.Location
	defaultFlag Flag
	log         *slog.Logger
}

// NewFormatter returns a formatter that reads typed times in loc. A nil loc
// means time.Local; an invalid defaultFlag means DefaultFlag.
func NewFormatter(loc *time.Location, defaultFlag Flag) *Formatter {
	f := &Formatter{log: slog.Default()}
	f.SetLocation(loc)
	f.SetDefaultFlag(defaultFlag)
	return f
}

// WithLogger sets the logger used for coercion warnings.
func (f *Formatter) WithLogger(l *slog.Logger) *Formatter {
	if l != nil {
		f.log = l
	}
	return f
}

// SetLocation changes the zone typed times are read in.
func (f *Formatter) SetLocation(loc *time.Location) {
	if loc == nil {
		loc = time.Local
	}
	f.mu.Lock()
	f.loc = loc
	f.mu.Unlock()
}

// Location returns the zone typed times are read in.
func (f *Formatter) Location() *time.Location {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.loc
}

// SetDefaultFlag changes the flag substituted for unrecognized ones.
func (f *Formatter) SetDefaultFlag(flag Flag) {
	if !flag.Valid() {
		flag = DefaultFlag
	}
	f.mu.Lock()
	f.defaultFlag = flag
	f.mu.Unlock()
}

// DefaultFlag returns the flag substituted for unrecognized ones.
func (f *Formatter) DefaultFlag() Flag {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.defaultFlag
}

// Parse reads a DD.MM.YYYY date and HH:MM time in the formatter's zone.
func (f *Formatter) Parse(date, clock string) (time.Time, error) {
	return ParseIn(date, clock, f.Location())
}

// Format converts the typed fields into a token. Unknown flags fall back
// to the default flag; an impossible date or time is an error wrapping
// ErrInvalidDateTime.
func (f *Formatter) Format(date, clock string, flag rune) (Token, error) {
	t, err := f.Parse(date, clock)
	if err != nil {
		return Token{}, err
	}

	fl, ok := NormalizeFlag(flag)
	if !ok {
		def := f.DefaultFlag()
		f.log.Warn("invalid flag, using default", "flag", string(flag), "default", def.String())
		fl = def
	}
	return NewToken(t, fl), nil
}

// ParseIn reads a DD.MM.YYYY date and HH:MM time in loc.
func ParseIn(date, clock string, loc *time.Location) (time.Time, error) {
	day, month, year, err := splitDate(date)
	if err != nil {
		return time.Time{}, err
	}
	hour, minute, err := splitClock(clock)
	if err != nil {
		return time.Time{}, err
	}

	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("%w: month %02d in %q", ErrInvalidDateTime, month, date)
	}
	if year < 1 {
		return time.Time{}, fmt.Errorf("%w: year %04d in %q", ErrInvalidDateTime, year, date)
	}
	if day < 1 || day > daysIn(time.Month(month), year) {
		return time.Time{}, fmt.Errorf("%w: day %02d in %q", ErrInvalidDateTime, day, date)
	}
	if hour > 23 {
		return time.Time{}, fmt.Errorf("%w: hour %02d in %q", ErrInvalidDateTime, hour, clock)
	}
	if minute > 59 {
		return time.Time{}, fmt.Errorf("%w: minute %02d in %q", ErrInvalidDateTime, minute, clock)
	}

	if loc == nil {
		loc = time.Local
	}
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc), nil
}

func splitDate(s string) (day, month, year int, err error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 || len(parts[0]) != 2 || len(parts[1]) != 2 || len(parts[2]) != 4 {
		return 0, 0, 0, fmt.Errorf("%w: date %q, want %s", ErrInvalidDateTime, s, DateLayout)
	}
	if day, err = atoi(parts[0]); err != nil {
		return 0, 0, 0, fmt.Errorf("%w: date %q, want %s", ErrInvalidDateTime, s, DateLayout)
	}
	if month, err = atoi(parts[1]); err != nil {
		return 0, 0, 0, fmt.Errorf("%w: date %q, want %s", ErrInvalidDateTime, s, DateLayout)
	}
	if year, err = atoi(parts[2]); err != nil {
		return 0, 0, 0, fmt.Errorf("%w: date %q, want %s", ErrInvalidDateTime, s, DateLayout)
	}
	return day, month, year, nil
}

func splitClock(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok || len(h) != 2 || len(m) != 2 {
		return 0, 0, fmt.Errorf("%w: time %q, want %s", ErrInvalidDateTime, s, TimeLayout)
	}
	if hour, err = atoi(h); err != nil {
		return 0, 0, fmt.Errorf("%w: time %q, want %s", ErrInvalidDateTime, s, TimeLayout)
	}
	if minute, err = atoi(m); err != nil {
		return 0, 0, fmt.Errorf("%w: time %q, want %s", ErrInvalidDateTime, s, TimeLayout)
	}
	return hour, minute, nil
}

// atoi accepts ASCII digits only; strconv.Atoi would also take a sign.
func atoi(s string) (int, error) {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, strconv.ErrSyntax
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
