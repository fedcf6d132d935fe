package timestamp

import (
	"fmt"
	"time"
)

// Display layouts approximating how chat clients render each flag in an
// English locale.
const (
	layoutShortTime     = "15:04"
	layoutLongTime      = "15:04:05"
	layoutShortDate     = "02/01/2006"
	layoutLongDate      = "2 January 2006"
	layoutShortDateTime = "2 January 2006 15:04"
	layoutLongDateTime  = "Monday, 2 January 2006 15:04"
)

// Preview renders t the way a client would display a token with flag f.
// now is only used by the relative style.
func Preview(t time.Time, f Flag, now time.Time) string {
	switch f {
	case ShortTime:
		return t.Format(layoutShortTime)
	case LongTime:
		return t.Format(layoutLongTime)
	case ShortDate:
		return t.Format(layoutShortDate)
	case LongDate:
		return t.Format(layoutLongDate)
	case LongDateTime:
		return t.Format(layoutLongDateTime)
	case Relative:
		return relative(t.Unix() - now.Unix())
	default:
		return t.Format(layoutShortDateTime)
	}
}

// Span lengths in seconds. Durations are avoided because they cap out
// near 292 years and typed years reach 9999.
const (
	minute = 60
	hour   = 60 * minute
	day    = 24 * hour
	month  = 30 * day
	year   = 365 * day
)

type span struct {
	limit int64
	unit  int64
	one   string
	name  string
}

var spans = []span{
	{45, 0, "", ""},
	{90, minute, "a minute", "minutes"},
	{45 * minute, minute, "", "minutes"},
	{90 * minute, hour, "an hour", "hours"},
	{22 * hour, hour, "", "hours"},
	{36 * hour, day, "a day", "days"},
	{26 * day, day, "", "days"},
	{45 * day, month, "a month", "months"},
	{320 * day, month, "", "months"},
	{548 * day, year, "a year", "years"},
}

// relative mirrors the coarse "in 3 days" / "2 hours ago" wording for a
// difference of secs seconds.
func relative(secs int64) string {
	future := secs >= 0
	if !future {
		secs = -secs
	}

	text := fmt.Sprintf("%d years", roundDiv(secs, year))
	for _, s := range spans {
		if secs < s.limit {
			text = s.describe(secs)
			break
		}
	}

	if future {
		return "in " + text
	}
	return text + " ago"
}

func (s span) describe(secs int64) string {
	switch {
	case s.unit == 0:
		return "a few seconds"
	case s.one != "":
		return s.one
	default:
		return fmt.Sprintf("%d %s", roundDiv(secs, s.unit), s.name)
	}
}

func roundDiv(n, unit int64) int64 {
	return (n + unit/2) / unit
}
