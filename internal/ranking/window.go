package ranking

import (
	"strings"
	"time"
)

// StaleAfter is how long after its start a plan stays visible.
const StaleAfter = 6 * time.Hour

// DateLayout is the wire format of the date filter.
const DateLayout = "2006-01-02"

// DateMode describes how the date filter was interpreted.
type DateMode string

const (
	// DateDefault means no date filter was supplied.
	DateDefault DateMode = "default"
	// DateToday means the filter named the current calendar date.
	DateToday DateMode = "today"
	// DateFuture means the filter named a later calendar date.
	DateFuture DateMode = "future"
	// DateInvalid means the filter was in the past or malformed; the default
	// window applies instead.
	DateInvalid DateMode = "invalid"
)

// Window is the resolved temporal constraint: plans starting before Start are
// excluded.
type Window struct {
	Mode  DateMode
	Start time.Time
}

// Valid reports whether the supplied date filter was accepted.
func (w Window) Valid() bool {
	return w.Mode != DateInvalid
}

// ResolveWindow interprets a YYYY-MM-DD date filter relative to now in loc.
func ResolveWindow(date string, now time.Time, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	cutoff := now.Add(-StaleAfter)

	date = strings.TrimSpace(date)
	if date == "" {
		return Window{Mode: DateDefault, Start: cutoff}
	}

	day, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return Window{Mode: DateInvalid, Start: cutoff}
	}

	today := Midnight(now)
	switch {
	case day.Before(today):
		return Window{Mode: DateInvalid, Start: cutoff}
	case day.Equal(today):
		start := today
		if cutoff.After(start) {
			start = cutoff
		}
		return Window{Mode: DateToday, Start: start}
	default:
		return Window{Mode: DateFuture, Start: day}
	}
}

// Midnight returns the start of t's calendar day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Today formats now as a date filter value in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(DateLayout)
}
