package ranking

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/example/hangr/internal/geo"
)

// Plan is the subset of plan attributes the pipeline needs.
type Plan struct {
	ID            string
	Title         string
	Emoji         string
	ScheduledAt   time.Time
	Place         string
	Coordinates   *geo.Point
	City          string
	AttendeeCount int
}

// Criteria bundles the viewer context and filter selections. Now is never
// read from the system clock: a zero Now places the cutoff at the zero time,
// so every dated plan passes the temporal filter.
type Criteria struct {
	UserLocation *geo.Point
	UserCity     string
	Emoji        string
	Date         string
	Now          time.Time
	Location     *time.Location
}

// Ranked is a plan annotated with its computed ordering keys.
type Ranked struct {
	Plan
	// DistanceKm is +Inf when either side has no coordinates.
	DistanceKm float64
	SameCity   bool
	day        time.Time
}

// HasDistance reports whether the distance is known.
func (r Ranked) HasDistance() bool {
	return !math.IsInf(r.DistanceKm, 1)
}

// Result is the ordered display list together with the outcome of the date filter.
type Result struct {
	Plans  []Ranked
	Window Window
}

// DateFilterValid reports whether the date filter was honoured.
func (r Result) DateFilterValid() bool {
	return r.Window.Valid()
}

// FilterEmoji returns the plans whose emoji equals emoji, preserving order.
// An empty emoji matches everything. The input is not modified.
func FilterEmoji(plans []Plan, emoji string) []Plan {
	out := make([]Plan, 0, len(plans))
	for _, p := range plans {
		if emoji == "" || p.Emoji == emoji {
			out = append(out, p)
		}
	}
	return out
}

// Rank filters and orders plans for display.
func Rank(plans []Plan, c Criteria) Result {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	window := ResolveWindow(c.Date, c.Now, loc)
	userCity := normalizeCity(c.UserCity)

	ranked := make([]Ranked, 0, len(plans))
	for _, p := range FilterEmoji(plans, c.Emoji) {
		if p.ScheduledAt.IsZero() || p.ScheduledAt.Before(window.Start) {
			continue
		}
		ranked = append(ranked, Ranked{
			Plan:       p,
			DistanceKm: geo.Distance(c.UserLocation, p.Coordinates),
			SameCity:   userCity != "" && normalizeCity(p.City) == userCity,
			day:        Midnight(p.ScheduledAt.In(loc)),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return less(ranked[i], ranked[j])
	})

	return Result{Plans: ranked, Window: window}
}

func less(a, b Ranked) bool {
	if !a.day.Equal(b.day) {
		return a.day.Before(b.day)
	}
	if a.SameCity != b.SameCity {
		return a.SameCity
	}
	if a.DistanceKm != b.DistanceKm {
		return a.DistanceKm < b.DistanceKm
	}
	if !a.ScheduledAt.Equal(b.ScheduledAt) {
		return a.ScheduledAt.Before(b.ScheduledAt)
	}
	return a.ID < b.ID
}

func normalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}
