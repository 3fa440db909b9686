// Package calendar exports plans as iCalendar documents.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/example/hangr/internal/geo"
)

// DefaultDuration is the event length when the plan has no shorter chat window.
const DefaultDuration = 2 * time.Hour

// ProductID identifies the generator in exported files.
const ProductID = "-//Hangr//Planes//ES"

// ErrMissingUID is returned for events without a plan id.
var ErrMissingUID = errors.New("calendar: event uid is required")

// Event is a plan as written to a VEVENT.
type Event struct {
	UID   string
	Emoji string
	Title string
	Start time.Time
	// Until caps the event end, normally the chat expiry.
	Until       time.Time
	Place       string
	Coordinates *geo.Point
	URL         string
	Stamp       time.Time
}

// End returns the event end: Start plus DefaultDuration, never past Until.
func (e Event) End() time.Time {
	end := e.Start.Add(DefaultDuration)
	if !e.Until.IsZero() && e.Until.After(e.Start) && e.Until.Before(end) {
		end = e.Until
	}
	return end
}

func (e Event) summary() string {
	return strings.TrimSpace(e.Emoji + " " + e.Title)
}

// Export serializes events into a single VCALENDAR.
func Export(events ...Event) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetMethod(ical.MethodPublish)

	for _, e := range events {
		if strings.TrimSpace(e.UID) == "" {
			return nil, ErrMissingUID
		}
		stamp := e.Stamp
		if stamp.IsZero() {
			stamp = time.Now()
		}

		vevent := cal.AddEvent(e.UID)
		vevent.SetDtStampTime(stamp.UTC())
		vevent.SetStartAt(e.Start.UTC())
		vevent.SetEndAt(e.End().UTC())
		vevent.SetSummary(e.summary())
		if e.Place != "" {
			vevent.SetLocation(e.Place)
		}
		if e.Coordinates != nil && e.Coordinates.Valid() {
			vevent.SetProperty(ical.ComponentPropertyGeo, fmt.Sprintf("%.6f;%.6f", e.Coordinates.Lat, e.Coordinates.Lng))
		}
		if e.URL != "" {
			vevent.SetURL(e.URL)
			vevent.SetDescription(e.URL)
		}
	}

	return []byte(cal.Serialize()), nil
}
