package calendar

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/example/hangr/internal/geo"
)

func TestEventEnd(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 5, 2, 18, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		until time.Time
		want  time.Time
	}{
		{"no cap", time.Time{}, start.Add(DefaultDuration)},
		{"later cap", start.Add(12 * time.Hour), start.Add(DefaultDuration)},
		{"earlier cap", start.Add(30 * time.Minute), start.Add(30 * time.Minute)},
		{"cap before start ignored", start.Add(-time.Hour), start.Add(DefaultDuration)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Event{Start: start, Until: tt.until}.End()
			if !got.Equal(tt.want) {
				t.Fatalf("End() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestExportRoundTrip(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 5, 2, 18, 0, 0, 0, time.UTC)
	data, err := Export(Event{
		UID:         "plan-1",
		Emoji:       "🍻",
		Title:       "Cañas",
		Start:       start,
		Until:       start.Add(12 * time.Hour),
		Place:       "Plaza Mayor",
		Coordinates: &geo.Point{Lat: 40.4155, Lng: -3.7074},
		URL:         "https://hangr.example/plans/plan-1",
		Stamp:       start.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !strings.Contains(string(data), "BEGIN:VCALENDAR") {
		t.Fatalf("missing calendar header:\n%s", data)
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ParseCalendar failed: %v", err)
	}
	events := cal.Events()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	ev := events[0]
	if p := ev.GetProperty(ical.ComponentPropertyUniqueId); p == nil || p.Value != "plan-1" {
		t.Fatalf("unexpected uid %#v", p)
	}
	if p := ev.GetProperty(ical.ComponentPropertySummary); p == nil || p.Value != "🍻 Cañas" {
		t.Fatalf("unexpected summary %#v", p)
	}
	if p := ev.GetProperty(ical.ComponentPropertyLocation); p == nil || p.Value != "Plaza Mayor" {
		t.Fatalf("unexpected location %#v", p)
	}
	gotStart, err := ev.GetStartAt()
	if err != nil || !gotStart.Equal(start) {
		t.Fatalf("unexpected start %s (%v)", gotStart, err)
	}
	gotEnd, err := ev.GetEndAt()
	if err != nil || !gotEnd.Equal(start.Add(DefaultDuration)) {
		t.Fatalf("unexpected end %s (%v)", gotEnd, err)
	}
}

func TestExportRequiresUID(t *testing.T) {
	t.Parallel()

	if _, err := Export(Event{Title: "x"}); !errors.Is(err, ErrMissingUID) {
		t.Fatalf("expected ErrMissingUID, got %v", err)
	}
}
