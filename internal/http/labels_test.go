package http

import (
	"math"
	"testing"
	"time"
)

func TestRelativeLabel(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		then     time.Time
		expected string
	}{
		{now.Add(20 * time.Second), "ahora"},
		{now.Add(-90 * time.Second), "hace 1 minuto"},
		{now.Add(-25 * time.Minute), "hace 25 minutos"},
		{now.Add(90 * time.Minute), "en 1 hora"},
		{now.Add(5 * time.Hour), "en 5 horas"},
		{now.Add(30 * time.Hour), "en 1 día"},
		{now.Add(-3 * 24 * time.Hour), "hace 3 días"},
		{now.Add(10 * 24 * time.Hour), "en 1 semana"},
		{now.Add(400 * 24 * time.Hour), "en mucho tiempo"},
	}

	for _, tc := range tests {
		if got := relativeLabel(tc.then, now); got != tc.expected {
			t.Errorf("relativeLabel(%v) = %q, want %q", tc.then.Sub(now), got, tc.expected)
		}
	}
}

func TestDistanceLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		km       float64
		expected string
	}{
		{math.Inf(1), ""},
		{0, "0 m"},
		{0.25, "250 m"},
		{1.5, "1.5 km"},
		{12, "12 km"},
	}

	for _, tc := range tests {
		if got := distanceLabel(tc.km); got != tc.expected {
			t.Errorf("distanceLabel(%v) = %q, want %q", tc.km, got, tc.expected)
		}
	}
}
