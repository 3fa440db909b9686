package geo

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	madrid := Point{Lat: 40.4168, Lng: -3.7038}
	barcelona := Point{Lat: 41.3874, Lng: 2.1686}

	t.Run("zero for identical points", func(t *testing.T) {
		if d := Haversine(madrid, madrid); d != 0 {
			t.Fatalf("expected 0, got %f", d)
		}
	})

	t.Run("symmetric under swapping origin and destination", func(t *testing.T) {
		points := []Point{madrid, barcelona, {Lat: -33.8688, Lng: 151.2093}, {Lat: 0, Lng: 179.9}, {Lat: 0, Lng: -179.9}}
		for _, a := range points {
			for _, b := range points {
				ab := Haversine(a, b)
				ba := Haversine(b, a)
				if math.Abs(ab-ba) > 1e-9 {
					t.Fatalf("distance not symmetric for %v/%v: %f vs %f", a, b, ab, ba)
				}
			}
		}
	})

	t.Run("matches known city distance", func(t *testing.T) {
		d := Haversine(madrid, barcelona)
		if d < 500 || d > 510 {
			t.Fatalf("expected ~505km between Madrid and Barcelona, got %f", d)
		}
	})
}

func TestDistance_UnknownIsInfinite(t *testing.T) {
	p := &Point{Lat: 1, Lng: 1}
	if d := Distance(nil, p); !math.IsInf(d, 1) {
		t.Fatalf("expected +Inf, got %f", d)
	}
	if d := Distance(p, nil); !math.IsInf(d, 1) {
		t.Fatalf("expected +Inf, got %f", d)
	}
}

func TestPoint_Valid(t *testing.T) {
	tests := []struct {
		name  string
		point Point
		want  bool
	}{
		{name: "origin", point: Point{}, want: true},
		{name: "north pole", point: Point{Lat: 90, Lng: 0}, want: true},
		{name: "latitude out of range", point: Point{Lat: 91, Lng: 0}, want: false},
		{name: "longitude out of range", point: Point{Lat: 0, Lng: -181}, want: false},
		{name: "not a number", point: Point{Lat: math.NaN(), Lng: 0}, want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.point.Valid(); got != tc.want {
				t.Fatalf("Valid() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIndex_Within(t *testing.T) {
	idx := NewIndex()
	sol := Point{Lat: 40.4169, Lng: -3.7035}
	idx.Insert("retiro", Point{Lat: 40.4153, Lng: -3.6845})
	idx.Insert("malasana", Point{Lat: 40.4260, Lng: -3.7040})
	idx.Insert("toledo", Point{Lat: 39.8628, Lng: -4.0273})
	idx.Insert("broken", Point{Lat: 200, Lng: 0})

	if idx.Len() != 3 {
		t.Fatalf("expected 3 indexed points, got %d", idx.Len())
	}

	got := idx.Within(sol, 5)
	if len(got) != 2 {
		t.Fatalf("expected 2 points within 5km, got %v", got)
	}
	if _, ok := got["toledo"]; ok {
		t.Fatalf("toledo should be outside 5km radius")
	}
	for id, d := range got {
		if d > 5 {
			t.Fatalf("%s reported at %fkm, beyond radius", id, d)
		}
	}

	if got := idx.Within(sol, 0); len(got) != 0 {
		t.Fatalf("expected empty result for zero radius, got %v", got)
	}
}
