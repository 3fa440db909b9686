package location

import (
	"context"
	"testing"
	"time"

	"github.com/example/hangr/internal/geo"
	"github.com/example/hangr/internal/geocode"
	"github.com/example/hangr/internal/testfixtures"
)

func TestTracker_LastRequestWins(t *testing.T) {
	clock := testfixtures.NewClock(time.Time{})
	tracker := NewTracker(Options{}, clock.NowFunc())

	first := tracker.Begin("client")
	second := tracker.Begin("client")
	if second <= first {
		t.Fatalf("sequence must increase: %d then %d", first, second)
	}

	if !tracker.Settle("client", second, geo.Point{Lat: 2, Lng: 2}) {
		t.Fatalf("newest request should settle")
	}
	if tracker.Settle("client", first, geo.Point{Lat: 1, Lng: 1}) {
		t.Fatalf("stale request must be discarded")
	}

	fix, ok := tracker.Current("client")
	if !ok {
		t.Fatalf("expected current fix")
	}
	if fix.Point.Lat != 2 || fix.Seq != second {
		t.Fatalf("unexpected fix %+v", fix)
	}
}

func TestTracker_MaximumAge(t *testing.T) {
	clock := testfixtures.NewClock(time.Time{})
	tracker := NewTracker(Options{MaximumAge: 30 * time.Second}, clock.NowFunc())

	seq := tracker.Begin("client")
	tracker.Settle("client", seq, geo.Point{Lat: 40, Lng: -3})

	clock.Advance(29 * time.Second)
	if _, ok := tracker.Current("client"); !ok {
		t.Fatalf("fix should still be fresh")
	}
	clock.Advance(2 * time.Second)
	if _, ok := tracker.Current("client"); ok {
		t.Fatalf("fix should have expired")
	}
}

func TestTracker_Deny(t *testing.T) {
	tracker := NewTracker(Options{}, nil)
	seq := tracker.Begin("client")
	if !tracker.Deny("client", seq) {
		t.Fatalf("deny should settle the newest request")
	}
	fix, ok := tracker.Current("client")
	if !ok || !fix.Denied {
		t.Fatalf("expected denied fix, got %+v (ok=%v)", fix, ok)
	}
	if tracker.Settle("other", 1, geo.Point{}) {
		t.Fatalf("settling an unissued sequence must fail")
	}
}

func TestTracker_ResolveCity(t *testing.T) {
	release := make(chan struct{})
	resolver := geocode.ResolverFunc(func(ctx context.Context, p geo.Point) (string, error) {
		<-release
		return "Madrid", nil
	})

	tracker := NewTracker(Options{}, nil)

	t.Run("attaches city to the current fix", func(t *testing.T) {
		seq := tracker.Begin("a")
		tracker.Settle("a", seq, geo.Point{Lat: 40.4, Lng: -3.7})
		done := tracker.ResolveCity(context.Background(), "a", seq, resolver)
		release <- struct{}{}
		<-done

		fix, _ := tracker.Current("a")
		if fix.City != "Madrid" {
			t.Fatalf("expected city to be attached, got %q", fix.City)
		}
	})

	t.Run("discards city when superseded", func(t *testing.T) {
		old := tracker.Begin("b")
		tracker.Settle("b", old, geo.Point{Lat: 40.4, Lng: -3.7})
		done := tracker.ResolveCity(context.Background(), "b", old, resolver)

		newer := tracker.Begin("b")
		tracker.Settle("b", newer, geo.Point{Lat: 41.3, Lng: 2.1})

		release <- struct{}{}
		<-done

		fix, _ := tracker.Current("b")
		if fix.City != "" {
			t.Fatalf("stale lookup must not attach city, got %q", fix.City)
		}
	})

	t.Run("no lookup for unknown sequence", func(t *testing.T) {
		done := tracker.ResolveCity(context.Background(), "missing", 1, resolver)
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("lookup for unknown session should finish immediately")
		}
	})

	tracker.Wait()
}

func TestTracker_PruneDropsIdleClients(t *testing.T) {
	clock := testfixtures.NewClock(time.Date(2026, time.September, 2, 20, 0, 0, 0, time.UTC))
	tracker := NewTracker(Options{IdleTTL: 10 * time.Minute}, clock.NowFunc())

	for _, key := range []string{"idle-1", "idle-2", "idle-3"} {
		seq := tracker.Begin(key)
		tracker.Settle(key, seq, geo.Point{Lat: 40.4, Lng: -3.7})
	}
	clock.Advance(8 * time.Minute)
	tracker.Begin("active")

	clock.Advance(3 * time.Minute)
	removed, err := tracker.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune returned error: %v", err)
	}
	if removed != 3 || tracker.Len() != 1 {
		t.Fatalf("expected 3 idle clients removed and 1 kept, got removed=%d len=%d", removed, tracker.Len())
	}
	if tracker.Settle("idle-1", 1, geo.Point{}) {
		t.Fatalf("a pruned client must not accept late fixes")
	}
}

func TestTracker_IdleClientExpiresOnAccess(t *testing.T) {
	clock := testfixtures.NewClock(time.Date(2026, time.September, 2, 20, 0, 0, 0, time.UTC))
	tracker := NewTracker(Options{MaximumAge: time.Hour, IdleTTL: 10 * time.Minute}, clock.NowFunc())
	if got := tracker.Options().IdleTTL; got != time.Hour+DefaultOptions().Timeout {
		t.Fatalf("idle ttl must cover timeout plus maximum age, got %s", got)
	}

	seq := tracker.Begin("client")
	tracker.Settle("client", seq, geo.Point{Lat: 40.4, Lng: -3.7})

	clock.Advance(time.Hour + 10*time.Minute)
	if _, ok := tracker.Current("client"); ok {
		t.Fatalf("expected no fix after the client went idle")
	}
	if tracker.Len() != 0 {
		t.Fatalf("expected idle state to be dropped, len=%d", tracker.Len())
	}
	if next := tracker.Begin("client"); next != 1 {
		t.Fatalf("expected a fresh sequence, got %d", next)
	}
}

func TestTracker_EvictsLeastRecentlyUsedClient(t *testing.T) {
	tracker := NewTracker(Options{MaxClients: 2}, nil)

	tracker.Begin("a")
	tracker.Begin("b")
	seq := tracker.Begin("a")
	tracker.Begin("c")

	if tracker.Len() != 2 {
		t.Fatalf("expected 2 tracked clients, got %d", tracker.Len())
	}
	if !tracker.Settle("a", seq, geo.Point{Lat: 1, Lng: 1}) {
		t.Fatalf("recently used client must be kept")
	}
	if tracker.Settle("b", 1, geo.Point{Lat: 2, Lng: 2}) {
		t.Fatalf("least recently used client must be evicted")
	}
}
