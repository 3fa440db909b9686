// Package location tracks the most recent position fix reported by each
// client session.
//
// Fixes arrive asynchronously and may race: a client can re-request its
// position while an earlier request is still pending. Every request takes a
// sequence number from Begin and only the newest sequence may settle, so a
// late answer to an older request never overwrites a newer one.
package location

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/example/hangr/internal/geo"
	"github.com/example/hangr/internal/geocode"
)

// Options mirrors the browser geolocation request options handed to clients
// and bounds how much per-client state the tracker keeps.
type Options struct {
	HighAccuracy bool          `json:"enable_high_accuracy"`
	Timeout      time.Duration `json:"-"`
	MaximumAge   time.Duration `json:"-"`

	// MaxClients caps tracked clients; the least recently used is evicted.
	MaxClients int `json:"-"`
	// IdleTTL is how long a client without activity is kept. It is never
	// shorter than Timeout plus MaximumAge.
	IdleTTL time.Duration `json:"-"`
}

// DefaultOptions are the geolocation request options used by the app.
func DefaultOptions() Options {
	return Options{
		HighAccuracy: true,
		Timeout:      8 * time.Second,
		MaximumAge:   30 * time.Second,
		MaxClients:   10000,
		IdleTTL:      15 * time.Minute,
	}
}

// Fix is a settled position for a client session.
type Fix struct {
	Seq        uint64
	Point      geo.Point
	City       string
	Denied     bool
	ReceivedAt time.Time
}

type state struct {
	issued  uint64
	fix     *Fix
	touched time.Time
}

// Tracker holds per-session position state.
type Tracker struct {
	mu       sync.Mutex
	sessions *lru.Cache[string, *state]
	opts     Options
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewTracker constructs a Tracker. Zero option values fall back to DefaultOptions.
func NewTracker(opts Options, now func() time.Time) *Tracker {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MaximumAge <= 0 {
		opts.MaximumAge = def.MaximumAge
	}
	if opts.MaxClients <= 0 {
		opts.MaxClients = def.MaxClients
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = def.IdleTTL
	}
	if floor := opts.Timeout + opts.MaximumAge; opts.IdleTTL < floor {
		opts.IdleTTL = floor
	}
	if now == nil {
		now = time.Now
	}
	sessions, err := lru.New[string, *state](opts.MaxClients)
	if err != nil {
		panic(fmt.Sprintf("location: %v", err))
	}
	return &Tracker{sessions: sessions, opts: opts, now: now}
}

// Options returns the configured geolocation options.
func (t *Tracker) Options() Options {
	return t.opts
}

// lookupLocked returns the live state for key. Idle state is dropped.
func (t *Tracker) lookupLocked(key string, now time.Time) (*state, bool) {
	s, ok := t.sessions.Get(key)
	if !ok {
		return nil, false
	}
	if now.Sub(s.touched) > t.opts.IdleTTL {
		t.sessions.Remove(key)
		return nil, false
	}
	return s, true
}

// Begin issues the next request sequence for key.
func (t *Tracker) Begin(key string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	s, ok := t.lookupLocked(key, now)
	if !ok {
		s = &state{}
		t.sessions.Add(key, s)
	}
	s.issued++
	s.touched = now
	return s.issued
}

// Settle records the outcome of request seq. It reports false and discards
// the fix when a newer request has been issued since.
func (t *Tracker) Settle(key string, seq uint64, p geo.Point) bool {
	return t.settle(key, seq, Fix{Seq: seq, Point: p})
}

// Deny records that request seq ended in a permission or position error.
func (t *Tracker) Deny(key string, seq uint64) bool {
	return t.settle(key, seq, Fix{Seq: seq, Denied: true})
}

func (t *Tracker) settle(key string, seq uint64, fix Fix) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	s, ok := t.lookupLocked(key, now)
	if !ok || seq == 0 || seq != s.issued {
		return false
	}
	fix.ReceivedAt = now
	s.fix = &fix
	s.touched = now
	return true
}

// Current returns the settled fix for key while it is younger than the
// maximum age. Denied fixes are returned as well so callers can tell "denied"
// from "still pending".
func (t *Tracker) Current(key string) (Fix, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	s, ok := t.lookupLocked(key, now)
	if !ok || s.fix == nil {
		return Fix{}, false
	}
	if now.Sub(s.fix.ReceivedAt) > t.opts.MaximumAge {
		return Fix{}, false
	}
	return *s.fix, true
}

// ResolveCity looks up the city for the fix settled under seq in the
// background and attaches it only if seq is still the settled request. The
// returned channel is closed once the lookup finished or was discarded.
func (t *Tracker) ResolveCity(ctx context.Context, key string, seq uint64, resolver geocode.Resolver) <-chan struct{} {
	done := make(chan struct{})

	t.mu.Lock()
	s, ok := t.sessions.Peek(key)
	if !ok || s.fix == nil || s.fix.Seq != seq || s.fix.Denied {
		t.mu.Unlock()
		close(done)
		return done
	}
	point := s.fix.Point
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer close(done)

		city := geocode.BestEffort(context.WithoutCancel(ctx), resolver, point, t.opts.Timeout)
		if city == "" {
			return
		}

		t.mu.Lock()
		defer t.mu.Unlock()
		if cur, ok := t.sessions.Peek(key); ok && cur.fix != nil && cur.fix.Seq == seq {
			cur.fix.City = city
		}
	}()
	return done
}

// Wait blocks until all background city lookups have finished.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// Prune drops clients idle for longer than IdleTTL and reports how many
// were removed.
func (t *Tracker) Prune(context.Context) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	var removed int64
	for _, key := range t.sessions.Keys() {
		s, ok := t.sessions.Peek(key)
		if ok && now.Sub(s.touched) > t.opts.IdleTTL {
			t.sessions.Remove(key)
			removed++
		}
	}
	return removed, nil
}

// Len reports how many clients are tracked.
func (t *Tracker) Len() int {
	return t.sessions.Len()
}
