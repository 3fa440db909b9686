// Package geocode resolves coordinates to a city name using third-party
// reverse geocoding APIs. Resolution is best-effort: callers treat any error
// as "city unknown".
package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/example/hangr/internal/geo"
	"github.com/example/hangr/internal/logging"
)

// ErrNoCity is returned when the provider answered but named no settlement.
var ErrNoCity = errors.New("geocode: no city for coordinates")

// Resolver maps a coordinate to a city, town or village name.
type Resolver interface {
	City(ctx context.Context, p geo.Point) (string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, p geo.Point) (string, error)

// City implements Resolver.
func (f ResolverFunc) City(ctx context.Context, p geo.Point) (string, error) {
	return f(ctx, p)
}

// DefaultTimeout bounds a single best-effort resolution.
const DefaultTimeout = 8 * time.Second

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// Chain tries each resolver in order and returns the first city found.
type Chain []Resolver

// City implements Resolver.
func (c Chain) City(ctx context.Context, p geo.Point) (string, error) {
	var errs []error
	for _, r := range c {
		if r == nil {
			continue
		}
		city, err := r.City(ctx, p)
		if err == nil && city != "" {
			return city, nil
		}
		if err == nil {
			err = ErrNoCity
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return "", ErrNoCity
	}
	return "", errors.Join(errs...)
}

// BestEffort resolves the city for p within timeout and returns "" on any
// failure. Failures are logged at debug level only.
func BestEffort(ctx context.Context, r Resolver, p geo.Point, timeout time.Duration) string {
	if r == nil || !p.Valid() {
		return ""
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	city, err := r.City(ctx, p)
	if err != nil {
		logging.Or(ctx, nil).DebugContext(ctx, "reverse geocoding failed", "error", err, "point", p.String())
		return ""
	}
	return strings.TrimSpace(city)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func checkStatus(provider string, resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned status %d", provider, resp.StatusCode)
	}
	return nil
}

func logProvider(ctx context.Context, provider string, p geo.Point, start time.Time, err error) {
	logger := logging.Or(ctx, nil).With("provider", provider, "point", p.String(), "duration", time.Since(start))
	if err != nil {
		logger.DebugContext(ctx, "reverse geocode request failed", "error", err)
		return
	}
	logger.DebugContext(ctx, "reverse geocode request completed")
}
