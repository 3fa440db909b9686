package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/hangr/internal/ranking"
)

// FilterStateStore persists discovery filters per client key.
type FilterStateStore interface {
	SaveFilterState(ctx context.Context, clientKey string, state FilterState) error
	LoadFilterState(ctx context.Context, clientKey string) (FilterState, error)
}

// FilterService remembers the discovery filter selection of a client.
type FilterService struct {
	store    FilterStateStore
	catalog  EmojiCatalog
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// NewFilterService constructs a FilterService.
func NewFilterService(store FilterStateStore, catalog EmojiCatalog, location *time.Location, now func() time.Time, logger *slog.Logger) *FilterService {
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	if len(catalog.emojis) == 0 {
		catalog = NewEmojiCatalog(nil)
	}
	return &FilterService{store: store, catalog: catalog, location: location, now: now, logger: defaultLogger(logger)}
}

// Save validates and stores the filter state of clientKey. Dates are stored as
// given so that a stale date can be reported as invalid on the next load.
func (s *FilterService) Save(ctx context.Context, clientKey string, state FilterState) (FilterState, error) {
	if s == nil || s.store == nil {
		return FilterState{}, fmt.Errorf("filter store not configured")
	}
	clientKey = strings.TrimSpace(clientKey)
	if clientKey == "" {
		return FilterState{}, ErrUnauthorized
	}

	vErr := &ValidationError{}
	if state.Emoji != "" && !s.catalog.Contains(state.Emoji) {
		vErr.add("emoji", "unknown")
	}
	if state.Date != "" {
		if _, err := time.ParseInLocation(ranking.DateLayout, state.Date, s.location); err != nil {
			vErr.add("date", "malformed")
		}
	}
	if state.Location != nil && !state.Location.Valid() {
		vErr.add("location", "out_of_range")
	}
	if vErr.HasErrors() {
		return FilterState{}, vErr
	}

	state.UpdatedAt = s.now()
	if err := s.store.SaveFilterState(ctx, clientKey, state); err != nil {
		serviceLogger(ctx, s.logger, "FilterService", "Save").ErrorContext(ctx, "failed to save filter state", "error", err)
		return FilterState{}, mapRepoError(err)
	}
	return state, nil
}

// Load returns the stored filter state of clientKey for display. A client
// without stored state gets the default selection: no emoji and today's date.
func (s *FilterService) Load(ctx context.Context, clientKey string) (FilterState, error) {
	state, err := s.Restore(ctx, clientKey)
	if err != nil {
		return FilterState{}, err
	}
	if state.Date == "" {
		state.Date = ranking.Today(s.now(), s.location)
	}
	return state, nil
}

// Restore returns the selection exactly as the client left it. Fields the
// client never chose stay empty, so an unset date keeps the default window.
func (s *FilterService) Restore(ctx context.Context, clientKey string) (FilterState, error) {
	if s == nil || s.store == nil {
		return FilterState{}, fmt.Errorf("filter store not configured")
	}
	clientKey = strings.TrimSpace(clientKey)
	if clientKey == "" {
		return FilterState{}, nil
	}

	state, err := s.store.LoadFilterState(ctx, clientKey)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			return FilterState{}, nil
		}
		serviceLogger(ctx, s.logger, "FilterService", "Restore").ErrorContext(ctx, "failed to load filter state", "error", err)
		return FilterState{}, mapRepoError(err)
	}
	return state, nil
}
