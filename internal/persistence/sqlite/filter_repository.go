package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/example/hangr/internal/persistence"
)

// FilterStateRepository implements persistence.FilterStateRepository using SQLite.
type FilterStateRepository struct {
	pool *ConnectionPool
}

// NewFilterStateRepository creates a new SQLite filter state repository.
func NewFilterStateRepository(pool *ConnectionPool) *FilterStateRepository {
	return &FilterStateRepository{pool: pool}
}

// SaveFilterState inserts or replaces the filter state of a client.
func (r *FilterStateRepository) SaveFilterState(ctx context.Context, state persistence.FilterState) error {
	if strings.TrimSpace(state.ClientKey) == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO filter_state (client_key, emoji, filter_date, latitude, longitude, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (client_key) DO UPDATE SET
			emoji = excluded.emoji,
			filter_date = excluded.filter_date,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			updated_at = excluded.updated_at`,
		state.ClientKey,
		nullString(state.Emoji),
		nullString(state.Date),
		nullFloat(state.Latitude),
		nullFloat(state.Longitude),
		formatTime(state.UpdatedAt),
	)
	return mapError(err)
}

// GetFilterState returns the stored filter state of a client.
func (r *FilterStateRepository) GetFilterState(ctx context.Context, clientKey string) (persistence.FilterState, error) {
	var (
		state               persistence.FilterState
		emoji, date         sql.NullString
		latitude, longitude sql.NullFloat64
		updatedAt           string
	)
	err := r.pool.db.QueryRowContext(ctx, `
		SELECT client_key, emoji, filter_date, latitude, longitude, updated_at
		FROM filter_state WHERE client_key = ?`, clientKey,
	).Scan(&state.ClientKey, &emoji, &date, &latitude, &longitude, &updatedAt)
	if err != nil {
		return persistence.FilterState{}, mapError(err)
	}
	if state.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.FilterState{}, err
	}
	state.Emoji = stringPtr(emoji)
	state.Date = stringPtr(date)
	state.Latitude = floatPtr(latitude)
	state.Longitude = floatPtr(longitude)
	return state, nil
}
