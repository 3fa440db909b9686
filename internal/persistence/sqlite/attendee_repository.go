package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/example/hangr/internal/persistence"
)

// AttendeeRepository implements persistence.AttendeeRepository using SQLite.
type AttendeeRepository struct {
	pool *ConnectionPool
}

// NewAttendeeRepository creates a new SQLite attendee repository.
func NewAttendeeRepository(pool *ConnectionPool) *AttendeeRepository {
	return &AttendeeRepository{pool: pool}
}

// AddAttendee records a join. The plan must exist; a signed-in user can join
// a plan only once.
func (r *AttendeeRepository) AddAttendee(ctx context.Context, attendee persistence.Attendee) error {
	if attendee.ID == "" || attendee.PlanID == "" || strings.TrimSpace(attendee.Handle) == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM plans WHERE id = ?`, attendee.PlanID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return persistence.ErrNotFound
			}
			return mapError(err)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO attendees (id, plan_id, user_id, handle, joined_at)
			VALUES (?, ?, ?, ?, ?)`,
			attendee.ID,
			attendee.PlanID,
			nullString(attendee.UserID),
			attendee.Handle,
			formatTime(attendee.JoinedAt),
		)
		return mapError(err)
	})
}

// ListAttendees returns the attendees of a plan, most recent join first.
func (r *AttendeeRepository) ListAttendees(ctx context.Context, planID string) ([]persistence.Attendee, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, plan_id, user_id, handle, joined_at
		FROM attendees
		WHERE plan_id = ?
		ORDER BY joined_at DESC, rowid DESC`, planID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var attendees []persistence.Attendee
	for rows.Next() {
		var (
			a        persistence.Attendee
			userID   sql.NullString
			joinedAt string
		)
		if err := rows.Scan(&a.ID, &a.PlanID, &userID, &a.Handle, &joinedAt); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		if a.JoinedAt, err = parseTime("joined_at", joinedAt); err != nil {
			return nil, err
		}
		a.UserID = stringPtr(userID)
		attendees = append(attendees, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendees: %w", err)
	}
	return attendees, nil
}
