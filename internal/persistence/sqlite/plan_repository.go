package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/hangr/internal/persistence"
)

// PlanRepository implements persistence.PlanRepository using SQLite.
type PlanRepository struct {
	pool *ConnectionPool
}

// NewPlanRepository creates a new SQLite plan repository.
func NewPlanRepository(pool *ConnectionPool) *PlanRepository {
	return &PlanRepository{pool: pool}
}

const planColumns = `
	p.id, p.title, p.emoji, p.scheduled_at, p.place, p.latitude, p.longitude,
	p.city, p.creator_id, p.visibility, p.created_at,
	(SELECT COUNT(*) FROM attendees a WHERE a.plan_id = p.id) AS attendee_count`

// CreatePlan inserts a plan.
func (r *PlanRepository) CreatePlan(ctx context.Context, plan persistence.Plan) error {
	if plan.ID == "" || strings.TrimSpace(plan.Title) == "" || plan.ScheduledAt.IsZero() {
		return persistence.ErrConstraintViolation
	}
	if (plan.Latitude == nil) != (plan.Longitude == nil) {
		return persistence.ErrConstraintViolation
	}
	visibility := plan.Visibility
	if visibility == "" {
		visibility = persistence.VisibilityPublic
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO plans (id, title, emoji, scheduled_at, place, latitude, longitude, city, creator_id, visibility, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID,
		plan.Title,
		plan.Emoji,
		formatTime(plan.ScheduledAt),
		nullString(plan.Place),
		nullFloat(plan.Latitude),
		nullFloat(plan.Longitude),
		nullString(plan.City),
		nullString(plan.CreatorID),
		visibility,
		formatTime(plan.CreatedAt),
	)
	return mapError(err)
}

// GetPlan retrieves a plan by ID with its attendee count.
func (r *PlanRepository) GetPlan(ctx context.Context, id string) (persistence.Plan, error) {
	if id == "" {
		return persistence.Plan{}, persistence.ErrNotFound
	}
	row := r.pool.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans p WHERE p.id = ?`, id)
	plan, err := scanPlan(row)
	if err != nil {
		return persistence.Plan{}, mapError(err)
	}
	return plan, nil
}

// ListPlans returns plans ordered by scheduled instant, then ID.
func (r *PlanRepository) ListPlans(ctx context.Context, filter persistence.PlanFilter) ([]persistence.Plan, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Visibility != "" {
		clauses = append(clauses, "p.visibility = ?")
		args = append(args, filter.Visibility)
	}
	if filter.ScheduledFrom != nil {
		clauses = append(clauses, "p.scheduled_at >= ?")
		args = append(args, formatTime(*filter.ScheduledFrom))
	}

	query := `SELECT ` + planColumns + ` FROM plans p`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY p.scheduled_at ASC, p.id ASC"

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var plans []persistence.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}
	return plans, nil
}

func scanPlan(row rowScanner) (persistence.Plan, error) {
	var (
		plan                   persistence.Plan
		scheduledAt, createdAt string
		place, city, creatorID sql.NullString
		latitude, longitude    sql.NullFloat64
	)
	if err := row.Scan(
		&plan.ID,
		&plan.Title,
		&plan.Emoji,
		&scheduledAt,
		&place,
		&latitude,
		&longitude,
		&city,
		&creatorID,
		&plan.Visibility,
		&createdAt,
		&plan.AttendeeCount,
	); err != nil {
		return persistence.Plan{}, err
	}

	var err error
	if plan.ScheduledAt, err = parseTime("scheduled_at", scheduledAt); err != nil {
		return persistence.Plan{}, err
	}
	if plan.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Plan{}, err
	}
	plan.Place = stringPtr(place)
	plan.City = stringPtr(city)
	plan.CreatorID = stringPtr(creatorID)
	plan.Latitude = floatPtr(latitude)
	plan.Longitude = floatPtr(longitude)
	return plan, nil
}
