package persistence

import (
	"context"
	"time"
)

// PlanFilter narrows plan listings.
type PlanFilter struct {
	// Visibility restricts results to a single visibility when non-empty.
	Visibility string
	// ScheduledFrom drops plans scheduled strictly before the instant.
	ScheduledFrom *time.Time
}

// PlanRepository stores plans. Reads include the aggregated attendee count.
type PlanRepository interface {
	CreatePlan(ctx context.Context, plan Plan) error
	GetPlan(ctx context.Context, id string) (Plan, error)
	ListPlans(ctx context.Context, filter PlanFilter) ([]Plan, error)
}

// AttendeeRepository stores plan attendees. AddAttendee returns ErrDuplicate
// when a user already joined the plan.
type AttendeeRepository interface {
	AddAttendee(ctx context.Context, attendee Attendee) error
	ListAttendees(ctx context.Context, planID string) ([]Attendee, error)
}

// ChatRepository stores plan chats and their messages.
type ChatRepository interface {
	CreateChat(ctx context.Context, chat Chat) error
	GetChat(ctx context.Context, planID string) (Chat, error)
	AddMessage(ctx context.Context, message ChatMessage) error
	ListMessages(ctx context.Context, planID string) ([]ChatMessage, error)
	DeleteExpiredChats(ctx context.Context, reference time.Time) (int64, error)
}

// UserRepository exposes account storage.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error)
}

// FilterStateRepository remembers discovery filters per client key.
type FilterStateRepository interface {
	SaveFilterState(ctx context.Context, state FilterState) error
	GetFilterState(ctx context.Context, clientKey string) (FilterState, error)
}
