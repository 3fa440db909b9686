package persistence

import "time"

// Plan visibility values.
const (
	VisibilityPublic  = "public"
	VisibilityLink    = "link"
	VisibilityPrivate = "private"
)

// Plan is a stored meetup. AttendeeCount is derived on read and ignored on write.
type Plan struct {
	ID          string
	Title       string
	Emoji       string
	ScheduledAt time.Time
	Place       *string
	Latitude    *float64
	Longitude   *float64
	City        *string
	CreatorID   *string
	Visibility  string
	CreatedAt   time.Time

	AttendeeCount int
}

// Attendee is a single join of a plan. UserID is set for signed-in users.
type Attendee struct {
	ID       string
	PlanID   string
	UserID   *string
	Handle   string
	JoinedAt time.Time
}

// Chat is the message board attached to a plan.
type Chat struct {
	PlanID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ChatMessage is a single message posted to a plan chat.
type ChatMessage struct {
	ID        string
	PlanID    string
	Handle    string
	Body      string
	CreatedAt time.Time
}

// User is a registered account.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// FilterState is the discovery filter selection remembered per client.
type FilterState struct {
	ClientKey string
	Emoji     *string
	Date      *string
	Latitude  *float64
	Longitude *float64
	UpdatedAt time.Time
}
