package application

import (
	"time"

	"github.com/example/hangr/internal/geo"
	"github.com/example/hangr/internal/ranking"
)

// Principal represents the signed-in user invoking a service method.
type Principal struct {
	UserID      string
	DisplayName string
}

// Plan visibility values.
const (
	VisibilityPublic  = "public"
	VisibilityLink    = "link"
	VisibilityPrivate = "private"
)

// Plan is a meetup as exposed by the application services.
type Plan struct {
	ID            string
	Title         string
	Emoji         string
	ScheduledAt   time.Time
	Place         string
	Coordinates   *geo.Point
	City          string
	CreatorID     string
	Visibility    string
	AttendeeCount int
	CreatedAt     time.Time
}

// Attendee is a single join of a plan.
type Attendee struct {
	ID       string
	PlanID   string
	UserID   string
	Handle   string
	JoinedAt time.Time
}

// Chat is the message board of a plan.
type Chat struct {
	PlanID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ChatMessage is a message posted to a plan chat.
type ChatMessage struct {
	ID        string
	PlanID    string
	Handle    string
	Body      string
	CreatedAt time.Time
}

// User is a registered account.
type User struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserCredentials pairs a user with the stored password hash.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// Session is an issued authentication session.
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
	Emoji     string
	Date      string
	Location  *geo.Point
	UpdatedAt time.Time
}

// Notice is a user-visible hint attached to a discovery result.
type Notice string

const (
	// NoticeLocationUnavailable: no position was available, distance ordering is off.
	NoticeLocationUnavailable Notice = "location_unavailable"
	// NoticePlansUnavailable: the plan store could not be read.
	NoticePlansUnavailable Notice = "plans_unavailable"
	// NoticeInvalidDate: the date filter was in the past or malformed.
	NoticeInvalidDate Notice = "invalid_date"
)

// CreatePlanParams wraps the data required to create a plan.
type CreatePlanParams struct {
	Principal   *Principal
	Title       string
	Emoji       string
	ScheduledAt time.Time
	Place       string
	Coordinates *geo.Point
	Visibility  string
}

// CreatePlanResult is the created plan plus non-fatal warnings.
type CreatePlanResult struct {
	Plan     Plan
	Warnings []string
}

// DiscoverParams describes a discovery request.
type DiscoverParams struct {
	// ClientKey identifies the client whose filter state is saved. Optional.
	ClientKey string
	Location  *geo.Point
	// City is the viewer city when already known; resolved from Location otherwise.
	City     string
	Emoji    string
	Date     string
	RadiusKm float64
}

// DiscoverResult is the ranked plan list for a discovery request.
type DiscoverResult struct {
	Plans           []ranking.Ranked
	DateFilterValid bool
	Window          ranking.Window
	City            string
	Notices         []Notice
}

// JoinPlanParams wraps the data required to join a plan.
type JoinPlanParams struct {
	Principal *Principal
	PlanID    string
	Handle    string
}

// PostMessageParams wraps the data required to post a chat message.
type PostMessageParams struct {
	Principal *Principal
	PlanID    string
	Handle    string
	Body      string
}

// RegisterParams wraps the data required to create an account.
type RegisterParams struct {
	Email       string
	Password    string
	DisplayName string
}

// AuthenticateParams wraps login credentials.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult is the user and session issued by a login.
type AuthenticateResult struct {
	User    User
	Session Session
}
