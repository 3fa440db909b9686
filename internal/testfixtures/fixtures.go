package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/hangr/internal/application"
	"github.com/example/hangr/internal/geo"
	"github.com/example/hangr/internal/persistence"
	"github.com/example/hangr/internal/ranking"
)

var (
	userCounter    uint64
	planCounter    uint64
	sessionCounter uint64
	messageCounter uint64
)

var referenceTime = time.Date(2026, time.May, 1, 10, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic account that can be materialised
// for application or persistence tests.
type UserFixture struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(-time.Duration(idx) * time.Hour)
	fixture := UserFixture{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		DisplayName:  fmt.Sprintf("Usuario %03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithUserID(id string) UserOption {
	return func(f *UserFixture) { f.ID = id }
}

func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) { f.Email = email }
}

func WithUserDisplayName(name string) UserOption {
	return func(f *UserFixture) { f.DisplayName = name }
}

func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) { f.PasswordHash = hash }
}

// Application converts the fixture into the application representation.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:          f.ID,
		Email:       f.Email,
		DisplayName: f.DisplayName,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Credentials pairs the user with its password hash.
func (f UserFixture) Credentials() application.UserCredentials {
	return application.UserCredentials{User: f.Application(), PasswordHash: f.PasswordHash}
}

// Principal returns the principal of a signed-in fixture user.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, DisplayName: f.DisplayName}
}

// Persistence converts the fixture into the stored representation.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		DisplayName:  f.DisplayName,
		PasswordHash: f.PasswordHash,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// ----------------------------- Plan fixtures -----------------------------

// PlanFixture represents a deterministic plan. By default it is public and
// starts two hours after ReferenceTime in central Madrid.
type PlanFixture struct {
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

// PlanOption configures the generated plan fixture.
type PlanOption func(*PlanFixture)

// NewPlanFixture returns a deterministic plan fixture with optional overrides.
func NewPlanFixture(opts ...PlanOption) PlanFixture {
	idx := atomic.AddUint64(&planCounter, 1)
	fixture := PlanFixture{
		ID:          fmt.Sprintf("plan-%03d", idx),
		Title:       fmt.Sprintf("Plan %03d", idx),
		Emoji:       application.DefaultEmoji,
		ScheduledAt: referenceTime.Add(2 * time.Hour),
		Place:       "Puerta del Sol",
		Coordinates: &geo.Point{Lat: 40.4169, Lng: -3.7035},
		City:        "Madrid",
		Visibility:  application.VisibilityPublic,
		CreatedAt:   referenceTime.Add(-time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithPlanID(id string) PlanOption {
	return func(f *PlanFixture) { f.ID = id }
}

func WithPlanTitle(title string) PlanOption {
	return func(f *PlanFixture) { f.Title = title }
}

func WithPlanEmoji(emoji string) PlanOption {
	return func(f *PlanFixture) { f.Emoji = emoji }
}

func WithPlanScheduledAt(t time.Time) PlanOption {
	return func(f *PlanFixture) { f.ScheduledAt = t }
}

func WithPlanPlace(place string) PlanOption {
	return func(f *PlanFixture) { f.Place = place }
}

// WithPlanCoordinates sets the plan position and city.
func WithPlanCoordinates(lat, lng float64, city string) PlanOption {
	return func(f *PlanFixture) {
		f.Coordinates = &geo.Point{Lat: lat, Lng: lng}
		f.City = city
	}
}

// WithoutPlanCoordinates drops position and city.
func WithoutPlanCoordinates() PlanOption {
	return func(f *PlanFixture) {
		f.Coordinates = nil
		f.City = ""
	}
}

func WithPlanCreator(userID string) PlanOption {
	return func(f *PlanFixture) { f.CreatorID = userID }
}

func WithPlanVisibility(visibility string) PlanOption {
	return func(f *PlanFixture) { f.Visibility = visibility }
}

// Application converts the fixture into the application representation.
func (f PlanFixture) Application() application.Plan {
	plan := application.Plan{
		ID:            f.ID,
		Title:         f.Title,
		Emoji:         f.Emoji,
		ScheduledAt:   f.ScheduledAt,
		Place:         f.Place,
		City:          f.City,
		CreatorID:     f.CreatorID,
		Visibility:    f.Visibility,
		AttendeeCount: f.AttendeeCount,
		CreatedAt:     f.CreatedAt,
	}
	if f.Coordinates != nil {
		p := *f.Coordinates
		plan.Coordinates = &p
	}
	return plan
}

// Persistence converts the fixture into the stored representation.
func (f PlanFixture) Persistence() persistence.Plan {
	plan := persistence.Plan{
		ID:          f.ID,
		Title:       f.Title,
		Emoji:       f.Emoji,
		ScheduledAt: f.ScheduledAt,
		Place:       optionalString(f.Place),
		City:        optionalString(f.City),
		CreatorID:   optionalString(f.CreatorID),
		Visibility:  f.Visibility,
		CreatedAt:   f.CreatedAt,
	}
	if f.Coordinates != nil {
		lat, lng := f.Coordinates.Lat, f.Coordinates.Lng
		plan.Latitude, plan.Longitude = &lat, &lng
	}
	return plan
}

// Ranking converts the fixture into the pipeline input.
func (f PlanFixture) Ranking() ranking.Plan {
	plan := f.Application()
	return ranking.Plan{
		ID:            plan.ID,
		Title:         plan.Title,
		Emoji:         plan.Emoji,
		ScheduledAt:   plan.ScheduledAt,
		Place:         plan.Place,
		Coordinates:   plan.Coordinates,
		City:          plan.City,
		AttendeeCount: plan.AttendeeCount,
	}
}

// Chat returns the chat opened for the plan with the given lifetime after
// the scheduled instant.
func (f PlanFixture) Chat(ttl time.Duration) persistence.Chat {
	return persistence.Chat{PlanID: f.ID, ExpiresAt: f.ScheduledAt.Add(ttl), CreatedAt: f.CreatedAt}
}

// ---------------------------- Session fixtures ----------------------------

// SessionFixture represents a deterministic authentication session.
type SessionFixture struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a session for userID valid for a day after ReferenceTime.
func NewSessionFixture(userID string, opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	fixture := SessionFixture{
		ID:        fmt.Sprintf("session-%03d", idx),
		UserID:    userID,
		Token:     fmt.Sprintf("token-%03d", idx),
		ExpiresAt: referenceTime.Add(24 * time.Hour),
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithSessionToken(token string) SessionOption {
	return func(f *SessionFixture) { f.Token = token }
}

func WithSessionExpiresAt(t time.Time) SessionOption {
	return func(f *SessionFixture) { f.ExpiresAt = t }
}

func WithSessionRevokedAt(t time.Time) SessionOption {
	return func(f *SessionFixture) { f.RevokedAt = &t }
}

// Application converts the fixture into the application representation.
func (f SessionFixture) Application() application.Session {
	return application.Session{
		ID:        f.ID,
		UserID:    f.UserID,
		Token:     f.Token,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		RevokedAt: copyTime(f.RevokedAt),
	}
}

// Persistence converts the fixture into the stored representation.
func (f SessionFixture) Persistence() persistence.Session {
	return persistence.Session{
		ID:        f.ID,
		UserID:    f.UserID,
		Token:     f.Token,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		RevokedAt: copyTime(f.RevokedAt),
	}
}

// ---------------------------- Message fixtures ----------------------------

// NewMessageFixture returns a chat message posted to planID at ReferenceTime.
func NewMessageFixture(planID, body string) persistence.ChatMessage {
	idx := atomic.AddUint64(&messageCounter, 1)
	return persistence.ChatMessage{
		ID:        fmt.Sprintf("message-%03d", idx),
		PlanID:    planID,
		Handle:    application.AnonymousHandle,
		Body:      body,
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Second),
	}
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
