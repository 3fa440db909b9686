package main

import (
	"context"
	"time"

	"github.com/example/hangr/internal/application"
	"github.com/example/hangr/internal/geo"
	"github.com/example/hangr/internal/persistence"
)

type planRepositoryAdapter struct {
	repo persistence.PlanRepository
}

func newPlanRepositoryAdapter(repo persistence.PlanRepository) *planRepositoryAdapter {
	return &planRepositoryAdapter{repo: repo}
}

func (a *planRepositoryAdapter) CreatePlan(ctx context.Context, plan application.Plan) (application.Plan, error) {
	if err := a.repo.CreatePlan(ctx, toPersistencePlan(plan)); err != nil {
		return application.Plan{}, err
	}
	return a.GetPlan(ctx, plan.ID)
}

func (a *planRepositoryAdapter) GetPlan(ctx context.Context, id string) (application.Plan, error) {
	stored, err := a.repo.GetPlan(ctx, id)
	if err != nil {
		return application.Plan{}, err
	}
	return toApplicationPlan(stored), nil
}

func (a *planRepositoryAdapter) ListPlans(ctx context.Context, query application.PlanQuery) ([]application.Plan, error) {
	filter := persistence.PlanFilter{ScheduledFrom: cloneTime(query.ScheduledFrom)}
	if query.PublicOnly {
		filter.Visibility = persistence.VisibilityPublic
	}
	models, err := a.repo.ListPlans(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	plans := make([]application.Plan, 0, len(models))
	for _, model := range models {
		plans = append(plans, toApplicationPlan(model))
	}
	return plans, nil
}

type attendeeRepositoryAdapter struct {
	repo persistence.AttendeeRepository
}

func newAttendeeRepositoryAdapter(repo persistence.AttendeeRepository) *attendeeRepositoryAdapter {
	return &attendeeRepositoryAdapter{repo: repo}
}

func (a *attendeeRepositoryAdapter) AddAttendee(ctx context.Context, attendee application.Attendee) (application.Attendee, error) {
	if err := a.repo.AddAttendee(ctx, toPersistenceAttendee(attendee)); err != nil {
		return application.Attendee{}, err
	}
	return attendee, nil
}

func (a *attendeeRepositoryAdapter) ListAttendees(ctx context.Context, planID string) ([]application.Attendee, error) {
	models, err := a.repo.ListAttendees(ctx, planID)
	if err != nil {
		return nil, err
	}
	attendees := make([]application.Attendee, 0, len(models))
	for _, model := range models {
		attendees = append(attendees, toApplicationAttendee(model))
	}
	return attendees, nil
}

type chatRepositoryAdapter struct {
	repo persistence.ChatRepository
}

func newChatRepositoryAdapter(repo persistence.ChatRepository) *chatRepositoryAdapter {
	return &chatRepositoryAdapter{repo: repo}
}

func (a *chatRepositoryAdapter) CreateChat(ctx context.Context, chat application.Chat) (application.Chat, error) {
	if err := a.repo.CreateChat(ctx, persistence.Chat(chat)); err != nil {
		return application.Chat{}, err
	}
	return chat, nil
}

func (a *chatRepositoryAdapter) GetChat(ctx context.Context, planID string) (application.Chat, error) {
	stored, err := a.repo.GetChat(ctx, planID)
	if err != nil {
		return application.Chat{}, err
	}
	return application.Chat(stored), nil
}

func (a *chatRepositoryAdapter) AddMessage(ctx context.Context, message application.ChatMessage) (application.ChatMessage, error) {
	if err := a.repo.AddMessage(ctx, persistence.ChatMessage(message)); err != nil {
		return application.ChatMessage{}, err
	}
	return message, nil
}

func (a *chatRepositoryAdapter) ListMessages(ctx context.Context, planID string) ([]application.ChatMessage, error) {
	models, err := a.repo.ListMessages(ctx, planID)
	if err != nil {
		return nil, err
	}
	messages := make([]application.ChatMessage, 0, len(models))
	for _, model := range models {
		messages = append(messages, application.ChatMessage(model))
	}
	return messages, nil
}

func (a *chatRepositoryAdapter) DeleteExpiredChats(ctx context.Context, reference time.Time) (int64, error) {
	return a.repo.DeleteExpiredChats(ctx, reference)
}

type userStoreAdapter struct {
	repo persistence.UserRepository
}

func newUserStoreAdapter(repo persistence.UserRepository) *userStoreAdapter {
	return &userStoreAdapter{repo: repo}
}

func (a *userStoreAdapter) CreateUser(ctx context.Context, user application.User, passwordHash string) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(user, passwordHash)); err != nil {
		return application.User{}, err
	}
	return a.GetUser(ctx, user.ID)
}

func (a *userStoreAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userStoreAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{
		User:         toApplicationUser(stored),
		PasswordHash: stored.PasswordHash,
	}, nil
}

func (a *userStoreAdapter) UpdateDisplayName(ctx context.Context, id, displayName string, updatedAt time.Time) (application.User, error) {
	current, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	current.DisplayName = displayName
	current.UpdatedAt = updatedAt
	if err := a.repo.UpdateUser(ctx, current); err != nil {
		return application.User{}, err
	}
	return a.GetUser(ctx, id)
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error) {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

type filterStateAdapter struct {
	repo persistence.FilterStateRepository
}

func newFilterStateAdapter(repo persistence.FilterStateRepository) *filterStateAdapter {
	return &filterStateAdapter{repo: repo}
}

func (a *filterStateAdapter) SaveFilterState(ctx context.Context, clientKey string, state application.FilterState) error {
	model := persistence.FilterState{
		ClientKey: clientKey,
		Emoji:     optionalString(state.Emoji),
		Date:      optionalString(state.Date),
		UpdatedAt: state.UpdatedAt,
	}
	if state.Location != nil {
		lat, lng := state.Location.Lat, state.Location.Lng
		model.Latitude, model.Longitude = &lat, &lng
	}
	return a.repo.SaveFilterState(ctx, model)
}

func (a *filterStateAdapter) LoadFilterState(ctx context.Context, clientKey string) (application.FilterState, error) {
	model, err := a.repo.GetFilterState(ctx, clientKey)
	if err != nil {
		return application.FilterState{}, err
	}
	return application.FilterState{
		Emoji:     derefString(model.Emoji),
		Date:      derefString(model.Date),
		Location:  toPoint(model.Latitude, model.Longitude),
		UpdatedAt: model.UpdatedAt,
	}, nil
}

func toApplicationPlan(model persistence.Plan) application.Plan {
	return application.Plan{
		ID:            model.ID,
		Title:         model.Title,
		Emoji:         model.Emoji,
		ScheduledAt:   model.ScheduledAt,
		Place:         derefString(model.Place),
		Coordinates:   toPoint(model.Latitude, model.Longitude),
		City:          derefString(model.City),
		CreatorID:     derefString(model.CreatorID),
		Visibility:    model.Visibility,
		AttendeeCount: model.AttendeeCount,
		CreatedAt:     model.CreatedAt,
	}
}

func toPersistencePlan(plan application.Plan) persistence.Plan {
	model := persistence.Plan{
		ID:          plan.ID,
		Title:       plan.Title,
		Emoji:       plan.Emoji,
		ScheduledAt: plan.ScheduledAt,
		Place:       optionalString(plan.Place),
		City:        optionalString(plan.City),
		CreatorID:   optionalString(plan.CreatorID),
		Visibility:  plan.Visibility,
		CreatedAt:   plan.CreatedAt,
	}
	if plan.Coordinates != nil {
		lat, lng := plan.Coordinates.Lat, plan.Coordinates.Lng
		model.Latitude, model.Longitude = &lat, &lng
	}
	return model
}

func toApplicationAttendee(model persistence.Attendee) application.Attendee {
	return application.Attendee{
		ID:       model.ID,
		PlanID:   model.PlanID,
		UserID:   derefString(model.UserID),
		Handle:   model.Handle,
		JoinedAt: model.JoinedAt,
	}
}

func toPersistenceAttendee(attendee application.Attendee) persistence.Attendee {
	return persistence.Attendee{
		ID:       attendee.ID,
		PlanID:   attendee.PlanID,
		UserID:   optionalString(attendee.UserID),
		Handle:   attendee.Handle,
		JoinedAt: attendee.JoinedAt,
	}
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:          model.ID,
		Email:       model.Email,
		DisplayName: model.DisplayName,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		PasswordHash: passwordHash,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:        model.ID,
		UserID:    model.UserID,
		Token:     model.Token,
		ExpiresAt: model.ExpiresAt,
		CreatedAt: model.CreatedAt,
		RevokedAt: cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		RevokedAt: cloneTime(session.RevokedAt),
	}
}

func toPoint(lat, lng *float64) *geo.Point {
	if lat == nil || lng == nil {
		return nil
	}
	return &geo.Point{Lat: *lat, Lng: *lng}
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
