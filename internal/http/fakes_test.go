package http

import (
	"context"
	"sync"

	"github.com/example/hangr/internal/application"
)

type fakeSessionValidator struct {
	principals map[string]application.Principal
	err        error
}

func (f fakeSessionValidator) ValidateSession(_ context.Context, token string) (application.Principal, error) {
	if f.err != nil {
		return application.Principal{}, f.err
	}
	principal, ok := f.principals[token]
	if !ok {
		return application.Principal{}, application.ErrUnauthorized
	}
	return principal, nil
}

type fakePlanService struct {
	mu sync.Mutex

	discoverResult application.DiscoverResult
	discoverErr    error
	discoverCalls  []application.DiscoverParams

	createResult application.CreatePlanResult
	createErr    error
	createCalls  []application.CreatePlanParams

	plans map[string]application.Plan

	joinErr   error
	joinCalls []application.JoinPlanParams
	attendees []application.Attendee
}

func (f *fakePlanService) CreatePlan(_ context.Context, params application.CreatePlanParams) (application.CreatePlanResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls = append(f.createCalls, params)
	return f.createResult, f.createErr
}

func (f *fakePlanService) GetPlan(_ context.Context, id string) (application.Plan, error) {
	plan, ok := f.plans[id]
	if !ok {
		return application.Plan{}, application.ErrNotFound
	}
	return plan, nil
}

func (f *fakePlanService) DiscoverPlans(_ context.Context, params application.DiscoverParams) (application.DiscoverResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discoverCalls = append(f.discoverCalls, params)
	return f.discoverResult, f.discoverErr
}

func (f *fakePlanService) JoinPlan(_ context.Context, params application.JoinPlanParams) (application.Attendee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joinCalls = append(f.joinCalls, params)
	if f.joinErr != nil {
		return application.Attendee{}, f.joinErr
	}
	return application.Attendee{ID: "attendee-1", PlanID: params.PlanID, Handle: params.Handle}, nil
}

func (f *fakePlanService) ListAttendees(_ context.Context, planID string) ([]application.Attendee, error) {
	if _, ok := f.plans[planID]; !ok {
		return nil, application.ErrNotFound
	}
	return f.attendees, nil
}

func (f *fakePlanService) Catalog() application.EmojiCatalog {
	return application.NewEmojiCatalog([]string{"🎉", "☕"})
}

type fakeShareService struct {
	image    []byte
	calendar []byte
	err      error
	urls     []string
	widths   []int
}

func (f *fakeShareService) StoryImage(_ context.Context, _ string, planURL string, width int) ([]byte, error) {
	f.urls = append(f.urls, planURL)
	f.widths = append(f.widths, width)
	return f.image, f.err
}

func (f *fakeShareService) Calendar(_ context.Context, _ string, planURL string) ([]byte, error) {
	f.urls = append(f.urls, planURL)
	return f.calendar, f.err
}

type fakeChatService struct {
	mu        sync.Mutex
	messages  []application.ChatMessage
	err       error
	stream    chan application.ChatMessage
	cancelled chan struct{}
	once      sync.Once
}

func newFakeChatService() *fakeChatService {
	return &fakeChatService{
		stream:    make(chan application.ChatMessage, 4),
		cancelled: make(chan struct{}),
	}
}

func (f *fakeChatService) PostMessage(_ context.Context, params application.PostMessageParams) (application.ChatMessage, error) {
	if f.err != nil {
		return application.ChatMessage{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	message := application.ChatMessage{ID: "message-1", PlanID: params.PlanID, Handle: params.Handle, Body: params.Body}
	f.messages = append(f.messages, message)
	return message, nil
}

func (f *fakeChatService) ListMessages(_ context.Context, _ string) ([]application.ChatMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]application.ChatMessage(nil), f.messages...), nil
}

func (f *fakeChatService) Subscribe(_ context.Context, _ string) (<-chan application.ChatMessage, func(), error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.stream, func() { f.once.Do(func() { close(f.cancelled) }) }, nil
}

type fakeAuthService struct {
	user    application.User
	session application.Session
	err     error
	revoked []string
}

func (f *fakeAuthService) Register(_ context.Context, params application.RegisterParams) (application.User, error) {
	if f.err != nil {
		return application.User{}, f.err
	}
	user := f.user
	user.Email = params.Email
	return user, nil
}

func (f *fakeAuthService) Authenticate(_ context.Context, _ application.AuthenticateParams) (application.AuthenticateResult, error) {
	if f.err != nil {
		return application.AuthenticateResult{}, f.err
	}
	return application.AuthenticateResult{User: f.user, Session: f.session}, nil
}

func (f *fakeAuthService) RevokeSession(_ context.Context, token string) error {
	f.revoked = append(f.revoked, token)
	return f.err
}

func (f *fakeAuthService) Profile(_ context.Context, principal application.Principal) (application.User, error) {
	if principal.UserID != f.user.ID {
		return application.User{}, application.ErrNotFound
	}
	return f.user, nil
}

func (f *fakeAuthService) UpdateDisplayName(_ context.Context, _ application.Principal, name string) (application.User, error) {
	if name == "" {
		return application.User{}, &application.ValidationError{FieldErrors: map[string]string{"display_name": "required"}}
	}
	user := f.user
	user.DisplayName = name
	return user, nil
}

type fakeFilterService struct {
	mu     sync.Mutex
	states map[string]application.FilterState
}

func (f *fakeFilterService) Save(_ context.Context, clientKey string, state application.FilterState) (application.FilterState, error) {
	if state.Emoji == "🦄" {
		return application.FilterState{}, &application.ValidationError{FieldErrors: map[string]string{"emoji": "unknown"}}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.states == nil {
		f.states = make(map[string]application.FilterState)
	}
	f.states[clientKey] = state
	return state, nil
}

func (f *fakeFilterService) Load(_ context.Context, clientKey string) (application.FilterState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if state, ok := f.states[clientKey]; ok {
		return state, nil
	}
	return application.FilterState{Date: "2026-05-01"}, nil
}

func (f *fakeFilterService) Restore(_ context.Context, clientKey string) (application.FilterState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[clientKey], nil
}
