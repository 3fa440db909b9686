package application

import (
	"context"
	"sort"
	"sync"
	"time"
)

type planRepositoryStub struct {
	mu        sync.Mutex
	plans     map[string]Plan
	createErr error
	listErr   error
	queries   []PlanQuery
}

func newPlanRepositoryStub(plans ...Plan) *planRepositoryStub {
	stub := &planRepositoryStub{plans: make(map[string]Plan)}
	for _, p := range plans {
		stub.plans[p.ID] = p
	}
	return stub
}

func (s *planRepositoryStub) CreatePlan(ctx context.Context, plan Plan) (Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return Plan{}, s.createErr
	}
	s.plans[plan.ID] = plan
	return plan, nil
}

func (s *planRepositoryStub) GetPlan(ctx context.Context, id string) (Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	plan, ok := s.plans[id]
	if !ok {
		return Plan{}, ErrNotFound
	}
	return plan, nil
}

func (s *planRepositoryStub) ListPlans(ctx context.Context, query PlanQuery) ([]Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]Plan, 0, len(s.plans))
	for _, p := range s.plans {
		if query.PublicOnly && p.Visibility != VisibilityPublic {
			continue
		}
		if query.ScheduledFrom != nil && p.ScheduledAt.Before(*query.ScheduledFrom) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

type attendeeRepositoryStub struct {
	attendees []Attendee
}

func (s *attendeeRepositoryStub) AddAttendee(ctx context.Context, attendee Attendee) (Attendee, error) {
	if attendee.UserID != "" {
		for _, a := range s.attendees {
			if a.PlanID == attendee.PlanID && a.UserID == attendee.UserID {
				return Attendee{}, ErrAlreadyExists
			}
		}
	}
	s.attendees = append(s.attendees, attendee)
	return attendee, nil
}

func (s *attendeeRepositoryStub) ListAttendees(ctx context.Context, planID string) ([]Attendee, error) {
	var out []Attendee
	for i := len(s.attendees) - 1; i >= 0; i-- {
		if s.attendees[i].PlanID == planID {
			out = append(out, s.attendees[i])
		}
	}
	return out, nil
}

type chatStoreStub struct {
	mu        sync.Mutex
	chats     map[string]Chat
	messages  []ChatMessage
	createErr error
}

func newChatStoreStub(chats ...Chat) *chatStoreStub {
	stub := &chatStoreStub{chats: make(map[string]Chat)}
	for _, c := range chats {
		stub.chats[c.PlanID] = c
	}
	return stub
}

func (s *chatStoreStub) CreateChat(ctx context.Context, chat Chat) (Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return Chat{}, s.createErr
	}
	s.chats[chat.PlanID] = chat
	return chat, nil
}

func (s *chatStoreStub) GetChat(ctx context.Context, planID string) (Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[planID]
	if !ok {
		return Chat{}, ErrNotFound
	}
	return chat, nil
}

func (s *chatStoreStub) AddMessage(ctx context.Context, message ChatMessage) (ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
	return message, nil
}

func (s *chatStoreStub) ListMessages(ctx context.Context, planID string) ([]ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ChatMessage
	for _, m := range s.messages {
		if m.PlanID == planID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *chatStoreStub) DeleteExpiredChats(ctx context.Context, reference time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, chat := range s.chats {
		if !chat.ExpiresAt.After(reference) {
			delete(s.chats, id)
			removed++
		}
	}
	return removed, nil
}

type filterStoreStub struct {
	mu      sync.Mutex
	states  map[string]FilterState
	saveErr error
}

func newFilterStoreStub() *filterStoreStub {
	return &filterStoreStub{states: make(map[string]FilterState)}
}

func (s *filterStoreStub) SaveFilterState(ctx context.Context, clientKey string, state FilterState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.states[clientKey] = state
	return nil
}

func (s *filterStoreStub) LoadFilterState(ctx context.Context, clientKey string) (FilterState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[clientKey]
	if !ok {
		return FilterState{}, ErrNotFound
	}
	return state, nil
}

func sequence(ids ...string) func() string {
	var mu sync.Mutex
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		if len(ids) == 0 {
			return "id-extra"
		}
		id := ids[0]
		ids = ids[1:]
		return id
	}
}
