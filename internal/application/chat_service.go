package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ChatRepository captures the chat persistence operations needed by the service.
type ChatRepository interface {
	GetChat(ctx context.Context, planID string) (Chat, error)
	AddMessage(ctx context.Context, message ChatMessage) (ChatMessage, error)
	ListMessages(ctx context.Context, planID string) ([]ChatMessage, error)
	DeleteExpiredChats(ctx context.Context, reference time.Time) (int64, error)
}

// subscriberBuffer bounds the messages queued for a slow subscriber. Messages
// beyond the buffer are dropped for that subscriber only.
const subscriberBuffer = 16

// ChatService posts and lists plan chat messages and fans new messages out to
// live subscribers.
type ChatService struct {
	chats       ChatRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger

	mu          sync.Mutex
	subscribers map[string]map[chan ChatMessage]struct{}
}

// NewChatService constructs a chat service with the provided dependencies.
func NewChatService(chats ChatRepository, idGenerator func() string, now func() time.Time) *ChatService {
	return NewChatServiceWithLogger(chats, idGenerator, now, nil)
}

// NewChatServiceWithLogger constructs a chat service with a specified logger.
func NewChatServiceWithLogger(chats ChatRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ChatService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ChatService{
		chats:       chats,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
		subscribers: make(map[string]map[chan ChatMessage]struct{}),
	}
}

func (s *ChatService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ChatService", operation, attrs...)
}

func (s *ChatService) openChat(ctx context.Context, planID string) (Chat, error) {
	chat, err := s.chats.GetChat(ctx, planID)
	if err != nil {
		return Chat{}, mapRepoError(err)
	}
	if !s.now().Before(chat.ExpiresAt) {
		return Chat{}, ErrChatExpired
	}
	return chat, nil
}

// PostMessage stores a message in an open chat and publishes it.
func (s *ChatService) PostMessage(ctx context.Context, params PostMessageParams) (message ChatMessage, err error) {
	if s == nil || s.chats == nil {
		err = fmt.Errorf("chat repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "PostMessage", "plan_id", params.PlanID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to post message", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("message_id", message.ID).InfoContext(ctx, "message posted")
	}()

	body := cleanText(params.Body)
	vErr := &ValidationError{}
	switch {
	case body == "":
		vErr.add("body", "required")
	case tooLong(body, MaxMessageLength):
		vErr.add("body", "too_long")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if _, err = s.openChat(ctx, params.PlanID); err != nil {
		return
	}

	message = ChatMessage{
		ID:        s.idGenerator(),
		PlanID:    params.PlanID,
		Handle:    handleFor(params.Handle, params.Principal),
		Body:      body,
		CreatedAt: s.now(),
	}
	message, err = s.chats.AddMessage(ctx, message)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	s.publish(message)
	return
}

// ListMessages returns the messages of an open chat, oldest first.
func (s *ChatService) ListMessages(ctx context.Context, planID string) ([]ChatMessage, error) {
	if s == nil || s.chats == nil {
		return nil, fmt.Errorf("chat repository not configured")
	}
	if _, err := s.openChat(ctx, planID); err != nil {
		return nil, err
	}
	messages, err := s.chats.ListMessages(ctx, planID)
	if err != nil {
		s.loggerWith(ctx, "ListMessages", "plan_id", planID).ErrorContext(ctx, "failed to list messages", "error", err)
		return nil, mapRepoError(err)
	}
	return messages, nil
}

// Subscribe registers for new messages of an open chat. The returned cancel
// function must be called to release the subscription; it is safe to call
// more than once.
func (s *ChatService) Subscribe(ctx context.Context, planID string) (<-chan ChatMessage, func(), error) {
	if s == nil || s.chats == nil {
		return nil, nil, fmt.Errorf("chat repository not configured")
	}
	if _, err := s.openChat(ctx, planID); err != nil {
		return nil, nil, err
	}

	ch := make(chan ChatMessage, subscriberBuffer)
	s.mu.Lock()
	if s.subscribers[planID] == nil {
		s.subscribers[planID] = make(map[chan ChatMessage]struct{})
	}
	s.subscribers[planID][ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if subs, ok := s.subscribers[planID]; ok {
				if _, ok := subs[ch]; ok {
					delete(subs, ch)
					close(ch)
				}
				if len(subs) == 0 {
					delete(s.subscribers, planID)
				}
			}
		})
	}
	return ch, cancel, nil
}

// SubscriberCount reports the number of live subscriptions for a plan.
func (s *ChatService) SubscriberCount(planID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers[planID])
}

func (s *ChatService) publish(message ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers[message.PlanID] {
		select {
		case ch <- message:
		default:
			s.logger.Warn("dropping chat message for slow subscriber", "plan_id", message.PlanID, "message_id", message.ID)
		}
	}
}

// PurgeExpired deletes expired chats with their messages.
func (s *ChatService) PurgeExpired(ctx context.Context) (int64, error) {
	if s == nil || s.chats == nil {
		return 0, fmt.Errorf("chat repository not configured")
	}
	logger := s.loggerWith(ctx, "PurgeExpired")

	removed, err := s.chats.DeleteExpiredChats(ctx, s.now())
	if err != nil {
		logger.ErrorContext(ctx, "failed to purge expired chats", "error", err)
		return 0, err
	}
	if removed > 0 {
		logger.InfoContext(ctx, "expired chats purged", "count", removed)
	}
	return removed, nil
}
