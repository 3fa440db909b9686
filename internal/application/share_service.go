package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/example/hangr/internal/calendar"
	"github.com/example/hangr/internal/sharecard"
)

// ChatReader reads the chat attached to a plan.
type ChatReader interface {
	GetChat(ctx context.Context, planID string) (Chat, error)
}

// ShareService renders the artefacts used to share a plan outside the app.
type ShareService struct {
	plans    PlanRepository
	chats    ChatReader
	location *time.Location
	now      func() time.Time
	cache    *renderCache
	logger   *slog.Logger
}

// NewShareService constructs a ShareService. chats may be nil, in which case
// calendar events use the default duration.
func NewShareService(plans PlanRepository, chats ChatReader, location *time.Location, now func() time.Time, logger *slog.Logger) *ShareService {
	if location == nil {
		location = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &ShareService{
		plans:    plans,
		chats:    chats,
		location: location,
		now:      now,
		cache:    newRenderCache(10*time.Minute, 64, now),
		logger:   defaultLogger(logger),
	}
}

func (s *ShareService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ShareService", operation, attrs...)
}

func (s *ShareService) plan(ctx context.Context, planID string) (Plan, error) {
	if s == nil || s.plans == nil {
		return Plan{}, fmt.Errorf("ShareService is nil")
	}
	if strings.TrimSpace(planID) == "" {
		return Plan{}, ErrNotFound
	}
	plan, err := s.plans.GetPlan(ctx, planID)
	return plan, mapRepoError(err)
}

// StoryImage renders the story PNG of a plan with a QR code of planURL.
// A positive width returns a scaled preview.
func (s *ShareService) StoryImage(ctx context.Context, planID, planURL string, width int) (data []byte, err error) {
	logger := s.loggerWith(ctx, "StoryImage", "plan_id", planID, "width", width)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to render story image", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	plan, err := s.plan(ctx, planID)
	if err != nil {
		return nil, err
	}

	key := strings.Join([]string{"png", plan.ID, strconv.Itoa(width), planURL}, "|")
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	data, err = sharecard.PNG(sharecard.Card{
		Title: plan.Title,
		When:  sharecard.FormatWhen(plan.ScheduledAt, s.location),
		Place: plan.Place,
		URL:   planURL,
	}, width)
	if err != nil {
		return nil, err
	}
	s.cache.Store(key, data)
	logger.DebugContext(ctx, "story image rendered", "bytes", len(data))
	return data, nil
}

// Calendar exports the plan as an .ics document linking back to planURL.
func (s *ShareService) Calendar(ctx context.Context, planID, planURL string) ([]byte, error) {
	plan, err := s.plan(ctx, planID)
	if err != nil {
		return nil, err
	}

	event := calendar.Event{
		UID:         plan.ID,
		Emoji:       plan.Emoji,
		Title:       plan.Title,
		Start:       plan.ScheduledAt,
		Place:       plan.Place,
		Coordinates: plan.Coordinates,
		URL:         planURL,
		Stamp:       s.now(),
	}
	if s.chats != nil {
		chat, chatErr := s.chats.GetChat(ctx, plan.ID)
		switch {
		case chatErr == nil:
			event.Until = chat.ExpiresAt
		case !errors.Is(mapRepoError(chatErr), ErrNotFound):
			s.loggerWith(ctx, "Calendar", "plan_id", plan.ID).WarnContext(ctx, "chat lookup failed", "error", chatErr)
		}
	}

	data, err := calendar.Export(event)
	if err != nil {
		s.loggerWith(ctx, "Calendar", "plan_id", plan.ID).ErrorContext(ctx, "failed to export calendar", "error", err)
		return nil, err
	}
	return data, nil
}
