package application

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/example/hangr/internal/sharecard"
)

func TestShareService_StoryImage(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	plans := newPlanRepositoryStub(Plan{ID: "p1", Title: "Cañas", Emoji: "🍻", ScheduledAt: now.Add(time.Hour), Place: "Sol"})
	svc := NewShareService(plans, nil, time.UTC, func() time.Time { return now }, nil)
	ctx := context.Background()

	data, err := svc.StoryImage(ctx, "p1", "https://hangr.example/plans/p1", sharecard.PreviewWidth)
	if err != nil {
		t.Fatalf("StoryImage failed: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != sharecard.PreviewWidth {
		t.Fatalf("expected preview width, got %d", cfg.Width)
	}

	again, err := svc.StoryImage(ctx, "p1", "https://hangr.example/plans/p1", sharecard.PreviewWidth)
	if err != nil || !bytes.Equal(again, data) {
		t.Fatalf("expected cached render, err=%v", err)
	}
	if svc.cache.Len() != 1 {
		t.Fatalf("expected one cached render, got %d", svc.cache.Len())
	}

	if _, err := svc.StoryImage(ctx, "missing", "https://hangr.example/plans/missing", 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestShareService_Calendar(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	start := now.Add(time.Hour)
	plans := newPlanRepositoryStub(Plan{ID: "p1", Title: "Cañas", Emoji: "🍻", ScheduledAt: start, Place: "Sol"})
	chats := newChatStoreStub(Chat{PlanID: "p1", ExpiresAt: start.Add(30 * time.Minute)})
	svc := NewShareService(plans, chats, time.UTC, func() time.Time { return now }, nil)

	data, err := svc.Calendar(context.Background(), "p1", "https://hangr.example/plans/p1")
	if err != nil {
		t.Fatalf("Calendar failed: %v", err)
	}
	text := string(data)
	for _, want := range []string{"UID:p1", "LOCATION:Sol", "DTSTART:20260501T130000Z", "DTEND:20260501T133000Z"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in:\n%s", want, text)
		}
	}

	if _, err := svc.Calendar(context.Background(), "", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
