package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/hangr/internal/persistence"
	"github.com/example/hangr/internal/persistence/sqlite"
	"github.com/example/hangr/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style tests.
type SQLiteHarness struct {
	Storage   *sqlite.Storage
	Plans     persistence.PlanRepository
	Attendees persistence.AttendeeRepository
	Chats     persistence.ChatRepository
	Users     persistence.UserRepository
	Sessions  persistence.SessionRepository
	Filters   persistence.FilterStateRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens a migrated database in a temporary directory. The
// harness is closed automatically when the test finishes.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "hangr.db")
	storage, err := sqlite.Open(migration.DefaultSQLiteConfig(path))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:   storage,
		Plans:     storage,
		Attendees: storage,
		Chats:     storage,
		Users:     storage,
		Sessions:  storage,
		Filters:   storage,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedPlans stores the given plan fixtures.
func (h *SQLiteHarness) SeedPlans(tb testing.TB, plans ...PlanFixture) {
	tb.Helper()
	ctx := context.Background()
	for _, plan := range plans {
		if err := h.Plans.CreatePlan(ctx, plan.Persistence()); err != nil {
			tb.Fatalf("seed plan %s: %v", plan.ID, err)
		}
	}
}

// SeedUsers stores the given user fixtures.
func (h *SQLiteHarness) SeedUsers(tb testing.TB, users ...UserFixture) {
	tb.Helper()
	ctx := context.Background()
	for _, user := range users {
		if err := h.Users.CreateUser(ctx, user.Persistence()); err != nil {
			tb.Fatalf("seed user %s: %v", user.ID, err)
		}
	}
}
