// Package sqlite implements the persistence repositories on SQLite through
// modernc.org/sqlite. The schema is embedded and applied by Migrate.
package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/hangr/internal/persistence/sqlite/migration"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Storage bundles every repository over a single connection pool.
type Storage struct {
	*PlanRepository
	*AttendeeRepository
	*ChatRepository
	*UserRepository
	*SessionRepository
	*FilterStateRepository

	pool *ConnectionPool
}

// Open connects to the database described by cfg. Call Migrate before use.
func Open(cfg migration.SQLiteConfig) (*Storage, error) {
	db, err := migration.Open(cfg)
	if err != nil {
		return nil, err
	}
	pool := NewConnectionPool(db)
	return &Storage{
		PlanRepository:        NewPlanRepository(pool),
		AttendeeRepository:    NewAttendeeRepository(pool),
		ChatRepository:        NewChatRepository(pool),
		UserRepository:        NewUserRepository(pool),
		SessionRepository:     NewSessionRepository(pool),
		FilterStateRepository: NewFilterStateRepository(pool),
		pool:                  pool,
	}, nil
}

// Migrate applies pending schema migrations.
func (s *Storage) Migrate(ctx context.Context, logger *slog.Logger) error {
	if _, err := migration.NewManager(s.pool.DB(), schemaFS, "schema", logger).Run(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}
