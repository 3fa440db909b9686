package migration

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
)

// Manager discovers migrations in an fs.FS and applies the pending ones.
type Manager struct {
	fsys     fs.FS
	dir      string
	executor *Executor
	logger   *slog.Logger
}

// NewManager constructs a Manager reading migrations from dir within fsys.
func NewManager(db *sql.DB, fsys fs.FS, dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		fsys:     fsys,
		dir:      dir,
		executor: NewExecutor(db),
		logger:   logger.With(slog.String("component", "migration")),
	}
}

// Run applies all pending migrations in version order and returns how many
// were applied. It stops at the first failure.
func (m *Manager) Run(ctx context.Context) (int, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return 0, err
	}

	if len(status.Pending) == 0 {
		m.logger.DebugContext(ctx, "schema up to date", slog.String("version", status.CurrentVersion))
		return 0, nil
	}

	m.logger.InfoContext(ctx, "applying migrations",
		slog.String("from_version", status.CurrentVersion),
		slog.Int("pending", len(status.Pending)),
	)

	for i, mig := range status.Pending {
		if err := m.executor.Apply(ctx, mig); err != nil {
			m.logger.ErrorContext(ctx, "migration failed",
				slog.String("version", mig.Version),
				slog.String("file", mig.FilePath),
				slog.Any("error", err),
			)
			return i, err
		}
		m.logger.InfoContext(ctx, "migration applied",
			slog.String("version", mig.Version),
			slog.String("description", mig.Description),
		)
	}
	return len(status.Pending), nil
}

// Status compares the available migration files with the applied versions.
// An applied file whose content changed afterwards is reported as an error.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, err
	}

	available, err := Scan(m.fsys, m.dir)
	if err != nil {
		return Status{}, err
	}

	applied, err := m.executor.Applied(ctx)
	if err != nil {
		return Status{}, err
	}

	appliedByVersion := make(map[string]AppliedMigration, len(applied))
	status := Status{Applied: applied}
	for _, rec := range applied {
		appliedByVersion[rec.Version] = rec
		status.CurrentVersion = rec.Version
	}

	for _, mig := range available {
		rec, ok := appliedByVersion[mig.Version]
		if !ok {
			status.Pending = append(status.Pending, mig)
			continue
		}
		if rec.Checksum != "" && rec.Checksum != mig.Checksum {
			return Status{}, newMigrationError(mig, "verify", fmt.Errorf("%w: recorded %s", ErrChecksumMismatch, rec.Checksum))
		}
	}
	return status, nil
}
