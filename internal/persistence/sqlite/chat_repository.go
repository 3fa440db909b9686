package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/hangr/internal/persistence"
)

// ChatRepository implements persistence.ChatRepository using SQLite.
type ChatRepository struct {
	pool *ConnectionPool
}

// NewChatRepository creates a new SQLite chat repository.
func NewChatRepository(pool *ConnectionPool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

// CreateChat opens the chat of a plan.
func (r *ChatRepository) CreateChat(ctx context.Context, chat persistence.Chat) error {
	if chat.PlanID == "" || chat.ExpiresAt.IsZero() {
		return persistence.ErrConstraintViolation
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO chats (plan_id, expires_at, created_at) VALUES (?, ?, ?)`,
		chat.PlanID, formatTime(chat.ExpiresAt), formatTime(chat.CreatedAt),
	)
	return mapError(err)
}

// GetChat returns the chat of a plan.
func (r *ChatRepository) GetChat(ctx context.Context, planID string) (persistence.Chat, error) {
	var (
		chat                 persistence.Chat
		expiresAt, createdAt string
	)
	err := r.pool.db.QueryRowContext(ctx,
		`SELECT plan_id, expires_at, created_at FROM chats WHERE plan_id = ?`, planID,
	).Scan(&chat.PlanID, &expiresAt, &createdAt)
	if err != nil {
		return persistence.Chat{}, mapError(err)
	}
	if chat.ExpiresAt, err = parseTime("expires_at", expiresAt); err != nil {
		return persistence.Chat{}, err
	}
	if chat.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Chat{}, err
	}
	return chat, nil
}

// AddMessage appends a message to an existing chat.
func (r *ChatRepository) AddMessage(ctx context.Context, message persistence.ChatMessage) error {
	if message.ID == "" || message.PlanID == "" || message.Body == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO chat_messages (id, plan_id, handle, body, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		message.ID, message.PlanID, message.Handle, message.Body, formatTime(message.CreatedAt),
	)
	mapped := mapError(err)
	if errors.Is(mapped, persistence.ErrForeignKeyViolation) {
		return persistence.ErrNotFound
	}
	return mapped
}

// ListMessages returns the messages of a chat, oldest first.
func (r *ChatRepository) ListMessages(ctx context.Context, planID string) ([]persistence.ChatMessage, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, plan_id, handle, body, created_at
		FROM chat_messages
		WHERE plan_id = ?
		ORDER BY created_at ASC, rowid ASC`, planID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var messages []persistence.ChatMessage
	for rows.Next() {
		var (
			m         persistence.ChatMessage
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.PlanID, &m.Handle, &m.Body, &createdAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		if m.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}
	return messages, nil
}

// DeleteExpiredChats removes chats that expired at or before reference along
// with their messages and reports how many chats were removed.
func (r *ChatRepository) DeleteExpiredChats(ctx context.Context, reference time.Time) (int64, error) {
	cutoff := formatTime(reference)
	var removed int64
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM chat_messages
			WHERE plan_id IN (SELECT plan_id FROM chats WHERE expires_at <= ?)`, cutoff); err != nil {
			return mapError(err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM chats WHERE expires_at <= ?`, cutoff)
		if err != nil {
			return mapError(err)
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
