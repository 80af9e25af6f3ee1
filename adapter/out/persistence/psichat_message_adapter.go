package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"psichat_server/core/domain"
	"psichat_server/core/port/out"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// MessageAdapter implements out.MessageRepository using PostgreSQL.
type MessageAdapter struct {
	db *sqlx.DB
}

var _ out.MessageRepository = (*MessageAdapter)(nil)

func NewMessageAdapter(db *sqlx.DB) *MessageAdapter {
	return &MessageAdapter{db: db}
}

type messageRow struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Text      string    `db:"text"`
	Sender    string    `db:"sender"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *messageRow) toDomain() *domain.Message {
	return &domain.Message{
		ID:        r.ID,
		UserID:    r.UserID,
		Text:      r.Text,
		Sender:    domain.Sender(r.Sender),
		CreatedAt: r.CreatedAt,
	}
}

// Create inserts a message. A zero ID or timestamp is filled in.
func (a *MessageAdapter) Create(ctx context.Context, msg *domain.Message) error {
	if msg.Sender != domain.SenderUser && msg.Sender != domain.SenderBot {
		return fmt.Errorf("%w: sender %q", ErrInvalidInput, msg.Sender)
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	_, err := a.db.ExecContext(ctx, `
		INSERT INTO messages (id, user_id, text, sender, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, msg.ID, msg.UserID, msg.Text, string(msg.Sender), msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListRecent returns the user's newest messages first.
func (a *MessageAdapter) ListRecent(ctx context.Context, userID uuid.UUID, sender domain.Sender, limit int) ([]*domain.Message, error) {
	if limit <= 0 {
		return []*domain.Message{}, nil
	}

	var rows []messageRow
	var err error
	if sender == "" {
		err = a.db.SelectContext(ctx, &rows, `
			SELECT id, user_id, text, sender, created_at FROM messages
			WHERE user_id = $1
			ORDER BY created_at DESC LIMIT $2
		`, userID, limit)
	} else {
		err = a.db.SelectContext(ctx, &rows, `
			SELECT id, user_id, text, sender, created_at FROM messages
			WHERE user_id = $1 AND sender = $2
			ORDER BY created_at DESC LIMIT $3
		`, userID, string(sender), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	msgs := make([]*domain.Message, len(rows))
	for i := range rows {
		msgs[i] = rows[i].toDomain()
	}
	return msgs, nil
}

// FindLatestByText returns the newest user message with exactly this text, or nil.
func (a *MessageAdapter) FindLatestByText(ctx context.Context, userID uuid.UUID, text string) (*domain.Message, error) {
	var row messageRow
	err := a.db.GetContext(ctx, &row, `
		SELECT id, user_id, text, sender, created_at FROM messages
		WHERE user_id = $1 AND sender = 'user' AND text = $2
		ORDER BY created_at DESC LIMIT 1
	`, userID, text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find message: %w", err)
	}
	return row.toDomain(), nil
}
