package persistence

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"psichat_server/core/domain"
	"psichat_server/core/port/out"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// TutorAlertAdapter implements out.TutorAlertRepository using PostgreSQL.
type TutorAlertAdapter struct {
	db *sqlx.DB
}

var _ out.TutorAlertRepository = (*TutorAlertAdapter)(nil)

func NewTutorAlertAdapter(db *sqlx.DB) *TutorAlertAdapter {
	return &TutorAlertAdapter{db: db}
}

type tutorAlertRow struct {
	ID           uuid.UUID `db:"id"`
	UserID       uuid.UUID `db:"user_id"`
	MessageID    uuid.UUID `db:"message_id"`
	Emotion      string    `db:"emotion"`
	EmotionScore float64   `db:"emotion_score"`
	Style        string    `db:"style"`
	Priority     string    `db:"priority"`
	Reason       string    `db:"reason"`
	ContextAlert bool      `db:"context_alert"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r *tutorAlertRow) toDomain() *domain.AlertEvent {
	return &domain.AlertEvent{
		ID:           r.ID,
		UserID:       r.UserID,
		MessageID:    r.MessageID,
		Emotion:      domain.Emotion(r.Emotion),
		EmotionScore: r.EmotionScore,
		Style:        domain.Style(r.Style),
		Priority:     domain.Priority(r.Priority),
		Reason:       r.Reason,
		ContextAlert: r.ContextAlert,
		CreatedAt:    r.CreatedAt,
	}
}

// Save stores an alert. Saving the same alert twice is a no-op, so
// redelivered stream entries do not duplicate tutor notifications.
func (a *TutorAlertAdapter) Save(ctx context.Context, e *domain.AlertEvent) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO tutor_alerts (id, user_id, message_id, emotion, emotion_score, style, priority, reason, context_alert, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, e.ID, e.UserID, e.MessageID, string(e.Emotion), e.EmotionScore, string(e.Style),
		string(e.Priority), e.Reason, e.ContextAlert, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert tutor alert: %w", err)
	}
	return nil
}

// List returns alerts matching filter, newest first.
func (a *TutorAlertAdapter) List(ctx context.Context, filter *out.TutorAlertFilter) ([]*domain.AlertEvent, error) {
	query, args := buildAlertQuery(filter)

	var rows []tutorAlertRow
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list tutor alerts: %w", err)
	}

	alerts := make([]*domain.AlertEvent, len(rows))
	for i := range rows {
		alerts[i] = rows[i].toDomain()
	}
	return alerts, nil
}

func buildAlertQuery(filter *out.TutorAlertFilter) (string, []any) {
	if filter == nil {
		filter = &out.TutorAlertFilter{}
	}

	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.UserID != nil {
		where = append(where, "user_id = "+arg(*filter.UserID))
	}
	if filter.MinPriority != "" {
		where = append(where, "priority = ANY("+arg(pq.Array(priorityNames(AtLeast(filter.MinPriority))))+")")
	}
	if filter.Since != nil {
		where = append(where, "created_at >= "+arg(*filter.Since))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var b strings.Builder
	b.WriteString(`SELECT id, user_id, message_id, emotion, emotion_score, style, priority, reason, context_alert, created_at FROM tutor_alerts`)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC LIMIT ")
	b.WriteString(arg(limit))
	return b.String(), args
}

// AtLeast returns the tiers ranked at or above p.
func AtLeast(p domain.Priority) []domain.Priority {
	rank := p.Rank()
	if rank < 0 {
		return nil
	}
	return domain.Priorities[rank:]
}

func priorityNames(ps []domain.Priority) []string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = string(p)
	}
	return names
}
