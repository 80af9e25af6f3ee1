package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"psichat_server/core/domain"
	"psichat_server/core/port/out"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// AnalysisAdapter implements out.AnalysisRepository using PostgreSQL.
// Distributions are stored as JSONB arrays of [label, score] pairs in rank order.
// They travel as text because the simple protocol would send []byte as bytea.
type AnalysisAdapter struct {
	db *sqlx.DB
}

var _ out.AnalysisRepository = (*AnalysisAdapter)(nil)

func NewAnalysisAdapter(db *sqlx.DB) *AnalysisAdapter {
	return &AnalysisAdapter{db: db}
}

type analysisRow struct {
	ID                  int64          `db:"id"`
	MessageID           uuid.UUID      `db:"message_id"`
	MessageText         string         `db:"message_text"`
	Emotion             string         `db:"emotion"`
	EmotionScore        float64        `db:"emotion_score"`
	EmotionDistribution string         `db:"emotion_distribution"`
	Style               string         `db:"style"`
	StyleScore          float64        `db:"style_score"`
	StyleDistribution   string         `db:"style_distribution"`
	Priority            string         `db:"priority"`
	Alert               bool           `db:"alert"`
	AlertReason         sql.NullString `db:"alert_reason"`
	ContextAlert        sql.NullBool   `db:"context_alert"`
	ContextRiskLevel    sql.NullString `db:"context_risk_level"`
	CreatedAt           time.Time      `db:"created_at"`
}

func newAnalysisRow(record *domain.AnalysisRecord) (*analysisRow, error) {
	r := record.Result
	emotionDist, err := json.Marshal(r.EmotionDistribution)
	if err != nil {
		return nil, fmt.Errorf("failed to encode emotion distribution: %w", err)
	}
	styleDist, err := json.Marshal(r.StyleDistribution)
	if err != nil {
		return nil, fmt.Errorf("failed to encode style distribution: %w", err)
	}

	row := &analysisRow{
		ID:                  record.ID,
		MessageID:           record.MessageID,
		MessageText:         record.MessageText,
		Emotion:             string(r.Emotion),
		EmotionScore:        r.EmotionScore,
		EmotionDistribution: string(emotionDist),
		Style:               string(r.Style),
		StyleScore:          r.StyleScore,
		StyleDistribution:   string(styleDist),
		Priority:            string(r.Priority),
		Alert:               r.Alert,
		CreatedAt:           record.CreatedAt,
	}
	if r.AlertReason != "" {
		row.AlertReason = sql.NullString{String: r.AlertReason, Valid: true}
	}
	if r.ContextAlert != nil {
		row.ContextAlert = sql.NullBool{Bool: *r.ContextAlert, Valid: true}
	}
	if r.ContextRiskLevel != "" {
		row.ContextRiskLevel = sql.NullString{String: string(r.ContextRiskLevel), Valid: true}
	}
	return row, nil
}

func (r *analysisRow) toDomain() (*domain.AnalysisRecord, error) {
	result := &domain.AnalysisResult{
		Text:         r.MessageText,
		Emotion:      domain.Emotion(r.Emotion),
		EmotionScore: r.EmotionScore,
		Style:        domain.Style(r.Style),
		StyleScore:   r.StyleScore,
		Priority:     domain.Priority(r.Priority),
		Alert:        r.Alert,
	}
	if len(r.EmotionDistribution) > 0 {
		if err := json.Unmarshal([]byte(r.EmotionDistribution), &result.EmotionDistribution); err != nil {
			return nil, fmt.Errorf("failed to decode emotion distribution of analysis %d: %w", r.ID, err)
		}
	}
	if len(r.StyleDistribution) > 0 {
		if err := json.Unmarshal([]byte(r.StyleDistribution), &result.StyleDistribution); err != nil {
			return nil, fmt.Errorf("failed to decode style distribution of analysis %d: %w", r.ID, err)
		}
	}
	if r.AlertReason.Valid {
		result.AlertReason = r.AlertReason.String
	}
	if r.ContextAlert.Valid {
		v := r.ContextAlert.Bool
		result.ContextAlert = &v
	}
	if r.ContextRiskLevel.Valid {
		result.ContextRiskLevel = domain.RiskLevel(r.ContextRiskLevel.String)
	}

	return &domain.AnalysisRecord{
		ID:          r.ID,
		MessageID:   r.MessageID,
		MessageText: r.MessageText,
		Result:      result,
		CreatedAt:   r.CreatedAt,
	}, nil
}

// Upsert stores the analysis of a message, replacing an earlier one.
func (a *AnalysisAdapter) Upsert(ctx context.Context, record *domain.AnalysisRecord) error {
	if record.Result == nil {
		return fmt.Errorf("%w: analysis without result", ErrInvalidInput)
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	row, err := newAnalysisRow(record)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO analyses (
			message_id, emotion, emotion_score, emotion_distribution,
			style, style_score, style_distribution, priority, alert,
			alert_reason, context_alert, context_risk_level, created_at
		) VALUES (
			:message_id, :emotion, :emotion_score, :emotion_distribution,
			:style, :style_score, :style_distribution, :priority, :alert,
			:alert_reason, :context_alert, :context_risk_level, :created_at
		)
		ON CONFLICT (message_id) DO UPDATE SET
			emotion = EXCLUDED.emotion,
			emotion_score = EXCLUDED.emotion_score,
			emotion_distribution = EXCLUDED.emotion_distribution,
			style = EXCLUDED.style,
			style_score = EXCLUDED.style_score,
			style_distribution = EXCLUDED.style_distribution,
			priority = EXCLUDED.priority,
			alert = EXCLUDED.alert,
			alert_reason = EXCLUDED.alert_reason,
			context_alert = EXCLUDED.context_alert,
			context_risk_level = EXCLUDED.context_risk_level,
			created_at = EXCLUDED.created_at
		RETURNING id
	`

	named, args, err := sqlx.Named(query, row)
	if err != nil {
		return fmt.Errorf("failed to bind analysis upsert: %w", err)
	}
	if err := a.db.QueryRowxContext(ctx, a.db.Rebind(named), args...).Scan(&record.ID); err != nil {
		return fmt.Errorf("failed to upsert analysis: %w", err)
	}
	return nil
}

const analysisColumns = `
	SELECT a.id, a.message_id, m.text AS message_text,
		a.emotion, a.emotion_score, a.emotion_distribution,
		a.style, a.style_score, a.style_distribution,
		a.priority, a.alert, a.alert_reason, a.context_alert, a.context_risk_level,
		a.created_at
	FROM analyses a
	JOIN messages m ON m.id = a.message_id
`

const analysisSelect = analysisColumns + `
	WHERE m.user_id = $1 AND m.sender = 'user'
	ORDER BY a.created_at DESC, a.id DESC
`

// GetLatestByUser returns the user's newest analysis, or nil.
func (a *AnalysisAdapter) GetLatestByUser(ctx context.Context, userID uuid.UUID) (*domain.AnalysisRecord, error) {
	var row analysisRow
	err := a.db.GetContext(ctx, &row, analysisSelect+` LIMIT 1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest analysis: %w", err)
	}
	return row.toDomain()
}

// ListByUser returns the user's analyses, newest first.
func (a *AnalysisAdapter) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.AnalysisRecord, error) {
	var rows []analysisRow
	if err := a.db.SelectContext(ctx, &rows, analysisSelect+` LIMIT $2`, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}

	records := make([]*domain.AnalysisRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// ListByMessages returns the analyses of the given messages keyed by message id.
func (a *AnalysisAdapter) ListByMessages(ctx context.Context, messageIDs []uuid.UUID) (map[uuid.UUID]*domain.AnalysisRecord, error) {
	records := make(map[uuid.UUID]*domain.AnalysisRecord, len(messageIDs))
	if len(messageIDs) == 0 {
		return records, nil
	}

	var rows []analysisRow
	query := analysisColumns + ` WHERE a.message_id = ANY($1::uuid[])`
	if err := a.db.SelectContext(ctx, &rows, query, pq.Array(uuidStrings(messageIDs))); err != nil {
		return nil, fmt.Errorf("failed to list analyses by message: %w", err)
	}

	for i := range rows {
		rec, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		records[rec.MessageID] = rec
	}
	return records, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	return strs
}
