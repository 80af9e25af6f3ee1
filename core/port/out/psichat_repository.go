package out

import (
	"context"
	"time"

	"psichat_server/core/domain"

	"github.com/google/uuid"
)

// =============================================================================
// MessageRepository (PostgreSQL)
// =============================================================================

// MessageRepository stores chat messages.
// Lookups return (nil, nil) when nothing matches.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	// ListRecent returns the newest messages first. An empty sender matches both senders.
	ListRecent(ctx context.Context, userID uuid.UUID, sender domain.Sender, limit int) ([]*domain.Message, error)
	// FindLatestByText returns the newest user message with exactly this text.
	FindLatestByText(ctx context.Context, userID uuid.UUID, text string) (*domain.Message, error)
}

// =============================================================================
// AnalysisRepository (PostgreSQL)
// =============================================================================

// AnalysisRepository stores one analysis per message.
type AnalysisRepository interface {
	// Upsert creates or replaces the analysis of record.MessageID and sets record.ID.
	Upsert(ctx context.Context, record *domain.AnalysisRecord) error
	// GetLatestByUser returns the analysis of the user's newest analysed message.
	GetLatestByUser(ctx context.Context, userID uuid.UUID) (*domain.AnalysisRecord, error)
	// ListByUser returns analyses of user messages, newest analysis first.
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.AnalysisRecord, error)
	// ListByMessages returns the analyses of the given messages keyed by message id.
	// Messages without an analysis are absent from the map.
	ListByMessages(ctx context.Context, messageIDs []uuid.UUID) (map[uuid.UUID]*domain.AnalysisRecord, error)
}

// =============================================================================
// DeepAnalysisRepository (MongoDB)
// =============================================================================

// DeepAnalysisRepository keeps a report for every deep analysis run.
type DeepAnalysisRepository interface {
	Save(ctx context.Context, report *domain.DeepAnalysis) error
	GetLatestByUser(ctx context.Context, userID uuid.UUID) (*domain.DeepAnalysis, error)
}

// =============================================================================
// TutorAlertRepository (PostgreSQL)
// =============================================================================

// TutorAlertFilter narrows alert listings.
type TutorAlertFilter struct {
	UserID      *uuid.UUID
	MinPriority domain.Priority
	Since       *time.Time
	Limit       int
}

// TutorAlertRepository stores alerts delivered to tutors.
type TutorAlertRepository interface {
	Save(ctx context.Context, alert *domain.AlertEvent) error
	List(ctx context.Context, filter *TutorAlertFilter) ([]*domain.AlertEvent, error)
}

// =============================================================================
// EmotionGraph (Neo4j)
// =============================================================================

// EmotionGraph records which emotions and styles were raised for each user
// and the transitions between consecutive alerting emotions.
type EmotionGraph interface {
	RecordAlert(ctx context.Context, alert *domain.AlertEvent) error
	TopEmotions(ctx context.Context, userID uuid.UUID, limit int) ([]domain.EmotionCount, error)
}
