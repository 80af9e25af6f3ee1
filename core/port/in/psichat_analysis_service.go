package in

import (
	"context"

	"psichat_server/core/domain"

	"github.com/google/uuid"
)

// AnalysisService defines the inbound port for message analysis.
type AnalysisService interface {
	// === Stateless scoring ===
	AnalyzeText(ctx context.Context, text string, history []string) (*domain.AnalysisResult, error)
	AnalyzeContext(ctx context.Context, history []string) (*domain.ContextSummary, error)
	EvaluatePriority(req *PriorityRequest) domain.Priority
	CheckAlert(req *PriorityRequest) (bool, string)

	// === Stored analyses ===
	AnalyzeComplete(ctx context.Context, userID uuid.UUID, text string, history []string) (*domain.CompleteAnalysis, error)
	LastAnalysis(ctx context.Context, userID uuid.UUID) (*domain.CompleteAnalysis, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.AnalysisHistoryItem, error)
	DeepAnalysis(ctx context.Context, userID uuid.UUID) (*domain.DeepAnalysis, error)
	LastDeepAnalysis(ctx context.Context, userID uuid.UUID) (*domain.DeepAnalysis, error)
}

// PriorityRequest carries an already classified reading.
type PriorityRequest struct {
	Emotion      domain.Emotion   `json:"emotion"`
	EmotionScore float64          `json:"emotion_score"`
	Style        domain.Style     `json:"style"`
	StyleScore   float64          `json:"style_score"`
	ContextRisk  domain.RiskLevel `json:"context_risk,omitempty"`
}

// ChatService defines the inbound port for the tutor conversation.
type ChatService interface {
	Reply(ctx context.Context, userID uuid.UUID, text string) (*domain.ChatReply, error)
	// History returns the user's last messages, oldest first, each with its reading.
	History(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.ChatHistoryItem, error)
}

// AlertService defines the inbound port for tutor alert listings.
type AlertService interface {
	ListAlerts(ctx context.Context, req *ListAlertsRequest) ([]*domain.AlertEvent, error)
	TopEmotions(ctx context.Context, userID uuid.UUID, limit int) ([]domain.EmotionCount, error)
}

// ListAlertsRequest filters tutor alerts.
type ListAlertsRequest struct {
	UserID      *uuid.UUID
	MinPriority domain.Priority
	Limit       int
}
