package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatTurn is one exchange of a conversation: what the user wrote and what the tutor answered.
type ChatTurn struct {
	User string `json:"user"`
	Bot  string `json:"bot"`
}

// ChatReply is the tutor's answer to a user message plus the reading that shaped it.
type ChatReply struct {
	MessageID uuid.UUID `json:"message_id"`
	Reply     string    `json:"reply"`
	Meta      ChatMeta  `json:"meta"`
}

// ChatMeta exposes the reading of the user message that produced a reply.
type ChatMeta struct {
	DetectedEmotion  Emotion   `json:"detected_emotion"`
	EmotionScore     float64   `json:"emotion_score"`
	DetectedStyle    Style     `json:"detected_style"`
	StyleScore       float64   `json:"style_score"`
	Priority         Priority  `json:"priority"`
	Alert            bool      `json:"alert"`
	AlertReason      string    `json:"alert_reason,omitempty"`
	ContextAlert     bool      `json:"context_alert"`
	ContextRiskLevel RiskLevel `json:"context_risk_level"`
	Error            string    `json:"error,omitempty"`
}

// ChatHistoryItem is one stored message with the reading of it, if any.
// The reading fields are null for bot messages and unanalysed user messages.
type ChatHistoryItem struct {
	ID           uuid.UUID `json:"id"`
	Content      string    `json:"content"`
	Sender       Sender    `json:"sender"`
	Timestamp    time.Time `json:"timestamp"`
	Emotion      *Emotion  `json:"emotion"`
	EmotionScore *float64  `json:"emotion_score"`
	Style        *Style    `json:"style"`
	StyleScore   *float64  `json:"style_score"`
	Priority     *Priority `json:"priority"`
	Alert        *bool     `json:"alert"`
	AlertReason  *string   `json:"alert_reason"`
}

// NewChatHistoryItem joins a message with its analysis. record may be nil.
func NewChatHistoryItem(msg *Message, record *AnalysisRecord) *ChatHistoryItem {
	item := &ChatHistoryItem{
		ID:        msg.ID,
		Content:   msg.Text,
		Sender:    msg.Sender,
		Timestamp: msg.CreatedAt,
	}
	if record == nil || record.Result == nil {
		return item
	}

	r := record.Result
	item.Emotion = &r.Emotion
	item.EmotionScore = &r.EmotionScore
	item.Style = &r.Style
	item.StyleScore = &r.StyleScore
	item.Priority = &r.Priority
	item.Alert = &r.Alert
	item.AlertReason = &r.AlertReason
	return item
}
