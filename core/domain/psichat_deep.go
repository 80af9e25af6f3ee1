package domain

import (
	"time"

	"github.com/google/uuid"
)

// EmotionAverage is the mean confidence of one emotion across a batch, as a fraction in [0, 1].
type EmotionAverage struct {
	Emotion Emotion `json:"emotion" bson:"emotion"`
	Score   float64 `json:"score" bson:"score"`
}

// StyleAverage is the mean confidence of one style across a batch, as a fraction in [0, 1].
type StyleAverage struct {
	Style Style   `json:"style" bson:"style"`
	Score float64 `json:"score" bson:"score"`
}

// EmotionTrend counts how many messages of a batch were dominated by an emotion.
type EmotionTrend struct {
	Emotion     Emotion `json:"emotion" bson:"emotion"`
	Frequency   int     `json:"frequency" bson:"frequency"`
	Description string  `json:"description" bson:"description"`
}

// StyleTrend counts how many messages of a batch were dominated by a style.
type StyleTrend struct {
	Style       Style  `json:"style" bson:"style"`
	Frequency   int    `json:"frequency" bson:"frequency"`
	Description string `json:"description" bson:"description"`
}

// DeepAnalysis aggregates the readings of a user's most recent messages.
type DeepAnalysis struct {
	UserID                     uuid.UUID        `json:"-" bson:"user_id"`
	AverageEmotionDistribution []EmotionAverage `json:"average_emotion_distribution" bson:"average_emotion_distribution"`
	AverageStyleDistribution   []StyleAverage   `json:"average_style_distribution" bson:"average_style_distribution"`
	EmotionTrends              []EmotionTrend   `json:"emotion_trends" bson:"emotion_trends"`
	StyleTrends                []StyleTrend     `json:"style_trends" bson:"style_trends"`
	Insights                   []string         `json:"insights" bson:"insights"`
	Recommendations            []string         `json:"recommendations" bson:"recommendations"`
	MessageCount               int              `json:"message_count" bson:"message_count"`
	AnalysisDate               time.Time        `json:"analysis_date" bson:"analysis_date"`
	CreatedAt                  time.Time        `json:"-" bson:"created_at"`
}

// DeepInput is one message fed into a deep analysis batch.
type DeepInput struct {
	Text      string
	CreatedAt time.Time
}
