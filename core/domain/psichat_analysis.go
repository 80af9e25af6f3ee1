package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Emotion is an emotion label produced by the emotion classifier.
type Emotion string

const (
	EmotionNeutral        Emotion = "neutro"
	EmotionFrustration    Emotion = "frustración"
	EmotionSadness        Emotion = "tristeza"
	EmotionAnxiety        Emotion = "ansiedad"
	EmotionDiscouragement Emotion = "desánimo"
	EmotionAnger          Emotion = "ira"
	EmotionDespair        Emotion = "desesperación"
	EmotionLoneliness     Emotion = "soledad"
	EmotionWorry          Emotion = "preocupación"
	EmotionConfusion      Emotion = "confusión"
	EmotionInsecurity     Emotion = "inseguridad"
	EmotionNostalgia      Emotion = "nostalgia"
	EmotionJoy            Emotion = "alegría"
)

// Fold returns the lowercase form used for table lookups.
func (e Emotion) Fold() Emotion {
	return Emotion(strings.ToLower(string(e)))
}

// Style is a communicative style label produced by the style classifier.
type Style string

const (
	StyleNeutral     Style = "neutro"
	StyleAssertive   Style = "asertivo"
	StyleEvasive     Style = "evasivo"
	StylePassiveAggr Style = "pasivo-agresivo"
	StyleAggressive  Style = "agresivo"
	StyleDefensive   Style = "defensivo"
	StyleFormal      Style = "formal"
	StyleDistant     Style = "distante"
	StyleSarcastic   Style = "sarcástico"
	StyleIronic      Style = "irónico"
)

// Fold returns the lowercase form used for table lookups.
func (s Style) Fold() Style {
	return Style(strings.ToLower(string(s)))
}

// Priority is the attention tier assigned to an analysed message.
// Tiers are totally ordered: normal < baja < media < alta < crítica.
type Priority string

const (
	PriorityNormal   Priority = "normal"
	PriorityLow      Priority = "baja"
	PriorityMedium   Priority = "media"
	PriorityHigh     Priority = "alta"
	PriorityCritical Priority = "crítica"
)

// Priorities lists every tier in ascending order.
var Priorities = []Priority{PriorityNormal, PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// Rank returns the ordinal position of the tier, or -1 for unknown values.
func (p Priority) Rank() int {
	for i, v := range Priorities {
		if v == p {
			return i
		}
	}
	return -1
}

// IsValid reports whether p is one of the defined tiers.
func (p Priority) IsValid() bool {
	return p.Rank() >= 0
}

// RiskLevel is the accumulated risk derived from a conversation window.
type RiskLevel string

const (
	RiskNormal RiskLevel = "normal"
	RiskMedium RiskLevel = "medio"
	RiskHigh   RiskLevel = "alto"
)

// =============================================================================
// Distributions
// =============================================================================

// ScoredLabel pairs a label with a confidence percentage in [0, 100].
type ScoredLabel struct {
	Label string
	Score float64
}

// MarshalJSON encodes the pair as a two element array: ["label", score].
func (s ScoredLabel) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{s.Label, s.Score})
}

// UnmarshalJSON decodes the ["label", score] form.
func (s *ScoredLabel) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("scored label: expected 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &s.Label); err != nil {
		return fmt.Errorf("scored label: label: %w", err)
	}
	if err := json.Unmarshal(raw[1], &s.Score); err != nil {
		return fmt.Errorf("scored label: score: %w", err)
	}
	return nil
}

// Distribution is a ranked confidence list over all labels of one axis.
// Entries are sorted by score descending; index 0 is the dominant label.
// The stored order is authoritative and is never re-sorted on load.
type Distribution []ScoredLabel

// Dominant returns the first entry, or a zero value for an empty distribution.
func (d Distribution) Dominant() ScoredLabel {
	if len(d) == 0 {
		return ScoredLabel{}
	}
	return d[0]
}

// Score returns the score of label, or 0 if it is absent.
func (d Distribution) Score(label string) float64 {
	for _, e := range d {
		if e.Label == label {
			return e.Score
		}
	}
	return 0
}

// MarshalJSON keeps empty distributions as [] instead of null.
func (d Distribution) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]ScoredLabel(d))
}

// =============================================================================
// Analysis Result
// =============================================================================

// AnalysisResult is the complete reading of a single message.
// AlertReason is non-empty iff Alert is true.
type AnalysisResult struct {
	Text                string       `json:"text"`
	Emotion             Emotion      `json:"emotion"`
	EmotionScore        float64      `json:"emotion_score"`
	EmotionDistribution Distribution `json:"emotion_distribution"`
	Style               Style        `json:"style"`
	StyleScore          float64      `json:"style_score"`
	StyleDistribution   Distribution `json:"style_distribution"`
	Priority            Priority     `json:"priority"`
	Alert               bool         `json:"alert"`
	AlertReason         string       `json:"alert_reason,omitempty"`

	// Set only when a conversation history was analysed.
	ContextAlert     *bool           `json:"context_alert,omitempty"`
	ContextRiskLevel RiskLevel       `json:"context_risk_level,omitempty"`
	EmotionFrequency map[Emotion]int `json:"emotion_frequency,omitempty"`
	StyleFrequency   map[Style]int   `json:"style_frequency,omitempty"`
}

// HasContextAlert reports whether a context window raised an accumulated-risk alert.
func (r *AnalysisResult) HasContextAlert() bool {
	return r.ContextAlert != nil && *r.ContextAlert
}

// ContextSummary is the accumulated reading of a bounded conversation window.
type ContextSummary struct {
	EmotionFrequency map[Emotion]int `json:"emotion_frequency"`
	StyleFrequency   map[Style]int   `json:"style_frequency"`
	ContextAlert     bool            `json:"context_alert"`
	ContextRiskLevel RiskLevel       `json:"context_risk_level"`
}

// RecommendationBundle holds categorized guidance for whoever follows up.
type RecommendationBundle struct {
	ImmediateActions    []string `json:"immediate_actions"`
	EmotionalSupport    []string `json:"emotional_support"`
	CommunicationTips   []string `json:"communication_tips"`
	LongTermSuggestions []string `json:"long_term_suggestions"`
}

// SummaryBundle holds the three narrative summaries of a reading.
type SummaryBundle struct {
	Executive    string `json:"executive"`
	Technical    string `json:"technical"`
	UserFriendly string `json:"user_friendly"`
}

// DetailedInsights are one-line statements about each dimension of a reading.
type DetailedInsights struct {
	EmotionalState     string `json:"emotional_state"`
	CommunicationStyle string `json:"communication_style"`
	RiskAssessment     string `json:"risk_assessment"`
	AlertStatus        string `json:"alert_status"`
}

// CompleteAnalysis is a reading with its derived guidance.
type CompleteAnalysis struct {
	*AnalysisResult
	Recommendations  *RecommendationBundle `json:"recommendations"`
	Summary          *SummaryBundle        `json:"summary"`
	DetailedInsights *DetailedInsights     `json:"detailed_insights"`

	MessageText  string     `json:"message_text,omitempty"`
	AnalysisDate *time.Time `json:"analysis_date,omitempty"`
}

// =============================================================================
// Stored entities
// =============================================================================

// Sender identifies who wrote a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is a persisted chat message.
type Message struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	CreatedAt time.Time `json:"created_at"`
}

// AnalysisRecord is an AnalysisResult persisted against a message.
type AnalysisRecord struct {
	ID          int64           `json:"id"`
	MessageID   uuid.UUID       `json:"message_id"`
	MessageText string          `json:"message_text"`
	Result      *AnalysisResult `json:"result"`
	CreatedAt   time.Time       `json:"created_at"`
}

// AnalysisHistoryItem is the compact form returned by history listings.
type AnalysisHistoryItem struct {
	ID           int64     `json:"id"`
	Emotion      Emotion   `json:"emotion"`
	EmotionScore float64   `json:"emotion_score"`
	Style        Style     `json:"style"`
	StyleScore   float64   `json:"style_score"`
	Priority     Priority  `json:"priority"`
	Alert        bool      `json:"alert"`
	CreatedAt    time.Time `json:"created_at"`
	MessageText  string    `json:"message_text"`
}

// AlertEvent is raised when a message needs a tutor's attention.
type AlertEvent struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	MessageID    uuid.UUID `json:"message_id"`
	Emotion      Emotion   `json:"emotion"`
	EmotionScore float64   `json:"emotion_score"`
	Style        Style     `json:"style"`
	Priority     Priority  `json:"priority"`
	Reason       string    `json:"reason"`
	ContextAlert bool      `json:"context_alert"`
	CreatedAt    time.Time `json:"created_at"`
}

// EmotionCount is how many alerts one emotion raised for a user.
type EmotionCount struct {
	Emotion Emotion `json:"emotion"`
	Count   int64   `json:"count"`
}
