package analysis

import (
	"fmt"
	"math"
	"strconv"

	"psichat_server/core/domain"
)

// =============================================================================
// Alert Thresholds
// =============================================================================
//
// Deliberately separate from the priority tables: alerts fire on their own
// thresholds even where the same emotion appears in both.

var alertEmotionThresholds = map[domain.Emotion]float64{
	domain.EmotionFrustration:    70,
	domain.EmotionSadness:        70,
	domain.EmotionAnxiety:        65,
	domain.EmotionDiscouragement: 60,
}

var riskyStyles = map[domain.Style]struct{}{
	domain.StyleEvasive:     {},
	domain.StylePassiveAggr: {},
	domain.StyleIronic:      {},
}

// StyleAlertThreshold is the score from which a risky style raises an alert.
const StyleAlertThreshold = 60

// IsEmotionAlert reports whether the emotion reaches its alert threshold.
func IsEmotionAlert(emotion domain.Emotion, score float64) bool {
	t, ok := alertEmotionThresholds[emotion.Fold()]
	return ok && score >= t
}

// IsStyleAlert reports whether a risky style reaches the style alert threshold.
func IsStyleAlert(style domain.Style, score float64) bool {
	_, ok := riskyStyles[style.Fold()]
	return ok && score >= StyleAlertThreshold
}

// CheckCombinedAlert decides whether a single reading needs attention and explains why.
// The reason is empty iff the alert is false.
func CheckCombinedAlert(emotion domain.Emotion, emotionScore float64, style domain.Style, styleScore float64) (bool, string) {
	emotionAlert := IsEmotionAlert(emotion, emotionScore)
	styleAlert := IsStyleAlert(style, styleScore)

	switch {
	case emotionAlert && styleAlert:
		return true, fmt.Sprintf(
			"Alerta combinada: emoción '%s' (%s%%) y estilo '%s' (%s%%) indican posible desconexión o riesgo emocional.",
			emotion, FormatScore(emotionScore), style, FormatScore(styleScore))
	case emotionAlert:
		return true, fmt.Sprintf("Emoción '%s' con intensidad %s%% supera el umbral.", emotion, FormatScore(emotionScore))
	case styleAlert:
		return true, fmt.Sprintf("Estilo '%s' detectado con intensidad %s%% sugiere evasión o tensión.", style, FormatScore(styleScore))
	default:
		return false, ""
	}
}

// CheckEmotionAlert is the emotion-only variant of CheckCombinedAlert.
func CheckEmotionAlert(emotion domain.Emotion, score float64) (bool, string) {
	if !IsEmotionAlert(emotion, score) {
		return false, ""
	}
	return true, fmt.Sprintf("Emoción '%s' detectada con intensidad %s%%.", emotion, FormatScore(score))
}

// FormatScore prints a score with the shortest exact representation, keeping
// one decimal on whole numbers (80.0, 72.35).
func FormatScore(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
