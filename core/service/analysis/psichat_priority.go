package analysis

import "psichat_server/core/domain"

// =============================================================================
// Priority Thresholds
// =============================================================================
//
// These tables are independent of the alert tables in psichat_alert.go.
// Both sets are kept as given; the overlap of keys with different values is
// an open product question and must not be merged.

var highRiskEmotions = map[domain.Emotion]float64{
	domain.EmotionFrustration:    75,
	domain.EmotionSadness:        80,
	domain.EmotionAnxiety:        70,
	domain.EmotionDiscouragement: 75,
	domain.EmotionAnger:          70,
	domain.EmotionDespair:        60,
	domain.EmotionLoneliness:     75,
}

var mediumRiskEmotions = map[domain.Emotion]float64{
	domain.EmotionWorry:      65,
	domain.EmotionConfusion:  60,
	domain.EmotionInsecurity: 70,
	domain.EmotionNostalgia:  75,
}

var highRiskStyles = map[domain.Style]float64{
	domain.StyleEvasive:     65,
	domain.StylePassiveAggr: 60,
	domain.StyleAggressive:  55,
	domain.StyleDefensive:   70,
}

var mediumRiskStyles = map[domain.Style]float64{
	domain.StyleFormal:    80,
	domain.StyleDistant:   70,
	domain.StyleSarcastic: 65,
}

// extremeEmotions force the critical tier on their own.
var extremeEmotions = map[domain.Emotion]float64{
	domain.EmotionFrustration:    90,
	domain.EmotionSadness:        95,
	domain.EmotionAnxiety:        85,
	domain.EmotionDiscouragement: 90,
}

const (
	highRiskMargin   = 10
	mediumRiskMargin = 15

	criticalFloor = 4
)

// riskScore grades a label against a high and a medium table (0 to 3).
// The label must already be folded to lowercase.
func riskScore[K ~string](label K, score float64, high, medium map[K]float64) float64 {
	if t, ok := high[label]; ok {
		switch {
		case score >= t:
			return 3
		case score >= t-highRiskMargin:
			return 2
		}
		return 0
	}
	if t, ok := medium[label]; ok {
		switch {
		case score >= t:
			return 2
		case score >= t-mediumRiskMargin:
			return 1
		}
	}
	return 0
}

// contextBonus is the extra risk carried by an accumulated context level.
func contextBonus(level domain.RiskLevel) float64 {
	switch level {
	case domain.RiskHigh:
		return 1
	case domain.RiskMedium:
		return 0.5
	}
	return 0
}

// EvaluatePriority grades a reading into one of the five priority tiers.
// Label comparisons are case-insensitive and unknown labels add no risk.
// The tier never decreases as either score increases.
func EvaluatePriority(emotion domain.Emotion, emotionScore float64, style domain.Style, styleScore float64, contextRisk domain.RiskLevel) domain.Priority {
	e := emotion.Fold()
	s := style.Fold()

	total := riskScore(e, emotionScore, highRiskEmotions, mediumRiskEmotions) +
		riskScore(s, styleScore, highRiskStyles, mediumRiskStyles)
	total += contextBonus(contextRisk)

	if t, ok := extremeEmotions[e]; ok && emotionScore >= t {
		total = max(total, criticalFloor)
	}

	return bucket(total)
}

func bucket(total float64) domain.Priority {
	switch {
	case total >= 4:
		return domain.PriorityCritical
	case total >= 3:
		return domain.PriorityHigh
	case total >= 2:
		return domain.PriorityMedium
	case total >= 1:
		return domain.PriorityLow
	default:
		return domain.PriorityNormal
	}
}
