package analysis

import (
	"context"

	"psichat_server/core/domain"
	"psichat_server/core/port/out"
)

// contextRiskEmotions count towards accumulated risk when they dominate a message.
var contextRiskEmotions = map[domain.Emotion]struct{}{
	domain.EmotionFrustration:    {},
	domain.EmotionSadness:        {},
	domain.EmotionDiscouragement: {},
}

const (
	contextRiskScore    = 70
	contextAlertMinimum = 2
)

// ContextAggregator reads a window of previous messages for accumulated risk.
type ContextAggregator struct {
	emotion out.TextClassifier
	style   out.TextClassifier
}

// NewContextAggregator creates an aggregator over the given classifiers.
func NewContextAggregator(emotion, style out.TextClassifier) *ContextAggregator {
	return &ContextAggregator{emotion: emotion, style: style}
}

// AnalyzeChatContext scans the last window entries of history (all of them
// if window <= 0). History is ordered oldest first.
//
// The alert fires when at least two messages are dominated by a high-risk
// emotion scoring 70 or more. The level is "alto" on alert and "normal" otherwise.
func (a *ContextAggregator) AnalyzeChatContext(ctx context.Context, history []string, window int) *domain.ContextSummary {
	if window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}

	summary := &domain.ContextSummary{
		EmotionFrequency: make(map[domain.Emotion]int),
		StyleFrequency:   make(map[domain.Style]int),
		ContextRiskLevel: domain.RiskNormal,
	}

	highRisk := 0
	for _, text := range history {
		emotionLabel, emotionScore, _ := Normalize(ctx, text, a.emotion)
		styleLabel, _, _ := Normalize(ctx, text, a.style)

		emotion := domain.Emotion(emotionLabel).Fold()
		style := domain.Style(styleLabel).Fold()

		summary.EmotionFrequency[emotion]++
		summary.StyleFrequency[style]++

		if _, ok := contextRiskEmotions[emotion]; ok && emotionScore >= contextRiskScore {
			highRisk++
		}
	}

	summary.ContextAlert = highRisk >= contextAlertMinimum
	if summary.ContextAlert {
		summary.ContextRiskLevel = domain.RiskHigh
	}
	return summary
}
