// Package analysis implements the emotion and style risk scoring engine.
//
// Pipeline for a single message:
//
//	Normalize (emotion)  ┐
//	Normalize (style)    ┼→ EvaluatePriority → CheckCombinedAlert → AnalysisResult
//	AnalyzeChatContext   ┘
//
// Every stage is a pure function of its inputs and the injected classifiers.
package analysis

import (
	"context"
	"math"
	"sort"
	"strings"

	"psichat_server/core/domain"
	"psichat_server/core/port/out"
)

// NeutralLabel is returned whenever a text cannot be classified.
const NeutralLabel = "neutro"

// neutralDistribution returns a fresh fail-open distribution.
func neutralDistribution() domain.Distribution {
	return domain.Distribution{{Label: NeutralLabel, Score: 0}}
}

// Normalize classifies text and returns the dominant label, its score and the
// full distribution sorted by score descending. Scores are percentages with two decimals.
//
// It never fails: blank text, a nil classifier, a classifier error or an empty
// output all yield ("neutro", 0, [("neutro", 0)]).
func Normalize(ctx context.Context, text string, classifier out.TextClassifier) (string, float64, domain.Distribution) {
	if strings.TrimSpace(text) == "" || classifier == nil {
		return NeutralLabel, 0, neutralDistribution()
	}

	probs, err := classifier.Classify(ctx, text)
	if err != nil || len(probs) == 0 {
		return NeutralLabel, 0, neutralDistribution()
	}

	dist := make(domain.Distribution, len(probs))
	for i, p := range probs {
		dist[i] = domain.ScoredLabel{Label: p.Label, Score: toPercent(p.Probability)}
	}

	// Stable: ties keep the model's label order.
	sort.SliceStable(dist, func(i, j int) bool {
		return dist[i].Score > dist[j].Score
	})

	top := dist.Dominant()
	return top.Label, top.Score, dist
}

// toPercent converts a probability to a percentage rounded to two decimals.
func toPercent(p float64) float64 {
	return math.Round(p*10000) / 100
}

// round2 rounds v to two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
