package analysis

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"psichat_server/core/domain"

	"golang.org/x/sync/errgroup"
)

// DefaultDeepLimit is how many recent messages a deep analysis reads.
const DefaultDeepLimit = 10

// deepParallelism bounds concurrent classifications within one batch.
const deepParallelism = 4

// ErrEmptyBatch is returned when a deep analysis receives no messages.
var ErrEmptyBatch = errors.New("no messages to analyze")

var (
	disallowedChars = regexp.MustCompile(`[^a-záéíóúüñ0-9\s]`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
)

// deepRecommendations are the same for every batch.
var deepRecommendations = []string{
	"Considera practicar técnicas de respiración si detectas altos niveles de ansiedad",
	"Mantén un diario emocional para identificar patrones en tus estados de ánimo",
	"Practica la comunicación asertiva para mejorar tus interacciones",
	"Busca apoyo profesional si notas patrones emocionales preocupantes",
}

// CleanText lowercases text, drops everything except letters, digits and
// whitespace, and collapses whitespace runs.
func CleanText(text string) string {
	text = strings.ToLower(text)
	text = disallowedChars.ReplaceAllString(text, "")
	text = whitespaceRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// DeepAnalyze reads a batch of messages, newest first, and aggregates their
// distributions, trends and insights. AnalysisDate is the newest message's time.
func (e *Engine) DeepAnalyze(ctx context.Context, inputs []domain.DeepInput) (*domain.DeepAnalysis, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyBatch
	}

	results := make([]*domain.AnalysisResult, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deepParallelism)
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.Analyze(gctx, CleanText(in.Text), nil)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("deep analysis: %w", err)
	}

	emotionAvg, emotionLabels := averageDistributions(results, func(r *domain.AnalysisResult) domain.Distribution {
		return r.EmotionDistribution
	})
	styleAvg, styleLabels := averageDistributions(results, func(r *domain.AnalysisResult) domain.Distribution {
		return r.StyleDistribution
	})

	report := &domain.DeepAnalysis{
		AverageEmotionDistribution: make([]domain.EmotionAverage, 0, len(emotionLabels)),
		AverageStyleDistribution:   make([]domain.StyleAverage, 0, len(styleLabels)),
		EmotionTrends:              emotionTrends(results),
		StyleTrends:                styleTrends(results),
		Recommendations:            append([]string(nil), deepRecommendations...),
		MessageCount:               len(inputs),
		AnalysisDate:               inputs[0].CreatedAt,
	}
	for _, label := range emotionLabels {
		report.AverageEmotionDistribution = append(report.AverageEmotionDistribution,
			domain.EmotionAverage{Emotion: domain.Emotion(label), Score: emotionAvg[label] / 100})
	}
	for _, label := range styleLabels {
		report.AverageStyleDistribution = append(report.AverageStyleDistribution,
			domain.StyleAverage{Style: domain.Style(label), Score: styleAvg[label] / 100})
	}

	topEmotion := mostFrequent(emotionLabels, emotionAvg)
	topStyle := mostFrequent(styleLabels, styleAvg)

	strongestEmotion, strongestStyle := results[0].Emotion, results[0].Style
	maxEmotion, maxStyle := results[0].EmotionScore, results[0].StyleScore
	for _, r := range results[1:] {
		if r.EmotionScore > maxEmotion {
			strongestEmotion, maxEmotion = r.Emotion, r.EmotionScore
		}
		if r.StyleScore > maxStyle {
			strongestStyle, maxStyle = r.Style, r.StyleScore
		}
	}

	report.Insights = []string{
		fmt.Sprintf("Tu emoción más frecuente es '%s' con un promedio del %.1f%%", topEmotion, emotionAvg[topEmotion]),
		fmt.Sprintf("Tu estilo de comunicación predominante es '%s' con un promedio del %.1f%%", topStyle, styleAvg[topStyle]),
		fmt.Sprintf("La emoción más intensa detectada fue '%s'", strongestEmotion),
		fmt.Sprintf("El estilo de comunicación más marcado fue '%s'", strongestStyle),
	}

	return report, nil
}

// averageDistributions returns the mean percentage of every label seen in the
// batch, rounded to two decimals, and the labels in sorted order. A label missing
// from a message counts as 0 for that message.
func averageDistributions(results []*domain.AnalysisResult, pick func(*domain.AnalysisResult) domain.Distribution) (map[string]float64, []string) {
	sums := make(map[string]float64)
	for _, r := range results {
		for _, entry := range pick(r) {
			sums[entry.Label] += entry.Score
		}
	}

	labels := make([]string, 0, len(sums))
	for label := range sums {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	n := float64(len(results))
	for label, sum := range sums {
		sums[label] = round2(sum / n)
	}
	return sums, labels
}

// mostFrequent returns the label with the highest average; ties go to the first label in order.
func mostFrequent(labels []string, averages map[string]float64) string {
	if len(labels) == 0 {
		return NeutralLabel
	}
	best := labels[0]
	for _, label := range labels[1:] {
		if averages[label] > averages[best] {
			best = label
		}
	}
	return best
}

func emotionTrends(results []*domain.AnalysisResult) []domain.EmotionTrend {
	var order []domain.Emotion
	counts := make(map[domain.Emotion]int)
	for _, r := range results {
		if _, seen := counts[r.Emotion]; !seen {
			order = append(order, r.Emotion)
		}
		counts[r.Emotion]++
	}

	trends := make([]domain.EmotionTrend, 0, len(order))
	for _, emotion := range order {
		trends = append(trends, domain.EmotionTrend{
			Emotion:     emotion,
			Frequency:   counts[emotion],
			Description: fmt.Sprintf("Esta emoción apareció en %d de %d mensajes analizados.", counts[emotion], len(results)),
		})
	}
	return trends
}

func styleTrends(results []*domain.AnalysisResult) []domain.StyleTrend {
	var order []domain.Style
	counts := make(map[domain.Style]int)
	for _, r := range results {
		if _, seen := counts[r.Style]; !seen {
			order = append(order, r.Style)
		}
		counts[r.Style]++
	}

	trends := make([]domain.StyleTrend, 0, len(order))
	for _, style := range order {
		trends = append(trends, domain.StyleTrend{
			Style:       style,
			Frequency:   counts[style],
			Description: fmt.Sprintf("Este estilo de comunicación apareció en %d de %d mensajes analizados.", counts[style], len(results)),
		})
	}
	return trends
}
