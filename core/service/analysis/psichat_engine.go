package analysis

import (
	"context"

	"psichat_server/core/domain"
	"psichat_server/core/port/out"
)

// DefaultContextWindow is how many previous messages are read for accumulated risk.
const DefaultContextWindow = 3

// EngineConfig tunes the engine.
type EngineConfig struct {
	ContextWindow int // previous messages read for context, <= 0 reads all
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{ContextWindow: DefaultContextWindow}
}

// Engine turns a message, and optionally its history, into an AnalysisResult.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	emotion out.TextClassifier
	style   out.TextClassifier
	context *ContextAggregator
	config  *EngineConfig
}

// NewEngine creates an engine. Either classifier may be nil, in which case its
// axis always reads neutral.
func NewEngine(emotion, style out.TextClassifier, config *EngineConfig) *Engine {
	if config == nil {
		config = DefaultEngineConfig()
	}
	return &Engine{
		emotion: emotion,
		style:   style,
		context: NewContextAggregator(emotion, style),
		config:  config,
	}
}

// ContextWindow returns the configured history window.
func (e *Engine) ContextWindow() int {
	return e.config.ContextWindow
}

// AnalyzeChatContext reads history with the configured window.
func (e *Engine) AnalyzeChatContext(ctx context.Context, history []string) *domain.ContextSummary {
	return e.context.AnalyzeChatContext(ctx, history, e.config.ContextWindow)
}

// Analyze reads a single message. History, oldest first, is optional; when
// present its accumulated risk raises the priority and is attached to the result.
func (e *Engine) Analyze(ctx context.Context, text string, history []string) *domain.AnalysisResult {
	emotionLabel, emotionScore, emotionDist := Normalize(ctx, text, e.emotion)
	styleLabel, styleScore, styleDist := Normalize(ctx, text, e.style)

	emotion := domain.Emotion(emotionLabel)
	style := domain.Style(styleLabel)

	contextRisk := domain.RiskNormal
	var summary *domain.ContextSummary
	if len(history) > 0 {
		summary = e.AnalyzeChatContext(ctx, history)
		contextRisk = summary.ContextRiskLevel
	}

	alert, reason := CheckCombinedAlert(emotion, emotionScore, style, styleScore)

	result := &domain.AnalysisResult{
		Text:                text,
		Emotion:             emotion,
		EmotionScore:        emotionScore,
		EmotionDistribution: emotionDist,
		Style:               style,
		StyleScore:          styleScore,
		StyleDistribution:   styleDist,
		Priority:            EvaluatePriority(emotion, emotionScore, style, styleScore, contextRisk),
		Alert:               alert,
		AlertReason:         reason,
	}

	if summary != nil {
		contextAlert := summary.ContextAlert
		result.ContextAlert = &contextAlert
		result.ContextRiskLevel = summary.ContextRiskLevel
		result.EmotionFrequency = summary.EmotionFrequency
		result.StyleFrequency = summary.StyleFrequency
	}

	return result
}

// AnalyzeComplete reads a message and derives its recommendations, summaries and insights.
func (e *Engine) AnalyzeComplete(ctx context.Context, text string, history []string) *domain.CompleteAnalysis {
	return Complete(e.Analyze(ctx, text, history))
}

// Complete derives the guidance of an existing reading.
func Complete(r *domain.AnalysisResult) *domain.CompleteAnalysis {
	return &domain.CompleteAnalysis{
		AnalysisResult:   r,
		Recommendations:  GenerateRecommendations(r.Emotion, r.EmotionScore, r.Style, r.StyleScore, r.Priority),
		Summary:          GenerateSummary(r),
		DetailedInsights: GenerateInsights(r),
	}
}
