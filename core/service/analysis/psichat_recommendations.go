package analysis

import (
	"fmt"

	"psichat_server/core/domain"
)

// =============================================================================
// Advice Tables
// =============================================================================

// advice is a set of lines appended to each list of a RecommendationBundle.
type advice struct {
	immediate []string
	support   []string
	tips      []string
	longTerm  []string
}

// escalation is priority advice with an optional marker placed first in immediate actions.
type escalation struct {
	marker string
	advice
}

var emotionAdvice = map[domain.Emotion]advice{
	domain.EmotionSadness: {
		immediate: []string{"Ofrecer empatía y validación emocional"},
		support:   []string{"Sugerir actividades que generen bienestar"},
		longTerm:  []string{"Considerar apoyo profesional si persiste"},
	},
	domain.EmotionAnxiety: {
		immediate: []string{"Ayudar con técnicas de respiración"},
		support:   []string{"Enfocarse en el momento presente"},
		tips:      []string{"Usar un tono calmado y tranquilizador"},
	},
	domain.EmotionFrustration: {
		immediate: []string{"Validar la frustración sin minimizarla"},
		support:   []string{"Ayudar a identificar soluciones"},
		tips:      []string{"Mantener un enfoque constructivo"},
	},
	domain.EmotionJoy: {
		immediate: []string{"Celebrar y reforzar el estado positivo"},
		support:   []string{"Aprovechar el momento para establecer metas"},
		longTerm:  []string{"Documentar qué generó esta alegría"},
	},
}

var styleAdvice = map[domain.Style]advice{
	domain.StyleEvasive: {
		tips:     []string{"Crear un ambiente seguro para la expresión"},
		support:  []string{"Ser paciente y no presionar"},
		longTerm: []string{"Trabajar en la confianza gradualmente"},
	},
	domain.StyleAggressive: {
		immediate: []string{"Mantener calma y no responder con agresividad"},
		tips:      []string{"Establecer límites claros y respetuosos"},
		support:   []string{"Ayudar a identificar las causas subyacentes"},
	},
	domain.StyleFormal: {
		tips:    []string{"Mantener un tono profesional pero cálido"},
		support: []string{"Respetar la preferencia por la formalidad"},
	},
}

var priorityAdvice = map[domain.Priority]escalation{
	domain.PriorityCritical: {
		marker: "🚨 INTERVENCIÓN CRÍTICA REQUERIDA",
		advice: advice{
			immediate: []string{
				"Contactar inmediatamente al tutor o profesional",
				"Evaluar necesidad de intervención de emergencia",
			},
			support:  []string{"Mantener presencia constante y apoyo inmediato"},
			longTerm: []string{"Coordinar con servicios de salud mental"},
		},
	},
	domain.PriorityHigh: {
		marker: "⚠️ ATENCIÓN INMEDIATA REQUERIDA",
		advice: advice{
			immediate: []string{"Evaluar necesidad de intervención profesional"},
			support:   []string{"Mantener contacto frecuente y apoyo constante"},
		},
	},
	domain.PriorityMedium: {
		advice: advice{
			immediate: []string{"Monitorear cambios en el estado emocional"},
			support:   []string{"Ofrecer recursos de apoyo adicionales"},
		},
	},
	domain.PriorityLow: {
		advice: advice{
			immediate: []string{"Observar tendencias en el estado emocional"},
			support:   []string{"Ofrecer apoyo preventivo"},
		},
	},
}

func appendAdvice(b *domain.RecommendationBundle, a advice) {
	b.ImmediateActions = append(b.ImmediateActions, a.immediate...)
	b.EmotionalSupport = append(b.EmotionalSupport, a.support...)
	b.CommunicationTips = append(b.CommunicationTips, a.tips...)
	b.LongTermSuggestions = append(b.LongTermSuggestions, a.longTerm...)
}

// GenerateRecommendations builds guidance from the emotion, style and priority
// tables, in that order. Every list is non-nil. Scores are accepted for
// signature stability and do not change the lookup.
func GenerateRecommendations(emotion domain.Emotion, _ float64, style domain.Style, _ float64, priority domain.Priority) *domain.RecommendationBundle {
	b := &domain.RecommendationBundle{
		ImmediateActions:    []string{},
		EmotionalSupport:    []string{},
		CommunicationTips:   []string{},
		LongTermSuggestions: []string{},
	}

	appendAdvice(b, emotionAdvice[emotion.Fold()])
	appendAdvice(b, styleAdvice[style.Fold()])

	if esc, ok := priorityAdvice[priority]; ok {
		if esc.marker != "" {
			b.ImmediateActions = append([]string{esc.marker}, b.ImmediateActions...)
		}
		appendAdvice(b, esc.advice)
	}

	return b
}

// =============================================================================
// Summaries
// =============================================================================

var executiveTemplates = map[domain.Priority]string{
	domain.PriorityCritical: "🚨 SITUACIÓN CRÍTICA: El usuario presenta %s con intensidad del %.1f%% y estilo %s. INTERVENCIÓN INMEDIATA REQUERIDA.",
	domain.PriorityHigh:     "⚠️ SITUACIÓN DE ALTA PRIORIDAD: El usuario presenta %s con intensidad del %.1f%% y estilo %s. Requiere atención inmediata.",
	domain.PriorityMedium:   "📊 SITUACIÓN MODERADA: Estado emocional de %s (%.1f%%) con estilo %s. Monitoreo recomendado.",
	domain.PriorityLow:      "📈 SITUACIÓN DE BAJA PRIORIDAD: Estado emocional de %s (%.1f%%) con estilo %s. Observación preventiva.",
}

const executiveDefault = "✅ ESTADO NORMAL: Emoción predominante %s (%.1f%%) con estilo %s. Continúa el apoyo regular."

var userClosings = map[domain.Priority]string{
	domain.PriorityCritical: "Es muy importante que sepas que estamos aquí para ayudarte. No dudes en buscar apoyo profesional si lo necesitas.",
	domain.PriorityHigh:     "Es importante que sepas que estamos aquí para apoyarte.",
	domain.PriorityMedium:   "Recuerda que es normal tener altibajos emocionales.",
	domain.PriorityLow:      "Es bueno que mantengas esta comunicación abierta.",
}

const userClosingDefault = "Mantén esta comunicación abierta."

// GenerateSummary writes the executive, technical and user-facing summaries of a reading.
func GenerateSummary(r *domain.AnalysisResult) *domain.SummaryBundle {
	tmpl, ok := executiveTemplates[r.Priority]
	if !ok {
		tmpl = executiveDefault
	}
	closing, ok := userClosings[r.Priority]
	if !ok {
		closing = userClosingDefault
	}

	alert := "NO"
	if r.Alert {
		alert = "SÍ"
	}

	return &domain.SummaryBundle{
		Executive: fmt.Sprintf(tmpl, r.Emotion, r.EmotionScore, r.Style),
		Technical: fmt.Sprintf(
			"Análisis técnico: Emoción dominante '%s' (confianza: %.1f%%), estilo comunicativo '%s' (confianza: %.1f%%). Prioridad: %s. Alerta: %s.",
			r.Emotion, r.EmotionScore, r.Style, r.StyleScore, r.Priority, alert),
		UserFriendly: fmt.Sprintf("Tu mensaje refleja principalmente %s y un estilo de comunicación %s. ", r.Emotion, r.Style) + closing,
	}
}

// GenerateInsights describes each dimension of a reading in one line.
func GenerateInsights(r *domain.AnalysisResult) *domain.DetailedInsights {
	status := "Estado normal"
	if r.Alert {
		status = "Requiere atención inmediata"
	}
	return &domain.DetailedInsights{
		EmotionalState:     fmt.Sprintf("El usuario muestra un estado emocional de %s con una intensidad del %.1f%%", r.Emotion, r.EmotionScore),
		CommunicationStyle: fmt.Sprintf("Su estilo de comunicación es %s con una confianza del %.1f%%", r.Style, r.StyleScore),
		RiskAssessment:     fmt.Sprintf("Nivel de prioridad: %s", r.Priority),
		AlertStatus:        status,
	}
}
