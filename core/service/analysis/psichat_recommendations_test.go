package analysis

import (
	"reflect"
	"testing"

	"psichat_server/core/domain"
)

func TestGenerateRecommendations(t *testing.T) {
	tests := []struct {
		name     string
		emotion  domain.Emotion
		style    domain.Style
		priority domain.Priority
		want     *domain.RecommendationBundle
	}{
		{
			name:     "critical frustration with evasive style",
			emotion:  domain.EmotionFrustration,
			style:    domain.StyleEvasive,
			priority: domain.PriorityCritical,
			want: &domain.RecommendationBundle{
				ImmediateActions: []string{
					"🚨 INTERVENCIÓN CRÍTICA REQUERIDA",
					"Validar la frustración sin minimizarla",
					"Contactar inmediatamente al tutor o profesional",
					"Evaluar necesidad de intervención de emergencia",
				},
				EmotionalSupport: []string{
					"Ayudar a identificar soluciones",
					"Ser paciente y no presionar",
					"Mantener presencia constante y apoyo inmediato",
				},
				CommunicationTips: []string{
					"Mantener un enfoque constructivo",
					"Crear un ambiente seguro para la expresión",
				},
				LongTermSuggestions: []string{
					"Trabajar en la confianza gradualmente",
					"Coordinar con servicios de salud mental",
				},
			},
		},
		{
			name:     "high sadness",
			emotion:  domain.EmotionSadness,
			style:    domain.StyleAssertive,
			priority: domain.PriorityHigh,
			want: &domain.RecommendationBundle{
				ImmediateActions: []string{
					"⚠️ ATENCIÓN INMEDIATA REQUERIDA",
					"Ofrecer empatía y validación emocional",
					"Evaluar necesidad de intervención profesional",
				},
				EmotionalSupport: []string{
					"Sugerir actividades que generen bienestar",
					"Mantener contacto frecuente y apoyo constante",
				},
				CommunicationTips:   []string{},
				LongTermSuggestions: []string{"Considerar apoyo profesional si persiste"},
			},
		},
		{
			name:     "low priority formal style",
			emotion:  domain.EmotionNeutral,
			style:    domain.StyleFormal,
			priority: domain.PriorityLow,
			want: &domain.RecommendationBundle{
				ImmediateActions:    []string{"Observar tendencias en el estado emocional"},
				EmotionalSupport:    []string{"Respetar la preferencia por la formalidad", "Ofrecer apoyo preventivo"},
				CommunicationTips:   []string{"Mantener un tono profesional pero cálido"},
				LongTermSuggestions: []string{},
			},
		},
		{
			name:     "normal joy",
			emotion:  domain.EmotionJoy,
			style:    domain.StyleAssertive,
			priority: domain.PriorityNormal,
			want: &domain.RecommendationBundle{
				ImmediateActions:    []string{"Celebrar y reforzar el estado positivo"},
				EmotionalSupport:    []string{"Aprovechar el momento para establecer metas"},
				CommunicationTips:   []string{},
				LongTermSuggestions: []string{"Documentar qué generó esta alegría"},
			},
		},
		{
			name:     "nothing matches",
			emotion:  "euforia",
			style:    "poético",
			priority: domain.PriorityNormal,
			want: &domain.RecommendationBundle{
				ImmediateActions:    []string{},
				EmotionalSupport:    []string{},
				CommunicationTips:   []string{},
				LongTermSuggestions: []string{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateRecommendations(tt.emotion, 0, tt.style, 0, tt.priority)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("GenerateRecommendations() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestGenerateRecommendationsDoesNotShareTables(t *testing.T) {
	first := GenerateRecommendations(domain.EmotionAnxiety, 0, domain.StyleAggressive, 0, domain.PriorityHigh)
	first.ImmediateActions[0] = "changed"
	first.CommunicationTips = append(first.CommunicationTips, "extra")

	second := GenerateRecommendations(domain.EmotionAnxiety, 0, domain.StyleAggressive, 0, domain.PriorityHigh)
	if second.ImmediateActions[0] != "⚠️ ATENCIÓN INMEDIATA REQUERIDA" {
		t.Errorf("ImmediateActions[0] = %q, want escalation marker", second.ImmediateActions[0])
	}
	if len(second.CommunicationTips) != 2 {
		t.Errorf("len(CommunicationTips) = %d, want 2", len(second.CommunicationTips))
	}
}

func TestGenerateSummary(t *testing.T) {
	tests := []struct {
		name   string
		result *domain.AnalysisResult
		want   *domain.SummaryBundle
	}{
		{
			name: "critical",
			result: &domain.AnalysisResult{
				Emotion: domain.EmotionFrustration, EmotionScore: 92.345,
				Style: domain.StyleEvasive, StyleScore: 70,
				Priority: domain.PriorityCritical, Alert: true,
			},
			want: &domain.SummaryBundle{
				Executive:    "🚨 SITUACIÓN CRÍTICA: El usuario presenta frustración con intensidad del 92.3% y estilo evasivo. INTERVENCIÓN INMEDIATA REQUERIDA.",
				Technical:    "Análisis técnico: Emoción dominante 'frustración' (confianza: 92.3%), estilo comunicativo 'evasivo' (confianza: 70.0%). Prioridad: crítica. Alerta: SÍ.",
				UserFriendly: "Tu mensaje refleja principalmente frustración y un estilo de comunicación evasivo. Es muy importante que sepas que estamos aquí para ayudarte. No dudes en buscar apoyo profesional si lo necesitas.",
			},
		},
		{
			name: "medium",
			result: &domain.AnalysisResult{
				Emotion: domain.EmotionWorry, EmotionScore: 66,
				Style: domain.StyleFormal, StyleScore: 40.25,
				Priority: domain.PriorityMedium,
			},
			want: &domain.SummaryBundle{
				Executive:    "📊 SITUACIÓN MODERADA: Estado emocional de preocupación (66.0%) con estilo formal. Monitoreo recomendado.",
				Technical:    "Análisis técnico: Emoción dominante 'preocupación' (confianza: 66.0%), estilo comunicativo 'formal' (confianza: 40.2%). Prioridad: media. Alerta: NO.",
				UserFriendly: "Tu mensaje refleja principalmente preocupación y un estilo de comunicación formal. Recuerda que es normal tener altibajos emocionales.",
			},
		},
		{
			name: "normal",
			result: &domain.AnalysisResult{
				Emotion: domain.EmotionNeutral, Style: domain.StyleNeutral, Priority: domain.PriorityNormal,
			},
			want: &domain.SummaryBundle{
				Executive:    "✅ ESTADO NORMAL: Emoción predominante neutro (0.0%) con estilo neutro. Continúa el apoyo regular.",
				Technical:    "Análisis técnico: Emoción dominante 'neutro' (confianza: 0.0%), estilo comunicativo 'neutro' (confianza: 0.0%). Prioridad: normal. Alerta: NO.",
				UserFriendly: "Tu mensaje refleja principalmente neutro y un estilo de comunicación neutro. Mantén esta comunicación abierta.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateSummary(tt.result)
			if got.Executive != tt.want.Executive {
				t.Errorf("Executive = %q, want %q", got.Executive, tt.want.Executive)
			}
			if got.Technical != tt.want.Technical {
				t.Errorf("Technical = %q, want %q", got.Technical, tt.want.Technical)
			}
			if got.UserFriendly != tt.want.UserFriendly {
				t.Errorf("UserFriendly = %q, want %q", got.UserFriendly, tt.want.UserFriendly)
			}
		})
	}
}

func TestGenerateInsights(t *testing.T) {
	got := GenerateInsights(&domain.AnalysisResult{
		Emotion: domain.EmotionSadness, EmotionScore: 81.25,
		Style: domain.StyleDistant, StyleScore: 55,
		Priority: domain.PriorityHigh, Alert: true,
	})

	want := &domain.DetailedInsights{
		EmotionalState:     "El usuario muestra un estado emocional de tristeza con una intensidad del 81.2%",
		CommunicationStyle: "Su estilo de comunicación es distante con una confianza del 55.0%",
		RiskAssessment:     "Nivel de prioridad: alta",
		AlertStatus:        "Requiere atención inmediata",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GenerateInsights() = %+v, want %+v", got, want)
	}
}
