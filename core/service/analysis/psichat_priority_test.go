package analysis

import (
	"testing"

	"psichat_server/core/domain"
)

func TestEvaluatePriority(t *testing.T) {
	tests := []struct {
		name         string
		emotion      domain.Emotion
		emotionScore float64
		style        domain.Style
		styleScore   float64
		context      domain.RiskLevel
		want         domain.Priority
	}{
		{"extreme frustration overrides style", domain.EmotionFrustration, 95, domain.StyleAssertive, 50, domain.RiskNormal, domain.PriorityCritical},
		{"frustration above threshold", domain.EmotionFrustration, 80, domain.StyleAssertive, 50, domain.RiskNormal, domain.PriorityHigh},
		{"frustration within margin", domain.EmotionFrustration, 65, domain.StyleAssertive, 50, domain.RiskNormal, domain.PriorityMedium},
		{"frustration below margin", domain.EmotionFrustration, 64.99, domain.StyleAssertive, 50, domain.RiskNormal, domain.PriorityNormal},
		{"medium emotion above threshold", domain.EmotionWorry, 65, domain.StyleNeutral, 0, domain.RiskNormal, domain.PriorityMedium},
		{"medium emotion within margin", domain.EmotionWorry, 50, domain.StyleNeutral, 0, domain.RiskNormal, domain.PriorityLow},
		{"medium emotion below margin", domain.EmotionWorry, 49, domain.StyleNeutral, 0, domain.RiskNormal, domain.PriorityNormal},
		{"high emotion and high style", domain.EmotionSadness, 80, domain.StyleEvasive, 65, domain.RiskNormal, domain.PriorityCritical},
		{"medium style only", domain.EmotionNeutral, 0, domain.StyleFormal, 80, domain.RiskNormal, domain.PriorityMedium},
		{"medium emotion plus medium style", domain.EmotionConfusion, 45, domain.StyleDistant, 55, domain.RiskNormal, domain.PriorityMedium},
		{"high context adds one tier", domain.EmotionFrustration, 80, domain.StyleAssertive, 50, domain.RiskHigh, domain.PriorityCritical},
		{"medium context adds half", domain.EmotionWorry, 65, domain.StyleNeutral, 0, domain.RiskMedium, domain.PriorityMedium},
		{"partial credit with medium context", domain.EmotionWorry, 50, domain.StyleSarcastic, 50, domain.RiskMedium, domain.PriorityMedium},
		{"context alone", domain.EmotionJoy, 99, domain.StyleAssertive, 99, domain.RiskHigh, domain.PriorityLow},
		{"extreme anxiety", domain.EmotionAnxiety, 85, domain.StyleNeutral, 0, domain.RiskNormal, domain.PriorityCritical},
		{"extreme sadness needs 95", domain.EmotionSadness, 94.99, domain.StyleNeutral, 0, domain.RiskNormal, domain.PriorityHigh},
		{"extreme discouragement", domain.EmotionDiscouragement, 90, domain.StyleNeutral, 0, domain.RiskNormal, domain.PriorityCritical},
		{"anger has no extreme override", domain.EmotionAnger, 100, domain.StyleNeutral, 0, domain.RiskNormal, domain.PriorityHigh},
		{"uppercase labels", "FRUSTRACIÓN", 80, "Evasivo", 65, domain.RiskNormal, domain.PriorityCritical},
		{"unknown labels", "euforia", 100, "poético", 100, domain.RiskNormal, domain.PriorityNormal},
		{"neutral reading", domain.EmotionNeutral, 0, domain.StyleNeutral, 0, domain.RiskNormal, domain.PriorityNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluatePriority(tt.emotion, tt.emotionScore, tt.style, tt.styleScore, tt.context)
			if got != tt.want {
				t.Errorf("EvaluatePriority() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluatePriorityMonotone(t *testing.T) {
	emotions := []domain.Emotion{
		domain.EmotionFrustration, domain.EmotionSadness, domain.EmotionAnxiety, domain.EmotionDiscouragement,
		domain.EmotionAnger, domain.EmotionDespair, domain.EmotionLoneliness, domain.EmotionWorry,
		domain.EmotionConfusion, domain.EmotionInsecurity, domain.EmotionNostalgia, domain.EmotionJoy,
	}
	styles := []domain.Style{
		domain.StyleEvasive, domain.StylePassiveAggr, domain.StyleAggressive, domain.StyleDefensive,
		domain.StyleFormal, domain.StyleDistant, domain.StyleSarcastic, domain.StyleAssertive,
	}
	contexts := []domain.RiskLevel{domain.RiskNormal, domain.RiskMedium, domain.RiskHigh}

	for _, c := range contexts {
		for _, e := range emotions {
			for _, s := range styles {
				for _, fixed := range []float64{0, 50, 62, 75, 100} {
					prevE, prevS := -1, -1
					for score := 0.0; score <= 100; score += 0.5 {
						pe := EvaluatePriority(e, score, s, fixed, c)
						ps := EvaluatePriority(e, fixed, s, score, c)
						if !pe.IsValid() || !ps.IsValid() {
							t.Fatalf("invalid tier for %s/%s at %v", e, s, score)
						}
						if pe.Rank() < prevE {
							t.Errorf("tier dropped for emotion %s at %v (style %s=%v, context %s)", e, score, s, fixed, c)
						}
						if ps.Rank() < prevS {
							t.Errorf("tier dropped for style %s at %v (emotion %s=%v, context %s)", s, score, e, fixed, c)
						}
						prevE, prevS = pe.Rank(), ps.Rank()
					}
				}
			}
		}
	}
}

func TestPriorityRank(t *testing.T) {
	for i := 1; i < len(domain.Priorities); i++ {
		if domain.Priorities[i].Rank() <= domain.Priorities[i-1].Rank() {
			t.Errorf("%s should rank above %s", domain.Priorities[i], domain.Priorities[i-1])
		}
	}
	if domain.Priority("urgente").IsValid() {
		t.Errorf("IsValid(urgente) = true, want false")
	}
}
