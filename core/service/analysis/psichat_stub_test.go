package analysis

import (
	"context"
	"errors"
	"sync/atomic"

	"psichat_server/core/port/out"
)

var errClassifierDown = errors.New("classifier down")

// stubClassifier answers from a fixed table of texts. Unknown texts get fallback.
type stubClassifier struct {
	name      string
	responses map[string][]out.LabelProbability
	fallback  []out.LabelProbability
	err       error
	calls     atomic.Int32
}

func (s *stubClassifier) Name() string { return s.name }

func (s *stubClassifier) Classify(_ context.Context, text string) ([]out.LabelProbability, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	if r, ok := s.responses[text]; ok {
		return r, nil
	}
	return s.fallback, nil
}

// probs builds a classifier output from label/probability pairs.
func probs(pairs ...any) []out.LabelProbability {
	res := make([]out.LabelProbability, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		res = append(res, out.LabelProbability{Label: pairs[i].(string), Probability: pairs[i+1].(float64)})
	}
	return res
}

// emotionStub recognises a few canned messages.
func emotionStub() *stubClassifier {
	return &stubClassifier{
		name: "emotion",
		responses: map[string][]out.LabelProbability{
			"estoy muy frustrado con todo": probs("alegría", 0.05, "frustración", 0.85, "tristeza", 0.10),
			"me rindo, no puedo más":       probs("alegría", 0.02, "frustración", 0.78, "tristeza", 0.20),
			"estoy agotado":                probs("alegría", 0.10, "frustración", 0.30, "tristeza", 0.60),
			"hoy fue un gran día":          probs("alegría", 0.90, "frustración", 0.05, "tristeza", 0.05),
		},
		fallback: probs("alegría", 0.34, "frustración", 0.33, "tristeza", 0.33),
	}
}

// styleStub recognises the same canned messages.
func styleStub() *stubClassifier {
	return &stubClassifier{
		name: "style",
		responses: map[string][]out.LabelProbability{
			"estoy muy frustrado con todo": probs("asertivo", 0.30, "evasivo", 0.70),
			"me rindo, no puedo más":       probs("asertivo", 0.20, "evasivo", 0.80),
			"estoy agotado":                probs("asertivo", 0.55, "evasivo", 0.45),
			"hoy fue un gran día":          probs("asertivo", 0.95, "evasivo", 0.05),
		},
		fallback: probs("asertivo", 0.50, "evasivo", 0.50),
	}
}
