package analysis

import (
	"context"
	"testing"

	"psichat_server/core/port/out"
)

func TestNormalizeFailOpen(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		classifier out.TextClassifier
	}{
		{"empty text", "", emotionStub()},
		{"whitespace text", "  \n\t ", emotionStub()},
		{"nil classifier", "hola", nil},
		{"classifier error", "hola", &stubClassifier{err: errClassifierDown}},
		{"empty output", "hola", &stubClassifier{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, score, dist := Normalize(context.Background(), tt.text, tt.classifier)
			if label != NeutralLabel {
				t.Errorf("label = %v, want %v", label, NeutralLabel)
			}
			if score != 0 {
				t.Errorf("score = %v, want 0", score)
			}
			if len(dist) != 1 || dist[0].Label != NeutralLabel || dist[0].Score != 0 {
				t.Errorf("dist = %v, want [(neutro, 0)]", dist)
			}
		})
	}
}

func TestNormalizeBlankTextSkipsClassifier(t *testing.T) {
	stub := emotionStub()
	Normalize(context.Background(), "   ", stub)
	if stub.calls.Load() != 0 {
		t.Errorf("classifier calls = %d, want 0", stub.calls.Load())
	}
}

func TestNormalizeSortsAndRounds(t *testing.T) {
	stub := &stubClassifier{fallback: probs("alegría", 0.123456, "frustración", 0.654321, "tristeza", 0.222223)}

	label, score, dist := Normalize(context.Background(), "texto", stub)

	if label != "frustración" {
		t.Errorf("label = %v, want frustración", label)
	}
	if score != 65.43 {
		t.Errorf("score = %v, want 65.43", score)
	}

	want := []struct {
		label string
		score float64
	}{
		{"frustración", 65.43},
		{"tristeza", 22.22},
		{"alegría", 12.35},
	}
	if len(dist) != len(want) {
		t.Fatalf("len(dist) = %d, want %d", len(dist), len(want))
	}
	for i, w := range want {
		if dist[i].Label != w.label || dist[i].Score != w.score {
			t.Errorf("dist[%d] = %v, want (%s, %v)", i, dist[i], w.label, w.score)
		}
	}
}

func TestNormalizeDominantIsFirst(t *testing.T) {
	stub := emotionStub()
	for text := range stub.responses {
		label, score, dist := Normalize(context.Background(), text, stub)
		if dist.Dominant().Label != label || dist.Dominant().Score != score {
			t.Errorf("%q: dominant = %v, want (%s, %v)", text, dist.Dominant(), label, score)
		}
		for i := 1; i < len(dist); i++ {
			if dist[i].Score > dist[i-1].Score {
				t.Errorf("%q: dist not sorted at %d: %v", text, i, dist)
			}
		}
	}
}

func TestNormalizeTiesKeepModelOrder(t *testing.T) {
	stub := &stubClassifier{fallback: probs("ansiedad", 0.25, "tristeza", 0.25, "ira", 0.5)}

	_, _, dist := Normalize(context.Background(), "texto", stub)

	got := []string{dist[0].Label, dist[1].Label, dist[2].Label}
	want := []string{"ira", "ansiedad", "tristeza"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("order = %v, want %v", got, want)
			break
		}
	}
}
