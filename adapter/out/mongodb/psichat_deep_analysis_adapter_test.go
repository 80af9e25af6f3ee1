package mongodb

import (
	"reflect"
	"testing"
	"time"

	"psichat_server/core/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

func TestDeepAnalysisDocumentRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	report := &domain.DeepAnalysis{
		UserID:                     uuid.New(),
		AverageEmotionDistribution: []domain.EmotionAverage{{Emotion: domain.EmotionJoy, Score: 0.475}},
		AverageStyleDistribution:   []domain.StyleAverage{{Style: domain.StyleAssertive, Score: 0.625}},
		EmotionTrends:              []domain.EmotionTrend{{Emotion: domain.EmotionJoy, Frequency: 1, Description: "x"}},
		StyleTrends:                []domain.StyleTrend{{Style: domain.StyleAssertive, Frequency: 1, Description: "y"}},
		Insights:                   []string{"a"},
		Recommendations:            []string{"b"},
		MessageCount:               2,
		AnalysisDate:               at,
		CreatedAt:                  at.Add(time.Second),
	}

	raw, err := bson.Marshal(toDocument(report))
	if err != nil {
		t.Fatalf("bson.Marshal() error = %v", err)
	}

	var doc deepAnalysisDocument
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("bson.Unmarshal() error = %v", err)
	}
	if doc.UserID != report.UserID.String() {
		t.Errorf("user_id = %q, want %q", doc.UserID, report.UserID)
	}

	got, err := doc.toDomain()
	if err != nil {
		t.Fatalf("toDomain() error = %v", err)
	}
	if !reflect.DeepEqual(got, report) {
		t.Errorf("toDomain() = %+v, want %+v", got, report)
	}
}

func TestDeepAnalysisDocumentBadUserID(t *testing.T) {
	doc := &deepAnalysisDocument{ID: "r1", UserID: "nope"}
	if _, err := doc.toDomain(); err == nil {
		t.Errorf("toDomain() error = nil, want parse error")
	}
}
