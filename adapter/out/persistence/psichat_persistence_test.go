package persistence

import (
	"context"
	"reflect"
	"testing"
	"time"

	"psichat_server/core/domain"
	"psichat_server/core/port/out"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

func TestAnalysisRowRoundTrip(t *testing.T) {
	alert := true
	record := &domain.AnalysisRecord{
		ID:          7,
		MessageID:   uuid.New(),
		MessageText: "estoy agotado",
		CreatedAt:   time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC),
		Result: &domain.AnalysisResult{
			Emotion:      domain.EmotionSadness,
			EmotionScore: 60,
			EmotionDistribution: domain.Distribution{
				{Label: "tristeza", Score: 60},
				{Label: "neutro", Score: 25},
				{Label: "alegría", Score: 15},
			},
			Style:             domain.StyleAssertive,
			StyleScore:        55,
			StyleDistribution: domain.Distribution{{Label: "asertivo", Score: 55}, {Label: "evasivo", Score: 45}},
			Priority:          domain.PriorityLow,
			Alert:             true,
			AlertReason:       "Emoción 'tristeza' con intensidad 60% supera el umbral.",
			ContextAlert:      &alert,
			ContextRiskLevel:  domain.RiskHigh,
		},
	}

	row, err := newAnalysisRow(record)
	if err != nil {
		t.Fatalf("newAnalysisRow() error = %v", err)
	}
	if row.EmotionDistribution != `[["tristeza",60],["neutro",25],["alegría",15]]` {
		t.Errorf("EmotionDistribution = %s", row.EmotionDistribution)
	}

	got, err := row.toDomain()
	if err != nil {
		t.Fatalf("toDomain() error = %v", err)
	}
	record.Result.Text = record.MessageText
	if !reflect.DeepEqual(got, record) {
		t.Errorf("toDomain() = %+v, want %+v", got.Result, record.Result)
	}
}

func TestAnalysisRowOptionalColumns(t *testing.T) {
	row, err := newAnalysisRow(&domain.AnalysisRecord{Result: &domain.AnalysisResult{Priority: domain.PriorityNormal}})
	if err != nil {
		t.Fatalf("newAnalysisRow() error = %v", err)
	}
	if row.AlertReason.Valid || row.ContextAlert.Valid || row.ContextRiskLevel.Valid {
		t.Errorf("optional columns set on a plain reading: %+v", row)
	}
	if row.EmotionDistribution != "[]" {
		t.Errorf("EmotionDistribution = %q, want []", row.EmotionDistribution)
	}

	rec, err := row.toDomain()
	if err != nil {
		t.Fatalf("toDomain() error = %v", err)
	}
	if rec.Result.ContextAlert != nil || rec.Result.AlertReason != "" {
		t.Errorf("Result = %+v, want no context fields", rec.Result)
	}
}

func TestAnalysisRowBadDistribution(t *testing.T) {
	row := &analysisRow{EmotionDistribution: `{"not":"pairs"}`}
	if _, err := row.toDomain(); err == nil {
		t.Errorf("toDomain() error = nil, want decode error")
	}
}

func TestBuildAlertQuery(t *testing.T) {
	user := uuid.New()
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		filter    *out.TutorAlertFilter
		wantQuery string
		wantArgs  []any
	}{
		{
			name:      "no filter",
			filter:    nil,
			wantQuery: "SELECT id, user_id, message_id, emotion, emotion_score, style, priority, reason, context_alert, created_at FROM tutor_alerts ORDER BY created_at DESC LIMIT $1",
			wantArgs:  []any{50},
		},
		{
			name:      "all filters",
			filter:    &out.TutorAlertFilter{UserID: &user, MinPriority: domain.PriorityHigh, Since: &since, Limit: 5},
			wantQuery: "SELECT id, user_id, message_id, emotion, emotion_score, style, priority, reason, context_alert, created_at FROM tutor_alerts WHERE user_id = $1 AND priority = ANY($2) AND created_at >= $3 ORDER BY created_at DESC LIMIT $4",
			wantArgs:  []any{user, pq.Array([]string{"alta", "crítica"}), since, 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildAlertQuery(tt.filter)
			if query != tt.wantQuery {
				t.Errorf("query = %q\nwant    %q", query, tt.wantQuery)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %#v, want %#v", args, tt.wantArgs)
			}
		})
	}
}

func TestAtLeast(t *testing.T) {
	if got := AtLeast(domain.PriorityMedium); !reflect.DeepEqual(got, []domain.Priority{"media", "alta", "crítica"}) {
		t.Errorf("AtLeast(media) = %v", got)
	}
	if got := AtLeast("urgente"); got != nil {
		t.Errorf("AtLeast(urgente) = %v, want nil", got)
	}
}

func TestListByMessagesWithoutIDs(t *testing.T) {
	got, err := NewAnalysisAdapter(nil).ListByMessages(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListByMessages(nil) error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ListByMessages(nil) = %v, want empty map", got)
	}
}

func TestUUIDStrings(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	got := uuidStrings([]uuid.UUID{a, b})
	if len(got) != 2 || got[0] != a.String() || got[1] != b.String() {
		t.Errorf("uuidStrings() = %v", got)
	}
}
