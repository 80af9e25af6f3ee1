package alert

import (
	"context"
	"errors"
	"testing"

	"psichat_server/core/domain"
	"psichat_server/core/port/in"
	"psichat_server/core/port/out"
	"psichat_server/pkg/apperr"

	"github.com/google/uuid"
)

type memAlerts struct {
	saved   []*domain.AlertEvent
	filters []*out.TutorAlertFilter
	err     error
}

func (m *memAlerts) Save(_ context.Context, e *domain.AlertEvent) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, e)
	return nil
}

func (m *memAlerts) List(_ context.Context, f *out.TutorAlertFilter) ([]*domain.AlertEvent, error) {
	m.filters = append(m.filters, f)
	if m.err != nil {
		return nil, m.err
	}
	var res []*domain.AlertEvent
	for i := len(m.saved) - 1; i >= 0 && len(res) < f.Limit; i-- {
		e := m.saved[i]
		if f.UserID != nil && e.UserID != *f.UserID {
			continue
		}
		if f.MinPriority != "" && e.Priority.Rank() < f.MinPriority.Rank() {
			continue
		}
		res = append(res, e)
	}
	return res, nil
}

type memGraph struct {
	recorded []*domain.AlertEvent
	err      error
}

func (g *memGraph) RecordAlert(_ context.Context, e *domain.AlertEvent) error {
	if g.err != nil {
		return g.err
	}
	g.recorded = append(g.recorded, e)
	return nil
}

func (g *memGraph) TopEmotions(_ context.Context, userID uuid.UUID, limit int) ([]domain.EmotionCount, error) {
	counts := map[domain.Emotion]int64{}
	for _, e := range g.recorded {
		if e.UserID == userID {
			counts[e.Emotion]++
		}
	}
	var res []domain.EmotionCount
	for emotion, n := range counts {
		res = append(res, domain.EmotionCount{Emotion: emotion, Count: n})
	}
	return res, g.err
}

func event(user uuid.UUID, p domain.Priority) *domain.AlertEvent {
	return &domain.AlertEvent{ID: uuid.New(), UserID: user, Emotion: domain.EmotionFrustration, Priority: p}
}

func TestDeliver(t *testing.T) {
	repo, graph := &memAlerts{}, &memGraph{}
	svc := NewService(repo, graph)
	e := event(uuid.New(), domain.PriorityHigh)

	if err := svc.Deliver(context.Background(), e); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if len(repo.saved) != 1 || len(graph.recorded) != 1 {
		t.Errorf("saved = %d, recorded = %d, want 1 and 1", len(repo.saved), len(graph.recorded))
	}
}

func TestDeliverErrors(t *testing.T) {
	tests := []struct {
		name     string
		repoErr  error
		graphErr error
		event    *domain.AlertEvent
		wantCode string
	}{
		{name: "missing id", event: &domain.AlertEvent{}, wantCode: apperr.CodeValidationFailed},
		{name: "store down", repoErr: errors.New("pg down"), event: event(uuid.New(), domain.PriorityHigh), wantCode: apperr.CodeDatabaseError},
		{name: "graph down is tolerated", graphErr: errors.New("neo4j down"), event: event(uuid.New(), domain.PriorityHigh)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&memAlerts{err: tt.repoErr}, &memGraph{err: tt.graphErr})
			err := svc.Deliver(context.Background(), tt.event)
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("Deliver() error = %v, want nil", err)
				}
				return
			}
			if apperr.AsAppError(err).Code != tt.wantCode {
				t.Errorf("Deliver() error = %v, want %s", err, tt.wantCode)
			}
		})
	}
}

func TestListAlerts(t *testing.T) {
	repo := &memAlerts{}
	svc := NewService(repo, nil)
	ana, ben := uuid.New(), uuid.New()
	for _, e := range []*domain.AlertEvent{
		event(ana, domain.PriorityLow),
		event(ana, domain.PriorityCritical),
		event(ben, domain.PriorityHigh),
	} {
		if err := svc.Deliver(context.Background(), e); err != nil {
			t.Fatalf("Deliver() error = %v", err)
		}
	}

	got, err := svc.ListAlerts(context.Background(), &in.ListAlertsRequest{MinPriority: domain.PriorityHigh})
	if err != nil {
		t.Fatalf("ListAlerts() error = %v", err)
	}
	if len(got) != 2 || got[0].UserID != ben {
		t.Errorf("ListAlerts(alta) = %d alerts, want 2 newest first", len(got))
	}

	got, _ = svc.ListAlerts(context.Background(), &in.ListAlertsRequest{UserID: &ana})
	if len(got) != 2 {
		t.Errorf("ListAlerts(user) = %d alerts, want 2", len(got))
	}

	if _, err := svc.ListAlerts(context.Background(), nil); err != nil {
		t.Errorf("ListAlerts(nil) error = %v", err)
	}
	if f := repo.filters[len(repo.filters)-1]; f.Limit != defaultListLimit {
		t.Errorf("Limit = %d, want %d", f.Limit, defaultListLimit)
	}

	_, _ = svc.ListAlerts(context.Background(), &in.ListAlertsRequest{Limit: 10_000})
	if f := repo.filters[len(repo.filters)-1]; f.Limit != maxListLimit {
		t.Errorf("Limit = %d, want %d", f.Limit, maxListLimit)
	}
}

func TestListAlertsRejectsUnknownPriority(t *testing.T) {
	svc := NewService(&memAlerts{}, nil)

	_, err := svc.ListAlerts(context.Background(), &in.ListAlertsRequest{MinPriority: "urgente"})
	if apperr.AsAppError(err).Code != apperr.CodeInvalidInput {
		t.Errorf("ListAlerts() error = %v, want INVALID_INPUT", err)
	}
}

func TestListAlertsEmpty(t *testing.T) {
	got, err := NewService(&memAlerts{}, nil).ListAlerts(context.Background(), &in.ListAlertsRequest{})
	if err != nil || got == nil || len(got) != 0 {
		t.Errorf("ListAlerts() = (%v, %v), want empty non-nil slice", got, err)
	}
}

func TestTopEmotions(t *testing.T) {
	graph := &memGraph{}
	svc := NewService(&memAlerts{}, graph)
	user := uuid.New()
	for i := 0; i < 3; i++ {
		_ = svc.Deliver(context.Background(), event(user, domain.PriorityHigh))
	}

	got, err := svc.TopEmotions(context.Background(), user, 0)
	if err != nil {
		t.Fatalf("TopEmotions() error = %v", err)
	}
	if len(got) != 1 || got[0].Emotion != domain.EmotionFrustration || got[0].Count != 3 {
		t.Errorf("TopEmotions() = %+v", got)
	}

	none, err := NewService(&memAlerts{}, nil).TopEmotions(context.Background(), user, 3)
	if err != nil || len(none) != 0 {
		t.Errorf("TopEmotions(no graph) = (%v, %v), want empty", none, err)
	}
}
