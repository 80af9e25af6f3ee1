// Package alert delivers analysis alerts to tutors and lists them back.
package alert

import (
	"context"

	"psichat_server/core/domain"
	"psichat_server/core/port/in"
	"psichat_server/core/port/out"
	"psichat_server/pkg/apperr"
	"psichat_server/pkg/logger"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	defaultTopLimit  = 5
)

type Service struct {
	repo  out.TutorAlertRepository
	graph out.EmotionGraph
}

var _ in.AlertService = (*Service)(nil)

// NewService creates an alert service. graph may be nil.
func NewService(repo out.TutorAlertRepository, graph out.EmotionGraph) *Service {
	return &Service{repo: repo, graph: graph}
}

// Deliver stores an alert for tutors and records it in the emotion graph.
// Only the tutor store is required to succeed.
func (s *Service) Deliver(ctx context.Context, event *domain.AlertEvent) error {
	if event == nil || event.ID == uuid.Nil {
		return apperr.ValidationFailed("alert event without id")
	}
	if err := s.repo.Save(ctx, event); err != nil {
		return apperr.DatabaseError("save tutor alert", err)
	}

	if s.graph != nil {
		if err := s.graph.RecordAlert(ctx, event); err != nil {
			logger.WithError(err).Warn("[AlertService] graph update failed for alert %s", event.ID)
		}
	}
	return nil
}

// ListAlerts returns delivered alerts, newest first.
func (s *Service) ListAlerts(ctx context.Context, req *in.ListAlertsRequest) ([]*domain.AlertEvent, error) {
	if req == nil {
		req = &in.ListAlertsRequest{}
	}
	if req.MinPriority != "" && !req.MinPriority.IsValid() {
		return nil, apperr.InvalidInput("min_priority", "must be one of normal, baja, media, alta, crítica")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	alerts, err := s.repo.List(ctx, &out.TutorAlertFilter{
		UserID:      req.UserID,
		MinPriority: req.MinPriority,
		Limit:       limit,
	})
	if err != nil {
		return nil, apperr.DatabaseError("list tutor alerts", err)
	}
	if alerts == nil {
		alerts = []*domain.AlertEvent{}
	}
	return alerts, nil
}

// TopEmotions returns the emotions that raised most alerts for a user.
func (s *Service) TopEmotions(ctx context.Context, userID uuid.UUID, limit int) ([]domain.EmotionCount, error) {
	if s.graph == nil {
		return []domain.EmotionCount{}, nil
	}
	if limit <= 0 {
		limit = defaultTopLimit
	}
	counts, err := s.graph.TopEmotions(ctx, userID, limit)
	if err != nil {
		return nil, apperr.DatabaseError("query emotion graph", err)
	}
	if counts == nil {
		counts = []domain.EmotionCount{}
	}
	return counts, nil
}
