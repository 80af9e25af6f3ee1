package http

import (
	"psichat_server/core/domain"
	"psichat_server/core/port/in"
	"psichat_server/pkg/apperr"
	"psichat_server/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	defaultAlertLimit   = 50
	maxAlertLimit       = 200
	defaultEmotionLimit = 5
	maxEmotionLimit     = 20
)

// AlertHandler serves the tutor alert listings.
type AlertHandler struct {
	alerts in.AlertService
}

// NewAlertHandler creates a new alert handler.
func NewAlertHandler(alerts in.AlertService) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// Register registers alert routes.
func (h *AlertHandler) Register(router fiber.Router) {
	alerts := router.Group("/alerts")
	alerts.Get("/", h.ListAlerts)
	alerts.Get("/emotions", h.TopEmotions)
}

// ListAlerts returns stored tutor alerts, newest first.
// GET /alerts?user_id=&min_priority=alta&limit=50
func (h *AlertHandler) ListAlerts(c *fiber.Ctx) error {
	req := &in.ListAlertsRequest{
		Limit: response.QueryLimit(c, "limit", defaultAlertLimit, maxAlertLimit),
	}

	if raw := c.Query("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return apperr.InvalidInput("user_id", "must be a uuid")
		}
		req.UserID = &userID
	}
	if raw := c.Query("min_priority"); raw != "" {
		p := domain.Priority(raw)
		if !p.IsValid() {
			return apperr.InvalidInput("min_priority", "unknown priority")
		}
		req.MinPriority = p
	}

	alerts, err := h.alerts.ListAlerts(c.UserContext(), req)
	if err != nil {
		return err
	}
	return response.Items(c, alerts, req.Limit)
}

// TopEmotions returns the emotions most often behind a user's alerts.
// GET /alerts/emotions?user_id=&limit=5
func (h *AlertHandler) TopEmotions(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	if raw := c.Query("user_id"); raw != "" {
		if userID, err = uuid.Parse(raw); err != nil {
			return apperr.InvalidInput("user_id", "must be a uuid")
		}
	}
	limit := response.QueryLimit(c, "limit", defaultEmotionLimit, maxEmotionLimit)

	counts, err := h.alerts.TopEmotions(c.UserContext(), userID, limit)
	if err != nil {
		return err
	}
	return response.Items(c, counts, limit)
}
