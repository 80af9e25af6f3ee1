package http

import (
	"psichat_server/core/domain"
	"psichat_server/core/port/in"
	"psichat_server/pkg/apperr"
	"psichat_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// AnalysisHandler handles the emotion and style analysis endpoints.
type AnalysisHandler struct {
	analysis in.AnalysisService
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(analysis in.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysis: analysis}
}

// Register registers analysis routes.
func (h *AnalysisHandler) Register(router fiber.Router) {
	analysis := router.Group("/analysis")

	// Stateless scoring
	analysis.Post("/", h.Analyze)
	analysis.Post("/context", h.AnalyzeContext)
	analysis.Post("/priority", h.EvaluatePriority)
	analysis.Post("/alert", h.CheckAlert)

	// Stored analyses
	analysis.Post("/complete", h.AnalyzeComplete)
	analysis.Get("/last", h.LastAnalysis)
	analysis.Get("/history", h.History)
	analysis.Get("/deep", h.DeepAnalysis)
	analysis.Get("/deep/last", h.LastDeepAnalysis)
}

// =============================================================================
// Stateless scoring
// =============================================================================

// Analyze scores one text, with the optional history as context. Empty text
// yields the neutral reading.
// POST /analysis
func (h *AnalysisHandler) Analyze(c *fiber.Ctx) error {
	text, history, err := parseText(c, false)
	if err != nil {
		return err
	}

	result, err := h.analysis.AnalyzeText(c.UserContext(), text, history)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// AnalyzeContext summarizes a conversation history.
// POST /analysis/context
func (h *AnalysisHandler) AnalyzeContext(c *fiber.Ctx) error {
	var req textRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	history, err := validHistory(&req)
	if err != nil {
		return err
	}

	summary, err := h.analysis.AnalyzeContext(c.UserContext(), history)
	if err != nil {
		return err
	}
	return c.JSON(summary)
}

// EvaluatePriority maps an already classified reading to a priority tier.
// POST /analysis/priority
func (h *AnalysisHandler) EvaluatePriority(c *fiber.Ctx) error {
	req, err := parsePriorityRequest(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"priority": h.analysis.EvaluatePriority(req),
	})
}

// CheckAlert reports whether an already classified reading raises an alert.
// POST /analysis/alert
func (h *AnalysisHandler) CheckAlert(c *fiber.Ctx) error {
	req, err := parsePriorityRequest(c)
	if err != nil {
		return err
	}
	alert, reason := h.analysis.CheckAlert(req)
	return c.JSON(fiber.Map{
		"alert":        alert,
		"alert_reason": reason,
	})
}

func parsePriorityRequest(c *fiber.Ctx) (*in.PriorityRequest, error) {
	var req in.PriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, apperr.BadRequest("invalid request body")
	}
	if req.Emotion == "" {
		return nil, apperr.MissingField("emotion")
	}
	if req.Style == "" {
		return nil, apperr.MissingField("style")
	}
	if req.EmotionScore < 0 || req.EmotionScore > 100 {
		return nil, apperr.InvalidInput("emotion_score", "must be between 0 and 100")
	}
	if req.StyleScore < 0 || req.StyleScore > 100 {
		return nil, apperr.InvalidInput("style_score", "must be between 0 and 100")
	}
	switch req.ContextRisk {
	case "", domain.RiskNormal, domain.RiskMedium, domain.RiskHigh:
	default:
		return nil, apperr.InvalidInput("context_risk", "must be normal, medio or alto")
	}
	return &req, nil
}

// =============================================================================
// Stored analyses
// =============================================================================

// AnalyzeComplete runs the full analysis and stores it for the matching message.
// POST /analysis/complete
func (h *AnalysisHandler) AnalyzeComplete(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	text, history, err := parseText(c, true)
	if err != nil {
		return err
	}

	result, err := h.analysis.AnalyzeComplete(c.UserContext(), userID, text, history)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// LastAnalysis returns the newest stored analysis of the caller.
// GET /analysis/last
func (h *AnalysisHandler) LastAnalysis(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	result, err := h.analysis.LastAnalysis(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// History lists the caller's stored analyses, newest first.
// GET /analysis/history?limit=20
func (h *AnalysisHandler) History(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	limit := response.QueryLimit(c, "limit", defaultHistoryLimit, maxHistoryLimit)

	items, err := h.analysis.History(c.UserContext(), userID, limit)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*domain.AnalysisHistoryItem{}
	}
	return c.JSON(items)
}

// DeepAnalysis aggregates the caller's recent messages into a report.
// GET /analysis/deep
func (h *AnalysisHandler) DeepAnalysis(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	report, err := h.analysis.DeepAnalysis(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(report)
}

// LastDeepAnalysis returns the newest archived deep analysis report.
// GET /analysis/deep/last
func (h *AnalysisHandler) LastDeepAnalysis(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	report, err := h.analysis.LastDeepAnalysis(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(report)
}
