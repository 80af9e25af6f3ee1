// Package http exposes the analysis, chat and alert services over fiber.
package http

import (
	"strings"

	"psichat_server/infra/middleware"
	"psichat_server/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// maxTextLength caps the text accepted by every scoring endpoint.
const maxTextLength = 5000

// GetUserID extracts the caller identity stored by the identity middleware.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return uuid.Nil, apperr.MissingIdentity(middleware.DefaultUserIDHeader)
	}
	return userID, nil
}

// textRequest is the body of the text scoring endpoints. "texto" is the
// field older clients send; "text" is accepted too.
type textRequest struct {
	Texto     string   `json:"texto"`
	Text      string   `json:"text"`
	Historial []string `json:"historial"`
	History   []string `json:"history"`
}

func (r *textRequest) text() string {
	if r.Texto != "" {
		return r.Texto
	}
	return r.Text
}

func (r *textRequest) history() []string {
	if len(r.History) > 0 {
		return r.History
	}
	return r.Historial
}

// parseText decodes a textRequest and validates its text. Blank text is an
// error only when required.
func parseText(c *fiber.Ctx, required bool) (string, []string, error) {
	var req textRequest
	if err := c.BodyParser(&req); err != nil {
		return "", nil, apperr.BadRequest("invalid request body")
	}

	text := req.text()
	if required && strings.TrimSpace(text) == "" {
		return "", nil, apperr.MissingField("texto")
	}
	if len([]rune(text)) > maxTextLength {
		return "", nil, apperr.InvalidInput("texto", "text is too long")
	}
	history, err := validHistory(&req)
	if err != nil {
		return "", nil, err
	}
	return text, history, nil
}

// validHistory returns the request history, rejecting entries longer than the text limit.
func validHistory(req *textRequest) ([]string, error) {
	history := req.history()
	for i, entry := range history {
		if len([]rune(entry)) > maxTextLength {
			return nil, apperr.InvalidInput("history", "entry is too long").WithDetail("index", i)
		}
	}
	return history, nil
}
