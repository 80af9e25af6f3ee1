package http

import (
	"strings"

	"psichat_server/core/domain"
	"psichat_server/core/port/in"
	"psichat_server/pkg/apperr"
	"psichat_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ChatHandler handles the tutor conversation endpoint.
type ChatHandler struct {
	chat    in.ChatService
	limiter fiber.Handler
}

// NewChatHandler creates a new chat handler. limiter may be nil.
func NewChatHandler(chat in.ChatService, limiter fiber.Handler) *ChatHandler {
	return &ChatHandler{chat: chat, limiter: limiter}
}

// Register registers chat routes.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Get("/chat/history", h.History)
	if h.limiter != nil {
		router.Post("/chat", h.limiter, h.Chat)
		return
	}
	router.Post("/chat", h.Chat)
}

type chatRequest struct {
	UserText string `json:"user_text"`
	Texto    string `json:"texto"`
	Text     string `json:"text"`
}

func (r *chatRequest) text() string {
	switch {
	case r.UserText != "":
		return r.UserText
	case r.Texto != "":
		return r.Texto
	default:
		return r.Text
	}
}

// Chat analyses the user's message and answers with the tutor's reply.
// POST /chat
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	text := req.text()
	if strings.TrimSpace(text) == "" {
		return apperr.MissingField("user_text")
	}
	if len([]rune(text)) > maxTextLength {
		return apperr.InvalidInput("user_text", "text is too long")
	}

	reply, err := h.chat.Reply(c.UserContext(), userID, text)
	if err != nil {
		return err
	}
	return c.JSON(reply)
}

// History returns the caller's recent conversation, oldest message first.
// GET /chat/history
func (h *ChatHandler) History(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	limit := response.QueryLimit(c, "limit", defaultHistoryLimit, maxHistoryLimit)

	items, err := h.chat.History(c.UserContext(), userID, limit)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*domain.ChatHistoryItem{}
	}
	return c.JSON(items)
}
