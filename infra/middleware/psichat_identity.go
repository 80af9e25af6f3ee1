package middleware

import (
	"strings"

	"psichat_server/pkg/apperr"
	"psichat_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// DefaultUserIDHeader carries the caller identity set by the upstream gateway.
const DefaultUserIDHeader = "X-User-ID"

// Identity requires a UUID user id in header and stores it in Locals("user_id").
// Authentication happens upstream; the header is trusted as is.
func Identity(header string) fiber.Handler {
	if header == "" {
		header = DefaultUserIDHeader
	}
	return func(c *fiber.Ctx) error {
		raw := strings.TrimSpace(c.Get(header))
		if raw == "" {
			return apperr.MissingIdentity(header)
		}
		userID, err := uuid.Parse(raw)
		if err != nil || userID == uuid.Nil {
			return apperr.MissingIdentity(header)
		}

		c.Locals("user_id", userID)
		c.SetUserContext(logger.ContextWithUserID(c.UserContext(), userID.String()))
		return c.Next()
	}
}

// UserID returns the identity stored by Identity.
func UserID(c *fiber.Ctx) (uuid.UUID, bool) {
	userID, ok := c.Locals("user_id").(uuid.UUID)
	return userID, ok
}
