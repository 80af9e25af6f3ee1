// Package response writes the JSON bodies shared by every handler.
package response

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// =============================================================================
// Bodies
// =============================================================================

// ErrorBody is the JSON body of every failed request.
type ErrorBody struct {
	Success   bool       `json:"success"`
	Error     *ErrorInfo `json:"error"`
	RequestID string     `json:"request_id,omitempty"`
	Timestamp string     `json:"timestamp"`
}

// ErrorInfo contains error details.
type ErrorInfo struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// List wraps a collection.
type List[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
	Limit int `json:"limit,omitempty"`
}

// =============================================================================
// Builders
// =============================================================================

// Items writes a collection. A nil slice is written as [].
func Items[T any](c *fiber.Ctx, items []T, limit int) error {
	if items == nil {
		items = []T{}
	}
	return c.JSON(List[T]{Items: items, Count: len(items), Limit: limit})
}

// Error writes an error body with the request id set by the request id middleware.
func Error(c *fiber.Ctx, status int, code, message string, details map[string]any) error {
	requestID, _ := c.Locals("request_id").(string)
	return c.Status(status).JSON(ErrorBody{
		Success:   false,
		Error:     &ErrorInfo{Code: code, Message: message, Details: details},
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// =============================================================================
// Query helpers
// =============================================================================

// QueryLimit reads an integer limit from the query string. Missing or
// non-positive values take def, values above max are clamped.
func QueryLimit(c *fiber.Ctx, key string, def, max int) int {
	limit := c.QueryInt(key, def)
	if limit <= 0 {
		limit = def
	}
	if max > 0 && limit > max {
		limit = max
	}
	return limit
}
