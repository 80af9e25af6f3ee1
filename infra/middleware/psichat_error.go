// Package middleware holds the fiber middleware stack of the API.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"psichat_server/pkg/apperr"
	"psichat_server/pkg/logger"
	"psichat_server/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ErrorHandler is the centralized error handler for Fiber.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		requestID, _ := c.Locals("request_id").(string)

		if errors.Is(err, context.DeadlineExceeded) && !apperr.IsAppError(err) {
			err = apperr.Timeout(c.Path()).WithError(err)
		}

		var appErr *apperr.AppError
		var fiberErr *fiber.Error

		switch {
		case errors.As(err, &appErr):
			log := logger.WithField("request_id", requestID).
				WithField("error_code", appErr.Code)
			if appErr.Err != nil {
				log = log.WithError(appErr.Err)
			}
			if appErr.Status >= 500 {
				log.Error("Internal error: %s", appErr.Message)
			} else {
				log.Warn("Client error: %s", appErr.Message)
			}
			return response.Error(c, appErr.Status, appErr.Code, appErr.Message, appErr.Details)

		case errors.As(err, &fiberErr):
			return response.Error(c, fiberErr.Code, mapHTTPStatusToCode(fiberErr.Code), fiberErr.Message, nil)

		default:
			logger.WithField("request_id", requestID).
				WithError(err).
				Error("Unexpected error: %s", err.Error())
			return response.Error(c, fiber.StatusInternalServerError, apperr.CodeInternalError, "An unexpected error occurred", nil)
		}
	}
}

// RequestID adds a unique request ID to each request and to its context.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Locals("request_id", requestID)
		c.Set("X-Request-ID", requestID)
		c.SetUserContext(logger.ContextWithRequestID(c.UserContext(), requestID))
		return c.Next()
	}
}

// RequestLogger logs every request with its status and duration.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()
		if err != nil {
			// Run the error handler now so the logged status is the one sent.
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
			err = nil
		}

		requestID, _ := c.Locals("request_id").(string)
		status := c.Response().StatusCode()
		log := logger.WithFields(map[string]any{
			"request_id":  requestID,
			"method":      c.Method(),
			"path":        c.Path(),
			"status":      status,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"ip":          c.IP(),
		})
		if uid, ok := c.Locals("user_id").(uuid.UUID); ok {
			log = log.WithField("user_id", uid.String())
		}

		switch {
		case status >= 500:
			log.Error("Request failed: %s %s -> %d", c.Method(), c.Path(), status)
		case status >= 400:
			log.Warn("Request error: %s %s -> %d", c.Method(), c.Path(), status)
		default:
			log.Info("Request completed: %s %s -> %d", c.Method(), c.Path(), status)
		}
		return err
	}
}

// Recover turns panics into a 500 response.
func Recover() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				requestID, _ := c.Locals("request_id").(string)
				logger.WithFields(map[string]any{
					"request_id": requestID,
					"panic":      fmt.Sprintf("%v", r),
					"path":       c.Path(),
					"method":     c.Method(),
					"stack":      string(debug.Stack()),
				}).Error("Panic recovered")

				err = response.Error(c, fiber.StatusInternalServerError, apperr.CodeInternalError, "An unexpected error occurred", nil)
			}
		}()
		return c.Next()
	}
}

func mapHTTPStatusToCode(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return apperr.CodeBadRequest
	case fiber.StatusNotFound:
		return apperr.CodeNotFound
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case fiber.StatusTooManyRequests:
		return apperr.CodeRateLimited
	case fiber.StatusRequestTimeout, fiber.StatusGatewayTimeout:
		return apperr.CodeTimeout
	case fiber.StatusInternalServerError:
		return apperr.CodeInternalError
	case fiber.StatusBadGateway, fiber.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "UNKNOWN_ERROR"
	}
}
