package http

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"psichat_server/pkg/metrics"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// HealthHandler serves liveness, readiness and runtime stats.
type HealthHandler struct {
	checks   map[string]HealthCheck
	sqlDB    *sql.DB
	sections map[string]func() any
}

// NewHealthHandler creates a health handler. sqlDB may be nil.
func NewHealthHandler(sqlDB *sql.DB) *HealthHandler {
	return &HealthHandler{
		checks:   make(map[string]HealthCheck),
		sqlDB:    sqlDB,
		sections: make(map[string]func() any),
	}
}

// AddCheck registers a readiness check. Nil checks are ignored.
func (h *HealthHandler) AddCheck(name string, check HealthCheck) *HealthHandler {
	if check != nil {
		h.checks[name] = check
	}
	return h
}

// AddSection adds a named block of runtime stats to /health.
func (h *HealthHandler) AddSection(name string, stats func() any) *HealthHandler {
	if stats != nil {
		h.sections[name] = stats
	}
	return h
}

func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
	router.Get("/ready", h.Ready)
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	latency := make(map[string]any)
	for name, stats := range metrics.GlobalRegistry().AllStats() {
		latency[name] = stats.ToMap()
	}
	body["latency"] = latency

	if h.sqlDB != nil {
		body["db_pool"] = metrics.DBPoolHealth(h.sqlDB)
	}
	for name, stats := range h.sections {
		body[name] = stats()
	}
	return c.JSON(body)
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	allHealthy := true
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			checks[name] = "healthy"
		}
	}

	status := "ready"
	statusCode := fiber.StatusOK
	if !allHealthy {
		status = "not ready"
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
