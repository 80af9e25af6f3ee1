package bootstrap

import (
	"context"
	"strings"

	"psichat_server/adapter/in/http"
	"psichat_server/adapter/out/llm"
	"psichat_server/infra/database"
	"psichat_server/infra/middleware"
	"psichat_server/pkg/logger"
	"psichat_server/pkg/ratelimit"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// NewAPI builds the HTTP server. w is optional and only adds worker stats
// to /health when both run in one process.
func NewAPI(deps *Dependencies, w *Worker) (*fiber.App, func()) {
	cfg := deps.Config

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		ReadTimeout:           cfg.RequestTimeout,
		WriteTimeout:          cfg.RequestTimeout,

		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		BodyLimit:    1 * 1024 * 1024,
		ServerHeader: "",
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.RequestLogger())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	allowCredentials := true
	if allowOrigins == "" || allowOrigins == "*" {
		allowOrigins = "*"
		allowCredentials = false
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,X-Request-ID," + cfg.UserIDHeaderName,
		ExposeHeaders:    "X-Request-ID,X-RateLimit-Limit,X-RateLimit-Remaining,X-RateLimit-Reset",
		AllowCredentials: allowCredentials,
		MaxAge:           86400,
	}))

	// Health check (no identity required)
	health := http.NewHealthHandler(deps.SQLDB.DB).
		AddCheck("postgres", deps.DB.Ping)
	if deps.Redis != nil {
		health.AddCheck("redis", func(ctx context.Context) error {
			return deps.Redis.Ping(ctx).Err()
		})
	}
	if deps.MongoDB != nil {
		health.AddCheck("mongodb", func(ctx context.Context) error {
			return deps.MongoDB.Ping(ctx, nil)
		})
	}
	if deps.Neo4j != nil {
		health.AddCheck("neo4j", deps.Neo4j.VerifyConnectivity)
	}
	health.AddSection("pgx_pool", func() any { return database.GetPoolStats(deps.DB) })
	if client, ok := deps.ReplyGenerator.(*llm.Client); ok {
		health.AddSection("llm", func() any {
			return fiber.Map{"breaker_open": client.Open()}
		})
	}
	if w != nil {
		health.AddSection("workers", func() any { return w.Metrics() })
	}
	health.Register(app)

	api := app.Group("/api/v1", middleware.Identity(cfg.UserIDHeaderName))

	chatLimiter := middleware.NewRateLimiter(cfg.ChatRateLimit, cfg.ChatRateWindow)
	if deps.Redis != nil {
		chatLimiter.WithShared(ratelimit.NewSlidingWindow(deps.Redis, "psichat:ratelimit:chat", cfg.ChatRateLimit, cfg.ChatRateWindow))
	}

	http.NewAnalysisHandler(deps.AnalysisService).Register(api)
	http.NewChatHandler(deps.ChatService, chatLimiter.Handler()).Register(api)
	http.NewAlertHandler(deps.AlertService).Register(api)

	logger.Info("API routes registered (identity header %s, chat limit %d/%v)",
		cfg.UserIDHeaderName, cfg.ChatRateLimit, cfg.ChatRateWindow)

	return app, chatLimiter.Close
}
