package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"psichat_server/config"
	"psichat_server/internal/bootstrap"
	"psichat_server/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	// Initialize logger early
	logger.Init(logger.Config{
		Level:   logger.LevelInfo,
		Service: "psichat",
	})

	// Load .env file if exists (for local development)
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	mode := flag.String("mode", "all", "Run mode: api, worker, all")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	level := logger.ParseLevel(cfg.LogLevel)
	if cfg.IsDevelopment() && level > logger.LevelDebug {
		level = logger.LevelDebug
	}
	logger.Init(logger.Config{
		Level:   level,
		Service: "psichat-" + *mode,
	})

	deps, cleanup, err := bootstrap.NewDependencies(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize dependencies: %v", err)
	}
	defer cleanup()

	switch *mode {
	case "api":
		runAPI(deps, nil)
	case "worker":
		runWorker(deps)
	case "all":
		w, err := bootstrap.NewWorker(deps)
		if err != nil {
			logger.Warn("Alert worker disabled: %v", err)
			runAPI(deps, nil)
			return
		}
		go func() {
			if err := w.Start(); err != nil {
				logger.Error("Alert worker failed: %v", err)
			}
		}()
		defer w.Stop(cfg.ShutdownTimeout)
		runAPI(deps, w)
	default:
		logger.Fatal("Unknown mode: %s", *mode)
	}
}

func runAPI(deps *bootstrap.Dependencies, w *bootstrap.Worker) {
	cfg := deps.Config
	app, closeAPI := bootstrap.NewAPI(deps, w)
	defer closeAPI()

	// Graceful shutdown with timeout
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down API server (timeout: %v)...", cfg.ShutdownTimeout)
		if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
			logger.Error("Error shutting down: %v", err)
		} else {
			logger.Info("API server shut down gracefully")
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("Starting API server on %s", addr)
	if err := app.Listen(addr); err != nil {
		logger.Error("Server stopped: %v", err)
	}
}

func runWorker(deps *bootstrap.Dependencies) {
	cfg := deps.Config
	w, err := bootstrap.NewWorker(deps)
	if err != nil {
		logger.Fatal("Failed to initialize worker: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		logger.Info("Shutting down worker (timeout: %v)...", cfg.ShutdownTimeout)
		w.Stop(cfg.ShutdownTimeout)
		logger.Info("Worker shut down")
	}()

	logger.Info("Starting worker...")
	if err := w.Start(); err != nil {
		logger.Error("Worker failed: %v", err)
	}
	// Start also returns when the consumer dies; release the stop path.
	stop()
	<-stopped
}
