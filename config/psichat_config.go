package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// generateWorkerID creates a unique consumer name using hostname and PID
func generateWorkerID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "psichat"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// Database
	DatabaseURL string
	MongoDBURL  string
	MongoDBName string
	RedisURL    string
	AutoMigrate bool

	// Neo4j
	Neo4jURL      string
	Neo4jUsername string
	Neo4jPassword string
	Neo4jDatabase string

	// LLM (tutor replies)
	OpenAIAPIKey   string
	LLMBaseURL     string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTopP        float64
	LLMTimeoutSec  int

	// Classifiers
	EmotionLexiconPath    string
	StyleLexiconPath      string
	ClassifierCacheTTLMin int

	// Analysis
	ContextWindow     int
	DeepAnalysisLimit int
	ChatHistoryTurns  int

	// Alerts (Redis Stream consumer)
	WorkerID           string
	AlertWorkers       int
	ConsumerBatchSize  int
	ConsumerBlockMS    int
	ConsumerMaxRetries int

	// HTTP
	AllowedOrigins   []string
	ChatRateLimit    int
	ChatRateWindow   time.Duration
	RequestTimeout   time.Duration
	ShutdownTimeout  time.Duration
	UserIDHeaderName string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		MongoDBURL:  getEnv("MONGODB_URL", ""),
		MongoDBName: getEnv("MONGODB_DATABASE", "psichat"),
		RedisURL:    getEnv("REDIS_URL", ""),
		AutoMigrate: getEnvBool("AUTO_MIGRATE", true),

		// Neo4j
		Neo4jURL:      getEnv("NEO4J_URL", ""),
		Neo4jUsername: getEnv("NEO4J_USERNAME", "neo4j"),
		Neo4jPassword: getEnv("NEO4J_PASSWORD", ""),
		Neo4jDatabase: getEnv("NEO4J_DATABASE", "neo4j"),

		// LLM
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		LLMBaseURL:     getEnv("LLM_BASE_URL", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 150),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.7),
		LLMTopP:        getEnvFloat("LLM_TOP_P", 0.9),
		LLMTimeoutSec:  getEnvInt("LLM_TIMEOUT_SEC", 30),

		// Classifiers
		EmotionLexiconPath:    getEnv("EMOTION_LEXICON_PATH", ""),
		StyleLexiconPath:      getEnv("STYLE_LEXICON_PATH", ""),
		ClassifierCacheTTLMin: getEnvInt("CLASSIFIER_CACHE_TTL_MIN", 60),

		// Analysis
		ContextWindow:     getEnvInt("CONTEXT_WINDOW", 3),
		DeepAnalysisLimit: getEnvInt("DEEP_ANALYSIS_LIMIT", 10),
		ChatHistoryTurns:  getEnvInt("CHAT_HISTORY_TURNS", 3),

		// Alerts
		WorkerID:           getEnv("WORKER_ID", generateWorkerID()),
		AlertWorkers:       getEnvInt("ALERT_WORKERS", 4),
		ConsumerBatchSize:  getEnvInt("CONSUMER_BATCH_SIZE", 10),
		ConsumerBlockMS:    getEnvInt("CONSUMER_BLOCK_MS", 5000),
		ConsumerMaxRetries: getEnvInt("CONSUMER_MAX_RETRIES", 3),

		// HTTP
		AllowedOrigins:   getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		ChatRateLimit:    getEnvInt("CHAT_RATE_LIMIT", 30),
		ChatRateWindow:   time.Duration(getEnvInt("CHAT_RATE_WINDOW_SEC", 60)) * time.Second,
		RequestTimeout:   time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,
		ShutdownTimeout:  time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SEC", 10)) * time.Second,
		UserIDHeaderName: getEnv("USER_ID_HEADER", "X-User-ID"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	if c.ContextWindow < 0 {
		return fmt.Errorf("CONTEXT_WINDOW must be >= 0, got %d", c.ContextWindow)
	}
	if c.DeepAnalysisLimit <= 0 {
		return fmt.Errorf("DEEP_ANALYSIS_LIMIT must be > 0, got %d", c.DeepAnalysisLimit)
	}
	if c.AlertWorkers <= 0 {
		return fmt.Errorf("ALERT_WORKERS must be > 0, got %d", c.AlertWorkers)
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be within [0, 2], got %v", c.LLMTemperature)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := parts[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
