// Package bootstrap wires configuration, storage and services into the API and
// worker processes.
package bootstrap

import (
	"context"
	"errors"
	"time"

	"psichat_server/adapter/out/classifier"
	"psichat_server/adapter/out/graph"
	"psichat_server/adapter/out/llm"
	"psichat_server/adapter/out/messaging"
	"psichat_server/adapter/out/mongodb"
	"psichat_server/adapter/out/persistence"
	"psichat_server/config"
	"psichat_server/core/port/out"
	"psichat_server/core/service/alert"
	"psichat_server/core/service/analysis"
	"psichat_server/core/service/chat"
	"psichat_server/infra/database"
	"psichat_server/pkg/cache"
	"psichat_server/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const connectTimeout = 15 * time.Second

type Dependencies struct {
	Config  *config.Config
	DB      *pgxpool.Pool
	SQLDB   *sqlx.DB
	Redis   *redis.Client
	MongoDB *mongo.Client
	Neo4j   neo4j.DriverWithContext

	// Repositories
	MessageRepo     *persistence.MessageAdapter
	AnalysisRepo    *persistence.AnalysisAdapter
	TutorAlertRepo  *persistence.TutorAlertAdapter
	DeepReportRepo  out.DeepAnalysisRepository
	EmotionGraph    out.EmotionGraph
	AlertPublisher  out.AlertPublisher
	ReplyGenerator  out.ReplyGenerator
	ClassifierCache out.JSONCache

	// Services
	Engine          *analysis.Engine
	AnalysisService *analysis.Service
	ChatService     *chat.Service
	AlertService    *alert.Service
}

// NewDependencies connects every configured backend. PostgreSQL is required,
// the rest degrade: without Redis there is no classifier cache and no alert
// stream, without MongoDB deep analyses are not archived, without Neo4j the
// emotion graph is skipped.
func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if cfg.DatabaseURL == "" {
		return nil, nil, errors.New("DATABASE_URL is required")
	}

	// Database (pgxpool)
	db, err := database.NewPostgres(ctx, cfg.DatabaseURL, database.DefaultPostgresConfig())
	if err != nil {
		return nil, nil, err
	}
	deps.DB = db
	cleanups = append(cleanups, db.Close)

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			cleanup()
			return nil, nil, err
		}
		logger.Info("Database schema is up to date")
	}

	// Database (sqlx for the repositories)
	sqlDB, err := database.NewSQLX(cfg.DatabaseURL)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	deps.SQLDB = sqlDB
	cleanups = append(cleanups, func() { sqlDB.Close() })

	deps.MessageRepo = persistence.NewMessageAdapter(sqlDB)
	deps.AnalysisRepo = persistence.NewAnalysisAdapter(sqlDB)
	deps.TutorAlertRepo = persistence.NewTutorAlertAdapter(sqlDB)

	// Redis
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(ctx, cfg.RedisURL, database.DefaultRedisConfig())
		if err != nil {
			logger.Warn("Redis connection failed: %v", err)
		} else {
			deps.Redis = redisClient
			cleanups = append(cleanups, func() { redisClient.Close() })

			deps.ClassifierCache = cache.NewRedisCache(redisClient, "psichat:classifier")
			deps.AlertPublisher = messaging.NewRedisProducer(redisClient)
			logger.Info("Redis connected (classifier cache, alert stream)")
		}
	}

	// MongoDB
	if cfg.MongoDBURL != "" {
		mongoClient, err := mongodb.NewClient(ctx, cfg.MongoDBURL)
		if err != nil {
			logger.Warn("MongoDB connection failed: %v", err)
		} else {
			deps.MongoDB = mongoClient
			cleanups = append(cleanups, func() {
				mongoClient.Disconnect(context.Background())
			})

			reports := mongodb.NewDeepAnalysisAdapter(mongoClient.Database(cfg.MongoDBName))
			if err := reports.EnsureIndexes(ctx); err != nil {
				logger.Warn("Failed to ensure MongoDB indexes: %v", err)
			}
			deps.DeepReportRepo = reports
			logger.Info("MongoDB deep analysis archive initialized")
		}
	}

	// Neo4j
	if cfg.Neo4jURL != "" {
		driver, err := graph.NewDriver(ctx, cfg.Neo4jURL, cfg.Neo4jUsername, cfg.Neo4jPassword)
		if err != nil {
			logger.Warn("Neo4j connection failed: %v", err)
		} else {
			deps.Neo4j = driver
			cleanups = append(cleanups, func() {
				driver.Close(context.Background())
			})

			emotionGraph := graph.NewEmotionGraphAdapter(driver, cfg.Neo4jDatabase)
			if err := emotionGraph.EnsureIndexes(ctx); err != nil {
				logger.Warn("Failed to ensure Neo4j constraints: %v", err)
			}
			deps.EmotionGraph = emotionGraph
			logger.Info("Neo4j emotion graph initialized")
		}
	}

	// LLM
	if cfg.OpenAIAPIKey != "" {
		deps.ReplyGenerator = llm.NewClient(llm.ClientConfig{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.LLMBaseURL,
			Model:       cfg.LLMModel,
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: cfg.LLMTemperature,
			TopP:        cfg.LLMTopP,
			Timeout:     time.Duration(cfg.LLMTimeoutSec) * time.Second,
		})
	} else {
		logger.Warn("OPENAI_API_KEY not set, chat replies will carry an error marker")
	}

	deps.initServices()
	return deps, cleanup, nil
}

func (d *Dependencies) initServices() {
	cfg := d.Config
	ttl := time.Duration(cfg.ClassifierCacheTTLMin) * time.Minute

	d.Engine = analysis.NewEngine(
		loadClassifier(cfg.EmotionLexiconPath, classifier.BuiltinEmotion, d.ClassifierCache, ttl),
		loadClassifier(cfg.StyleLexiconPath, classifier.BuiltinStyle, d.ClassifierCache, ttl),
		&analysis.EngineConfig{ContextWindow: cfg.ContextWindow},
	)

	d.AnalysisService = analysis.NewService(d.Engine, d.MessageRepo, d.AnalysisRepo, d.DeepReportRepo, cfg.DeepAnalysisLimit)
	d.ChatService = chat.NewService(d.AnalysisService, d.MessageRepo, d.ReplyGenerator, d.AlertPublisher, cfg.ChatHistoryTurns)
	d.AlertService = alert.NewService(d.TutorAlertRepo, d.EmotionGraph)

	logger.Info("Services initialized (context_window=%d)", cfg.ContextWindow)
}

// loadClassifier loads a lexicon and puts the cache in front of it. A lexicon
// that cannot be loaded is logged and yields nil, which the engine reads as
// neutral on that axis.
func loadClassifier(path, builtin string, cache out.JSONCache, ttl time.Duration) out.TextClassifier {
	lx, err := classifier.Load(path, builtin)
	if err != nil {
		logger.WithError(err).Error("Lexicon %s unavailable, its readings fall back to neutral", builtin)
		return nil
	}
	logger.Info("Lexicon loaded: %s (version %s)", lx.Name(), lx.Version())
	return classifier.NewCached(lx, cache, ttl)
}
