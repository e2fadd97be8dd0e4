package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/faq-agent/backend/internal/api/handlers"
	rediscache "github.com/faq-agent/backend/internal/cache/redis"
	"github.com/faq-agent/backend/internal/documents"
	"github.com/faq-agent/backend/internal/embedding"
	"github.com/faq-agent/backend/internal/gap"
	"github.com/faq-agent/backend/internal/llm"
	"github.com/faq-agent/backend/internal/metrics"
	"github.com/faq-agent/backend/internal/middleware/ratelimit"
	"github.com/faq-agent/backend/internal/middleware/security"
	"github.com/faq-agent/backend/internal/middleware/validation"
	"github.com/faq-agent/backend/internal/search"
	"github.com/faq-agent/backend/internal/storage/models"
	"github.com/faq-agent/backend/internal/storage/sqlite"
	"github.com/faq-agent/backend/internal/vector/milvus"
	"github.com/faq-agent/backend/pkg/config"
	appLogger "github.com/faq-agent/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting FAQ Agent API Server")
	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err = sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	milvusClient, err := milvus.NewClient(
		cfg.Milvus.Endpoint,
		cfg.Milvus.APIKey,
		cfg.Milvus.CollectionName,
		cfg.Embedding.CanonicalDim,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Milvus client", zap.Error(err))
	}
	defer milvusClient.Close()

	if err = milvusClient.EnsureCollection(context.Background()); err != nil {
		appLogger.Fatal("Failed to ensure vector collection", zap.Error(err))
	}

	var redisClient *rediscache.Client
	if cfg.Redis.Enabled {
		redisClient, err = rediscache.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()
	}

	provider, err := embedding.NewProvider(cfg.Embedding)
	if err != nil {
		appLogger.Fatal("Failed to create embedding provider", zap.Error(err))
	}

	gatewayCfg := embedding.GatewayConfig{
		CanonicalDim:  cfg.Embedding.CanonicalDim,
		MaxInputChars: cfg.Embedding.MaxInputChars,
		Timeout:       time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		CacheTTL:      time.Duration(cfg.Embedding.CacheTTLMin) * time.Minute,
	}
	if redisClient != nil {
		gatewayCfg.Cache = redisClient
	}
	gateway := embedding.NewGateway(provider, gatewayCfg)

	llmClient := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		Model:          cfg.LLM.Model,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
		AnswerTimeout:  time.Duration(cfg.LLM.AnswerTimeoutSec) * time.Second,
		ClusterTimeout: time.Duration(cfg.LLM.ClusterTimeoutSec) * time.Second,
	})

	recorder := gap.NewRecorder(sqliteClient)

	engine := search.NewEngine(gateway, milvusClient, recorder, llmClient, search.Config{
		MinSimilarity:   cfg.Search.MinSimilarity,
		ResultLimit:     cfg.Search.ResultLimit,
		AuditTier:       search.ConfidenceTier(cfg.Search.AuditTier),
		HybridRerank:    cfg.Search.HybridRerank,
		VectorWeight:    cfg.Search.VectorWeight,
		LexicalWeight:   cfg.Search.LexicalWeight,
		FallbackMessage: cfg.Search.FallbackMessage,
	})

	wsHandler := handlers.NewWebSocketHandler(engine)

	clusterer := gap.NewClusterer(sqliteClient, llmClient, wsHandler, gap.Config{
		CooldownDays:        cfg.Gap.CooldownDays,
		MinPendingQuestions: cfg.Gap.MinPendingQuestions,
		MinUniqueUsers:      cfg.Gap.MinUniqueUsers,
		PageSize:            cfg.Gap.PageSize,
		MaxPages:            cfg.Gap.MaxPages,
		PageDelay:           time.Duration(cfg.Gap.PageDelaySec) * time.Second,
		SampleLimit:         cfg.Gap.SampleLimit,
	})

	var docService *documents.Service
	if redisClient != nil {
		docService = documents.NewService(gateway, milvusClient, sqliteClient, redisClient)
	} else {
		docService = documents.NewService(gateway, milvusClient, sqliteClient, nil)
	}

	reviewer := gap.NewReviewer(sqliteClient, docService)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	rateLimiter := ratelimit.New(ratelimit.Config{})
	defer rateLimiter.Stop()

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-User-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		IsDevelopment:  cfg.Server.Development,
	}))
	app.Use(rateLimiter.Middleware())
	app.Use(validation.Middleware(validation.Config{}))

	searchHandler := handlers.NewSearchHandler(engine)
	documentHandler := handlers.NewDocumentHandler(docService)
	gapHandler := handlers.NewGapHandler(sqliteClient, clusterer, reviewer)

	api := app.Group("/api/v1")

	api.Post("/search", searchHandler.HandleSearch)
	api.Post("/answer", searchHandler.HandleAnswer)

	api.Post("/documents", documentHandler.HandleCreate)
	api.Get("/documents", documentHandler.HandleList)
	api.Get("/documents/:id", documentHandler.HandleGet)
	api.Put("/documents/:id", documentHandler.HandleUpdate)
	api.Delete("/documents/:id", documentHandler.HandleDelete)
	api.Post("/documents/reembed", documentHandler.HandleReembed)

	api.Post("/gap/run", gapHandler.HandleAnalyze)
	api.Get("/gap/dashboard", gapHandler.HandleDashboard)
	api.Get("/gap/clusters", gapHandler.HandleListClusters)
	api.Get("/gap/clusters/:id", gapHandler.HandleGetCluster)
	api.Post("/gap/clusters/:id/accept", gapHandler.HandleAcceptCluster)
	api.Post("/gap/clusters/:id/dismiss", gapHandler.HandleDismissCluster)
	api.Post("/gap/clusters/:id/review", gapHandler.HandleReviewCluster)
	api.Get("/gap/runs", gapHandler.HandleListRuns)
	api.Get("/gap/questions", gapHandler.HandleListQuestions)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})
	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ready"})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(wsHandler.HandleConnection))

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	go runScheduler(schedulerCtx, clusterer, time.Duration(cfg.Gap.ScheduleIntervalMin)*time.Minute)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	stopScheduler()
	app.Shutdown()
	appLogger.Info("Server stopped")
}

// runScheduler ticks well below the cooldown period; the clusterer's own
// gates decide whether a tick becomes a real run.
func runScheduler(ctx context.Context, clusterer *gap.Clusterer, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := clusterer.Run(ctx, gap.RunOptions{Trigger: models.TriggerScheduled}); err != nil {
				appLogger.Error("Scheduled analysis run failed", zap.Error(err))
			}
		}
	}
}
