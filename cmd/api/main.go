package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/soc-review/backend/internal/api/handlers"
	"github.com/soc-review/backend/internal/cache/redis"
	"github.com/soc-review/backend/internal/evaluation"
	"github.com/soc-review/backend/internal/ingestion"
	"github.com/soc-review/backend/internal/llm"
	"github.com/soc-review/backend/internal/metrics"
	"github.com/soc-review/backend/internal/middleware/ratelimit"
	"github.com/soc-review/backend/internal/middleware/security"
	"github.com/soc-review/backend/internal/middleware/validation"
	"github.com/soc-review/backend/internal/review"
	"github.com/soc-review/backend/internal/rules"
	"github.com/soc-review/backend/pkg/config"
	appLogger "github.com/soc-review/backend/pkg/logger"
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

	appLogger.Info("Starting SOC report review API server")

	metrics.Init()

	store, err := rules.Load(cfg.Rules.Path)
	if err != nil {
		appLogger.Fatal("Failed to load compliance checklist", zap.Error(err))
	}
	appLogger.Info("Checklist loaded",
		zap.String("path", cfg.Rules.Path),
		zap.Int("rules", store.Count()),
	)

	generator, err := llm.New(llm.Options{
		Provider:    cfg.LLM.Provider,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		Temperature: cfg.LLM.Temperature,
	})
	if err != nil {
		appLogger.Fatal("Failed to create LLM client", zap.Error(err))
	}
	appLogger.Info("LLM client ready",
		zap.String("provider", generator.Name()),
		zap.String("model", generator.Model()),
		zap.String("base_url", cfg.LLM.BaseURL),
	)

	var cache review.ResultCache
	if cfg.Cache.Enabled {
		redisClient, err := redis.NewClient(cfg.Cache.Host, cfg.Cache.Port, cfg.Cache.Password, cfg.Cache.DB)
		if err != nil {
			appLogger.Warn("Review cache disabled, redis unreachable", zap.Error(err))
		} else {
			defer redisClient.Close()
			cache = redisClient
		}
	}

	evaluator := evaluation.NewEvaluator(generator, evaluation.Config{
		MaxAttempts:      cfg.LLM.MaxAttempts,
		CallTimeout:      time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		MaxDocumentChars: cfg.LLM.MaxDocumentChars,
	})

	engine := review.NewEngine(store, evaluator, cache, review.Config{
		Concurrency: cfg.Review.Concurrency,
		Timeout:     time.Duration(cfg.Review.TimeoutSec) * time.Second,
		CacheTTL:    time.Duration(cfg.Cache.TTLSec) * time.Second,
		Model:       cfg.LLM.Model,
	})

	extractor := ingestion.NewExtractor(int64(cfg.Server.BodyLimit))

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: strings.Split(cfg.Server.AllowedOrigins, ","),
		IsDevelopment:  cfg.Server.Environment == "development",
	}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.Server.RateLimitPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()

	validator := validation.Middleware(validation.Config{
		MaxReportChars: cfg.Review.MaxReportChars,
		Logger:         appLogger.GetLogger(),
	})

	reviewHandler := handlers.NewReviewHandler(engine, extractor)
	healthHandler := handlers.NewHealthHandler(generator, store)
	rulesHandler := handlers.NewRulesHandler(store)

	api := app.Group("/api")
	api.Get("/health", healthHandler.Health)
	api.Get("/rules", rulesHandler.ListRules)
	api.Post("/review", limiter.Middleware(), validator, reviewHandler.ReviewText)
	api.Post("/review/upload", limiter.Middleware(), validator, reviewHandler.ReviewUpload)

	app.Get("/metrics", metrics.MetricsHandler())

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
	app.Shutdown()
	appLogger.Info("Server stopped")
}
