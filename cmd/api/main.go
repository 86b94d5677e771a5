package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/atavi-atlas/backend/internal/api/handlers"
	"github.com/atavi-atlas/backend/internal/cache/redis"
	"github.com/atavi-atlas/backend/internal/claims"
	"github.com/atavi-atlas/backend/internal/dss"
	"github.com/atavi-atlas/backend/internal/events"
	"github.com/atavi-atlas/backend/internal/gis"
	"github.com/atavi-atlas/backend/internal/gis/classifier"
	"github.com/atavi-atlas/backend/internal/ingestion"
	"github.com/atavi-atlas/backend/internal/metrics"
	"github.com/atavi-atlas/backend/internal/middleware/ratelimit"
	"github.com/atavi-atlas/backend/internal/middleware/security"
	"github.com/atavi-atlas/backend/internal/middleware/validation"
	"github.com/atavi-atlas/backend/internal/ocr/director"
	"github.com/atavi-atlas/backend/internal/ocr/provider"
	"github.com/atavi-atlas/backend/internal/storage/blob"
	"github.com/atavi-atlas/backend/internal/storage/sqlite"
	"github.com/atavi-atlas/backend/pkg/config"
	appLogger "github.com/atavi-atlas/backend/pkg/logger"
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

	appLogger.Info("Starting FRA Atlas API Server",
		zap.String("pilot_state", cfg.Atlas.PilotState),
		zap.String("version", cfg.Atlas.Version),
	)

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var cache *redis.Client
	if cfg.Redis.Enabled {
		cache, err = redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, running without cache", zap.Error(err))
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	documentStore, err := blob.NewStore(cfg.Storage.UploadDir, cfg.Storage.BaseURL)
	if err != nil {
		appLogger.Fatal("Failed to create document store", zap.Error(err))
	}

	hub := events.NewHub()

	claimsService := claims.NewService(sqliteClient, cache, hub)

	ocrClient := provider.NewClient(
		cfg.OCR.BaseURL,
		cfg.OCR.APIKey,
		cfg.OCR.Mode,
		cfg.OCR.OutputMode,
		time.Duration(cfg.OCR.TimeoutSec)*time.Second,
	)
	claimDirector := director.New(cfg.Atlas.PilotState, cfg.Atlas.Version)
	processor := ingestion.NewProcessor(ocrClient, claimDirector, documentStore, claimsService)

	landClassifier := classifier.New(cfg.Classifier, cache)
	gisService := gis.NewService(sqliteClient, landClassifier, hub)

	recommender := dss.NewRecommender(cfg.DSS)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-User-ID",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: 120,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()
	app.Use(limiter.Middleware())

	app.Use(validation.Middleware(validation.Config{
		MaxUploadSize: cfg.Server.BodyLimit,
		Logger:        appLogger.GetLogger(),
	}))

	claimHandler := handlers.NewClaimHandler(claimsService, processor)
	documentHandler := handlers.NewDocumentHandler(processor)
	gisHandler := handlers.NewGISHandler(gisService)
	dashboardHandler := handlers.NewDashboardHandler(claimsService)
	dssHandler := handlers.NewDSSHandler(claimsService, gisService, recommender)

	api := app.Group("/api/v1")

	api.Post("/claims", claimHandler.CreateClaim)
	api.Get("/claims", claimHandler.ListClaims)
	api.Get("/claims/:id", claimHandler.GetClaim)
	api.Patch("/claims/:id", claimHandler.UpdateClaim)
	api.Delete("/claims/:id", claimHandler.DeleteClaim)
	api.Patch("/claims/:id/status", claimHandler.UpdateStatus)
	api.Post("/claims/:id/assign", claimHandler.AssignOfficer)

	api.Post("/documents/upload", documentHandler.UploadDocument)
	api.Get("/documents/form-types", documentHandler.FormTypes)

	api.Post("/claims/:id/analyze", gisHandler.AnalyzeClaim)
	api.Get("/claims/:id/gis", gisHandler.ClaimGIS)
	api.Get("/gis/summary", gisHandler.Summary)

	api.Get("/dashboard/stats", dashboardHandler.Stats)
	api.Get("/dashboard/summary", dashboardHandler.Summary)

	api.Get("/claims/:id/recommendations", dssHandler.Recommendations)

	api.Use("/events", handlers.UpgradeRequired)
	api.Get("/events", handlers.EventStream(hub))

	app.Static("/files", documentStore.Dir())
	app.Get("/metrics", metrics.MetricsHandler())

	api.Get("/health", func(c *fiber.Ctx) error {
		components := fiber.Map{
			"database": "healthy",
			"cache":    "disabled",
		}
		status := "healthy"
		if err := sqliteClient.Ping(); err != nil {
			components["database"] = "unhealthy"
			status = "degraded"
		}
		if cache != nil {
			components["cache"] = "healthy"
			if err := cache.Ping(c.Context()); err != nil {
				components["cache"] = "unhealthy"
				status = "degraded"
			}
		}
		return c.JSON(fiber.Map{
			"status":     status,
			"components": components,
			"time":       time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		if err := sqliteClient.Ping(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
			})
		}
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

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
