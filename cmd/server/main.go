package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/dexterslab/plural-backend/internal/ai/gemini"
	"github.com/dexterslab/plural-backend/internal/api"
	"github.com/dexterslab/plural-backend/internal/cache/redis"
	"github.com/dexterslab/plural-backend/internal/config"
	"github.com/dexterslab/plural-backend/internal/service"
	"github.com/dexterslab/plural-backend/internal/service/guide"
	"github.com/dexterslab/plural-backend/internal/service/turn"
	"github.com/dexterslab/plural-backend/internal/storage/gcs"
	"github.com/dexterslab/plural-backend/internal/storage/postgres"
	"github.com/dexterslab/plural-backend/internal/worker"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}

	// Configure log format
	if cfg.LogFormat == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	}

	logger.Info("starting plural-backend server")

	// Connect to database
	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	// Initialize Redis client
	redisClient, err := redis.New(cfg.Redis.URI)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()

	// Initialize Gemini client
	geminiClient, err := gemini.NewClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.ChatModel, cfg.Gemini.EmbedModel)
	if err != nil {
		logger.WithError(err).Fatal("failed to create gemini client")
	}

	// Initialize object storage for generated images
	imageStore, err := gcs.New(ctx, cfg.Storage.ImageBucket)
	if err != nil {
		logger.WithError(err).Fatal("failed to create object storage client")
	}

	// Initialize repositories
	questRepo := postgres.NewQuestRepository(db.Pool())
	msgRepo := postgres.NewMessageRepository(db.Pool())
	guideRepo := postgres.NewGuideRepository(db.Pool())

	// Initialize services
	authService := service.NewAuthService(cfg.Server.JWTSecret)
	guideService := guide.NewService(guideRepo, redisClient, logger)
	turnService := turn.NewService(msgRepo, geminiClient, geminiClient, guideService, imageStore, logger, cfg.Context)

	// Background worker pool for response turns and image generation
	pool := worker.New(cfg.Worker.Count, cfg.Worker.QueueSize, cfg.Context.TurnTimeout, logger)

	// Initialize API server
	server := api.NewServer(authService, questRepo, msgRepo, guideService, turnService, pool, logger)

	// Create Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Add middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
			}).Info("request")
			return nil
		},
	}))

	// Health check endpoint (public)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	// Quest routes (authenticated)
	quests := e.Group("/quests", server.AuthMiddleware)
	quests.POST("", server.CreateQuest)
	quests.GET("", server.ListQuests)
	quests.GET("/:id", server.GetQuest)
	quests.DELETE("/:id", server.DeleteQuest)
	quests.POST("/:id/messages", server.SendMessage)
	quests.POST("/:id/generate-image", server.GenerateImage)

	// Guide persona routes (authenticated)
	guideGroup := e.Group("/guide", server.AuthMiddleware)
	guideGroup.GET("", server.GetGuide)
	guideGroup.PUT("", server.UpdateGuide)

	// Start server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	go func() {
		logger.WithField("addr", addr).Info("server listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server shutdown error")
	}

	// Let in-flight background turns finish before exiting
	if err := pool.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("worker pool shutdown error")
	}

	logger.Info("server stopped")
}
