package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"linkhub/internal/config"
	"linkhub/internal/handler"
	"linkhub/internal/middleware"
	"linkhub/internal/notify"
	"linkhub/internal/realtime"
	"linkhub/internal/repository"
	"linkhub/internal/service"
	"linkhub/internal/storage"
	"linkhub/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Log.Level)

	dbPool, err := pgxpool.New(context.Background(), cfg.Database.DSN)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", "error", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		appLogger.Fatal("Failed to ping database", "error", err)
	}
	appLogger.Info("Database connection established")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		appLogger.Fatal("Failed to connect to Redis", "error", err)
	}
	appLogger.Info("Redis connection established")

	repos := repository.NewRepositories(dbPool, rdb, appLogger)

	blobs, err := storage.NewDiskStore(cfg.Upload.Dir, cfg.Upload.BaseURL, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to init blob store", "error", err)
	}

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.SMTP.Host != "" {
		notifier = notify.NewSMTPNotifier(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From, appLogger)
	}

	presence := realtime.NewPresenceRegistry(repos.User, appLogger)
	hub := realtime.NewHub(presence, appLogger)
	go hub.Run()

	services := service.NewServices(repos, blobs, notifier, hub, cfg, appLogger)

	authMiddleware := middleware.NewAuthMiddleware(services.Auth, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, appLogger)

	handlers := handler.NewHandlers(services, hub, appLogger)

	router := setupRouter(handlers, authMiddleware, rateLimitMiddleware, cfg, appLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited")
}

func setupRouter(
	handlers *handler.Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Check)

	// Attachments stored on disk are served straight from the upload dir.
	router.Static("/uploads", cfg.Upload.Dir)

	v1 := router.Group("/api/v1")
	{
		messages := v1.Group("/messages")
		messages.Use(authMiddleware.RequireAuth())
		{
			messages.POST("/send", rateLimitMiddleware.Limit(60, 60), handlers.Message.Send)
			messages.POST("/send-file", rateLimitMiddleware.Limit(20, 60), handlers.Message.SendFile)
			messages.GET("/conversations", handlers.Message.Conversations)
			messages.GET("/messages/:userId", handlers.Message.History)
			messages.GET("/online", handlers.Message.Online)
			messages.POST("/read/:userId", handlers.Message.MarkRead)
			messages.PUT("/:messageId", handlers.Message.Edit)
			messages.DELETE("/:messageId", handlers.Message.Delete)
		}
	}

	// Realtime push channel; the client joins its own room right after the
	// upgrade and reconnects with backoff on its side.
	router.GET("/ws", authMiddleware.RequireAuth(), handlers.WebSocket.Connect)

	return router
}
