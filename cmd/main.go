package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"chatdocs-rag/internal/ai"
	"chatdocs-rag/internal/config"
	"chatdocs-rag/internal/logger"
	"chatdocs-rag/internal/storage"
	"chatdocs-rag/internal/telemetry"
	"chatdocs-rag/middleware"
	"chatdocs-rag/routes"
	"chatdocs-rag/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer("chatdocs-rag", cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
	} else {
		defer shutdownTracer()
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
	}

	// Connect to MongoDB
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	// Redis backs the embedding cache, the rate limiter, and the task
	// queue. The server degrades to uncached embedding if it is down.
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, embedding cache disabled", "error", err)
		rdb = nil
	}

	ctx := context.Background()
	gemini, err := ai.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.GoogleEmbeddingsModel, cfg.GeminiTier)
	if err != nil {
		log.Fatal("Failed to initialize Gemini embedder:", err)
	}
	defer gemini.Close()

	var embedder ai.Embedder = gemini
	if rdb != nil {
		embedder = ai.NewCachedEmbedder(gemini, rdb, cfg.EmbeddingCacheTTL)
	}

	store := storage.NewMongoStore(db, cfg.VectorIndexName)
	store.SetDimensions(cfg.VectorDimensions)
	if cfg.CompressionEnabled {
		store.EnableCompression(cfg.CompressionThreshold)
	}

	scopes := services.NewScopeRegistry(cfg.ChunksCollection)
	retrieval := services.NewRetrievalService(embedder, store, scopes, metrics)
	files := services.NewFileStorageManager(cfg.FileStorageDir, cfg.MaxFileSize)
	lifecycle := services.NewLifecycleBinder(retrieval, files)

	redisOpt, err := config.AsynqRedisOpt(cfg)
	if err != nil {
		log.Fatal("Failed to build queue options:", err)
	}
	queueClient := asynq.NewClient(redisOpt)
	defer queueClient.Close()

	// Retention sweep for conversation partitions past their TTL
	if cfg.ConversationTTLDays > 0 {
		maxAge := time.Duration(cfg.ConversationTTLDays) * 24 * time.Hour
		sweeper := services.NewRetentionSweeper(store, lifecycle, cfg.ChunksCollection, maxAge)
		if err := sweeper.Start(1 * time.Hour); err != nil {
			logger.Warn("Retention sweeper failed to start", "error", err)
		} else {
			defer sweeper.Stop()
		}
	}

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.RateLimitMiddleware(rdb, 60, time.Minute))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	api := router.Group("/api/v1")
	{
		api.POST("/documents", routes.HandleDocumentUpload(cfg, files, queueClient))
		api.GET("/search", routes.HandleSearch(retrieval))
		api.DELETE("/documents", routes.HandleDeleteScope(retrieval))
		api.DELETE("/conversations/:conversationID", routes.HandleDeleteConversation(lifecycle))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
