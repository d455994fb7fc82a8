package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"chatdocs-rag/internal/ai"
	"chatdocs-rag/internal/config"
	"chatdocs-rag/internal/extract"
	"chatdocs-rag/internal/logger"
	"chatdocs-rag/internal/queue"
	"chatdocs-rag/internal/storage"
	"chatdocs-rag/internal/telemetry"
	"chatdocs-rag/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer("chatdocs-rag-worker", cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
	} else {
		defer shutdownTracer()
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
	}

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
	coordinator := services.NewIngestionCoordinator(
		extract.NewRegistry(),
		embedder,
		store,
		scopes,
		nil,
		metrics,
	)

	redisOpt, err := config.AsynqRedisOpt(cfg)
	if err != nil {
		log.Fatal("Failed to build queue options:", err)
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(coordinator)

	logger.Info("Starting ingestion worker", "concurrency", 10)
	if err := server.Run(processor.Mux()); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
