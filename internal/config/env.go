package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI    string
	DBName      string
	Port        string
	GinMode     string
	CORSOrigins []string

	// Redis (embedding cache + task queue)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Embeddings
	GeminiAPIKey          string
	GeminiTier            string
	GoogleEmbeddingsModel string
	EmbeddingCacheTTL     time.Duration

	// Vector search
	ChunksCollection string
	VectorIndexName  string
	VectorDimensions int

	// Ingestion defaults. Zero chunk size/overlap defers to the adaptive
	// planner per document.
	DefaultChunkSize    int
	DefaultChunkOverlap int
	BatchSize           int
	InterBatchDelayMs   int

	// File storage for raw uploads
	FileStorageDir string
	MaxFileSize    int64

	// Chunk text compression
	CompressionEnabled   bool
	CompressionThreshold int

	// Retention sweep for stale conversation partitions
	ConversationTTLDays int

	// Telemetry
	OTLPEndpoint string
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/chatdocs"),
		DBName:      getEnv("DB_NAME", "chatdocs"),
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiTier:            getEnv("GEMINI_TIER", "free"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		EmbeddingCacheTTL:     time.Duration(getEnvInt("EMBEDDING_CACHE_TTL_MINUTES", 1440)) * time.Minute,

		ChunksCollection: getEnv("CHUNKS_COLLECTION", "doc_chunks"),
		VectorIndexName:  getEnv("VECTOR_INDEX_NAME", "vector_index"),
		VectorDimensions: getEnvInt("VECTOR_DIMENSIONS", 768),

		DefaultChunkSize:    getEnvInt("CHUNK_SIZE", 0),
		DefaultChunkOverlap: getEnvInt("CHUNK_OVERLAP", 0),
		BatchSize:           getEnvInt("INGEST_BATCH_SIZE", 0),
		InterBatchDelayMs:   getEnvInt("INGEST_BATCH_DELAY_MS", 100),

		FileStorageDir: getEnv("FILE_STORAGE_DIR", "./storage"),
		MaxFileSize:    getEnvInt64("MAX_FILE_SIZE", 10485760), // 10MB

		CompressionEnabled:   getEnvBool("CHUNK_COMPRESSION_ENABLED", false),
		CompressionThreshold: getEnvInt("CHUNK_COMPRESSION_THRESHOLD", 4096),

		ConversationTTLDays: getEnvInt("CONVERSATION_TTL_DAYS", 0),

		OTLPEndpoint: getEnv("OTLP_ENDPOINT", "localhost:4317"),
	}

	if cfg.DefaultChunkSize > 0 && cfg.DefaultChunkOverlap >= cfg.DefaultChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)",
			cfg.DefaultChunkOverlap, cfg.DefaultChunkSize)
	}

	return cfg, nil
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

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
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
