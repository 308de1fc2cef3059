package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	// Gemini API
	GeminiAPIKey    string
	EmbeddingModel  string
	EmbeddingDim    int
	CompletionModel string
	Temperature     float64
	ModelMaxTokens  int
	AnswerReserve   int
	PromptReserve   int

	// Vector index
	CollectionName string
	IndexPath      string
	RetrieverTopN  int

	// Session tokens
	SigningKey         string
	EncryptionKey      string
	TokenExpiryMinutes int
	HistoryWindow      int

	// Response cache
	CacheCapacity   int
	CacheTTLSeconds int

	// Redis (rate limiting + task queue)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Inbound rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	// Ingestion
	MaxChunkSize int
	ChunkOverlap int
	MinChunkSize int
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		EmbeddingDim:    getEnvInt("EMBEDDING_DIM", 768),
		CompletionModel: getEnv("COMPLETION_MODEL", "gemini-2.0-flash"),
		Temperature:     getEnvFloat64("TEMPERATURE", 0.7),
		ModelMaxTokens:  getEnvInt("MODEL_MAX_TOKENS", 15000),
		AnswerReserve:   getEnvInt("ANSWER_RESERVE_TOKENS", 1000),
		PromptReserve:   getEnvInt("PROMPT_RESERVE_TOKENS", 2000),

		CollectionName: getEnv("COLLECTION_NAME", "knowledge-base"),
		IndexPath:      getEnv("INDEX_PATH", "./storage/index"),
		RetrieverTopN:  getEnvInt("RETRIEVER_TOP_N", 8),

		SigningKey:         getEnv("SIGNING_KEY", ""),
		EncryptionKey:      getEnv("ENCRYPTION_KEY", ""),
		TokenExpiryMinutes: getEnvInt("TOKEN_EXPIRY_MINUTES", 60),
		HistoryWindow:      getEnvInt("HISTORY_WINDOW", 5),

		CacheCapacity:   getEnvInt("CACHE_CAPACITY", 1000),
		CacheTTLSeconds: getEnvInt("CACHE_TTL_SECONDS", 3600),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		MaxChunkSize: getEnvInt("MAX_CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),
		MinChunkSize: getEnvInt("MIN_CHUNK_SIZE", 100),
	}

	// Validate required fields
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	if len(cfg.SigningKey) < 32 {
		return nil, fmt.Errorf("SIGNING_KEY is required and must be at least 32 characters")
	}

	if len(cfg.EncryptionKey) < 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required and must be at least 32 characters")
	}

	if cfg.SigningKey == cfg.EncryptionKey {
		return nil, fmt.Errorf("SIGNING_KEY and ENCRYPTION_KEY must be distinct")
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

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
