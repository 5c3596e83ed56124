package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends.
const (
	StorageMemory    = "memory"
	StorageFirestore = "firestore"
	StorageRedis     = "redis"
)

// Completion backends.
const (
	CompletionMock   = "mock"
	CompletionOpenAI = "openai"
	CompletionVertex = "vertex"
)

type Config struct {
	Port string

	StorageBackend    string // "memory", "firestore" or "redis"
	CompletionBackend string // "mock", "openai" or "vertex"

	// Completion settings shared by the remote backends.
	ModelName     string
	Temperature   *float64
	MaxTokens     *int
	SubmitTimeout time.Duration

	// OpenAI-compatible endpoint (DeepSeek and friends).
	OpenAIBaseURL string
	OpenAIAPIKey  string

	// Vertex AI.
	GCPProjectID string
	GCPLocation  string

	// Redis storage backend.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
}

// Load reads all env vars and builds the config.
func Load() (*Config, error) {
	temperature, err := parseOptionalFloatEnv("PARLEY_TEMPERATURE")
	if err != nil {
		return nil, err
	}

	maxTokens, err := parseOptionalIntEnv("PARLEY_MAX_TOKENS")
	if err != nil {
		return nil, err
	}

	submitTimeout, err := parseDurationEnv("PARLEY_SUBMIT_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}

	redisDB, err := parseIntEnv("PARLEY_REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	redisTTL, err := parseDurationEnv("PARLEY_REDIS_TTL", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port: getEnv("PARLEY_PORT", "8080"),

		StorageBackend:    getEnv("PARLEY_STORAGE_BACKEND", StorageMemory),
		CompletionBackend: getEnv("PARLEY_COMPLETION_BACKEND", CompletionMock),

		ModelName:     getEnv("PARLEY_MODEL_NAME", "deepseek-chat"),
		Temperature:   temperature,
		MaxTokens:     maxTokens,
		SubmitTimeout: submitTimeout,

		OpenAIBaseURL: getEnv("PARLEY_OPENAI_BASE_URL", "https://api.deepseek.com/v1"),
		OpenAIAPIKey:  getEnv("PARLEY_OPENAI_API_KEY", ""),

		GCPProjectID: getEnv("PARLEY_GCP_PROJECT", ""),
		GCPLocation:  getEnv("PARLEY_GCP_LOCATION", "us-central1"),

		RedisAddr:     getEnv("PARLEY_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("PARLEY_REDIS_PASSWORD", ""),
		RedisDB:       redisDB,
		RedisTTL:      redisTTL,
	}

	switch cfg.StorageBackend {
	case StorageMemory, StorageFirestore, StorageRedis:
	default:
		return nil, fmt.Errorf("invalid PARLEY_STORAGE_BACKEND value %q", cfg.StorageBackend)
	}

	switch cfg.CompletionBackend {
	case CompletionMock, CompletionOpenAI, CompletionVertex:
	default:
		return nil, fmt.Errorf("invalid PARLEY_COMPLETION_BACKEND value %q", cfg.CompletionBackend)
	}

	if cfg.StorageBackend == StorageFirestore && cfg.GCPProjectID == "" {
		return nil, fmt.Errorf("PARLEY_GCP_PROJECT must be set for the firestore backend")
	}
	if cfg.CompletionBackend == CompletionVertex && cfg.GCPProjectID == "" {
		return nil, fmt.Errorf("PARLEY_GCP_PROJECT must be set for the vertex backend")
	}
	if cfg.CompletionBackend == CompletionOpenAI && cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("PARLEY_OPENAI_API_KEY must be set for the openai backend")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func parseIntEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
