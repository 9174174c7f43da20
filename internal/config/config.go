package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort          string
	DatabaseURL       string
	JWTSecret         string
	LogLevel          string
	LogFormat         string
	InferenceProvider string
	OllamaHost        string
	OllamaTimeout     time.Duration
	DefaultModel      string
	GeminiAPIKey      string
}

// Load reads configuration from the environment, honoring a .env file if one
// exists. JWT_SECRET is the only hard requirement; GEMINI_API_KEY is required
// only when the gemini inference provider is selected.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env is optional, env vars win anyway

	cfg := &Config{
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		DatabaseURL:       getEnv("DATABASE_URL", "chatroom.db"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "console"),
		InferenceProvider: getEnv("INFERENCE_PROVIDER", "ollama"),
		OllamaHost:        getEnv("OLLAMA_HOST", "http://ollama:11434"),
		OllamaTimeout:     time.Duration(getEnvAsInt("OLLAMA_TIMEOUT_SECONDS", 300)) * time.Second,
		DefaultModel:      getEnv("DEFAULT_MODEL", "llama3"),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if cfg.InferenceProvider == "gemini" && cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required when INFERENCE_PROVIDER=gemini")
	}

	return cfg, nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
