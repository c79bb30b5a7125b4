// Package config provides configuration for the gateway.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the gateway configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Ollama settings
	OllamaURL        string
	OllamaBinary     string
	ProbeTimeout     time.Duration
	StartSettleDelay time.Duration
	StartMaxRetries  int

	// Sampling options, passed through to the model server unchanged.
	Temperature   float64
	NumCtx        int
	RepeatPenalty float64

	// Context window bounds for prompt assembly
	DefaultContextMessages int
	MaxContextMessages     int

	// Web search
	SearchURL        string
	SearchMaxResults int
	SearchTimeout    time.Duration
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:         getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:      getEnv("DATABASE_URL", "file:llamagate.db?cache=shared&mode=rwc"),
		OllamaURL:        getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaBinary:     getEnv("OLLAMA_BINARY", "ollama"),
		ProbeTimeout:     time.Duration(getEnvInt("OLLAMA_PROBE_TIMEOUT_MS", 5000)) * time.Millisecond,
		StartSettleDelay: time.Duration(getEnvInt("OLLAMA_START_SETTLE_MS", 3000)) * time.Millisecond,
		StartMaxRetries:  getEnvInt("OLLAMA_START_RETRIES", 10),

		Temperature:   getEnvFloat("MODEL_TEMPERATURE", 0.7),
		NumCtx:        getEnvInt("MODEL_NUM_CTX", 4096),
		RepeatPenalty: getEnvFloat("MODEL_REPEAT_PENALTY", 1.1),

		DefaultContextMessages: getEnvInt("DEFAULT_CONTEXT_MESSAGES", 10),
		MaxContextMessages:     getEnvInt("MAX_CONTEXT_MESSAGES", 50),

		SearchURL:        getEnv("SEARCH_URL", "https://api.duckduckgo.com/"),
		SearchMaxResults: getEnvInt("SEARCH_MAX_RESULTS", 3),
		SearchTimeout:    time.Duration(getEnvInt("SEARCH_TIMEOUT_MS", 10000)) * time.Millisecond,
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}
