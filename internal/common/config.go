package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	LLM      LLMConfig
	Pipeline PipelineConfig
	History  HistoryConfig
}

// LLMConfig holds extraction-model configuration
type LLMConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
	MaxAttempts int
	CacheSize   int
}

// PipelineConfig holds segmentation and dispatch configuration
type PipelineConfig struct {
	MaxSegmentChars int
	Concurrency     int
}

// HistoryConfig holds run-history store configuration
type HistoryConfig struct {
	DBPath string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", ""),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
			MaxAttempts: getEnvAsInt("OPENAI_MAX_ATTEMPTS", 3),
			CacheSize:   getEnvAsInt("EXTRACTION_CACHE_SIZE", 128),
		},
		Pipeline: PipelineConfig{
			MaxSegmentChars: getEnvAsInt("SEGMENT_MAX_CHARS", 4000),
			Concurrency:     getEnvAsInt("DISPATCH_CONCURRENCY", 4),
		},
		History: HistoryConfig{
			DBPath: getEnv("HISTORY_DB_PATH", "docledger.db"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
