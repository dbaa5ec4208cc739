package config

import (
	"os"
	"runtime"
	"strconv"
	"time"
)

type Config struct {
	Port               string
	Env                string
	EngineBin          string
	RedisAddr          string
	KafkaBrokers       string
	MaxUploadSize      int64
	ConvertConcurrency int
	ArtifactTTL        time.Duration
}

func Load() *Config {
	return &Config{
		Port:               getEnv("SERVICE_PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		EngineBin:          getEnv("ENGINE_BIN", "pdf2docx"),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		KafkaBrokers:       getEnv("KAFKA_BROKERS", ""),
		MaxUploadSize:      getEnvAsInt64("MAX_UPLOAD_SIZE", 100*1024*1024),
		ConvertConcurrency: getEnvAsInt("CONVERT_CONCURRENCY", defaultConcurrency()),
		ArtifactTTL:        getEnvAsDuration("ARTIFACT_TTL", 0),
	}
}

func defaultConcurrency() int {
	if n := runtime.NumCPU() - 1; n > 1 {
		return n
	}
	return 1
}

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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
