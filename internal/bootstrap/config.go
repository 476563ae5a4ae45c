package bootstrap

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerAddr string
	LogLevel   string

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StorageBaseURL string
	StorageBucket  string
	StorageTimeout time.Duration

	AnalysisBaseURL string
	AnalysisTimeout time.Duration

	GeolocationURL    string
	GeolocationAPIKey string
}

func LoadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		DatabaseDSN: getEnv("DATABASE_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		StorageBaseURL: getEnv("STORAGE_BASE_URL", ""),
		StorageBucket:  getEnv("STORAGE_BUCKET", "scan-images"),
		StorageTimeout: time.Duration(getEnvInt("STORAGE_TIMEOUT_SECONDS", 60)) * time.Second,

		AnalysisBaseURL: getEnv("ANALYSIS_BASE_URL", ""),
		AnalysisTimeout: time.Duration(getEnvInt("ANALYSIS_TIMEOUT_SECONDS", 90)) * time.Second,

		GeolocationURL:    getEnv("GEOLOCATION_URL", ""),
		GeolocationAPIKey: getEnv("GEOLOCATION_API_KEY", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
