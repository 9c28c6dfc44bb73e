package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the environment-driven settings shared by both binaries.
type Config struct {
	HTTPAddr          string
	AWSRegion         string
	OrdersTable       string
	CreatedQueueURL   string
	ProcessedQueueURL string
	FailedQueueURL    string
	ProcessingDelay   time.Duration
	ListLimit         int
	MetricsNamespace  string
}

// Load reads configuration from the environment, applying defaults.
func Load() Config {
	return Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		AWSRegion:         getEnv("AWS_REGION", ""),
		OrdersTable:       getEnv("ORDERS_TABLE", "orders"),
		CreatedQueueURL:   getEnv("ORDER_CREATED_QUEUE_URL", ""),
		ProcessedQueueURL: getEnv("ORDER_PROCESSED_QUEUE_URL", ""),
		FailedQueueURL:    getEnv("ORDER_FAILED_QUEUE_URL", ""),
		ProcessingDelay:   getEnvAsDuration("PROCESSING_DELAY", 2*time.Second),
		ListLimit:         getEnvAsInt("LIST_LIMIT", 100),
		MetricsNamespace:  getEnv("METRICS_NAMESPACE", "OrderPipeline"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
