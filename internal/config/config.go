package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	ServiceName    = "plate-catalog"
	ServiceVersion = "0.1.0"
)

const (
	StoreMemory   = "memory"
	StoreMySQL    = "mysql"
	StorePostgres = "postgres"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string

	StoreDriver string
	DatabaseDSN string

	// empty selects the in-process cache
	RedisAddr string

	// empty disables sale events
	KafkaBrokers    []string
	KafkaSalesTopic string

	// empty disables the intake consumer
	AMQPURL         string
	AMQPIntakeQueue string

	OtelEndpoint    string
	LogLevel        string
	ShutdownTimeout time.Duration
}

// Load reads the environment, falling back to defaults suitable for local runs.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:        getEnvOrDefault("HTTP_ADDR", ":8080"),
		GRPCAddr:        getEnvOrDefault("GRPC_ADDR", ":50051"),
		StoreDriver:     getEnvOrDefault("STORE_DRIVER", StoreMemory),
		DatabaseDSN:     os.Getenv("DATABASE_DSN"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		KafkaBrokers:    splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaSalesTopic: getEnvOrDefault("KAFKA_SALES_TOPIC", "PlateSold"),
		AMQPURL:         os.Getenv("AMQP_URL"),
		AMQPIntakeQueue: getEnvOrDefault("AMQP_INTAKE_QUEUE", "plate-intake"),
		OtelEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
	}

	timeout, err := time.ParseDuration(getEnvOrDefault("SHUTDOWN_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
	}
	cfg.ShutdownTimeout = timeout

	switch cfg.StoreDriver {
	case StoreMemory:
	case StoreMySQL, StorePostgres:
		if cfg.DatabaseDSN == "" {
			return nil, fmt.Errorf("DATABASE_DSN is required for STORE_DRIVER=%s", cfg.StoreDriver)
		}
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
