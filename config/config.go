package config

import (
	"fmt"
	"time"

	"rental-ledger/logger"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// App holds the runtime configuration read from the environment
type App struct {
	// Server
	Host        string `envconfig:"APP_HOST" default:"0.0.0.0"`
	Port        string `envconfig:"APP_PORT" default:"8080"`
	FrontendURL string `envconfig:"FRONTEND_URL" default:"*"`

	// DB
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBDatabase string `envconfig:"DB_DATABASE" default:"rental_ledger"`
	DBUsername string `envconfig:"DB_USERNAME" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	// Redis locks; empty address keeps locking in-process
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	LockTTL       time.Duration `envconfig:"REDIS_LOCK_TTL" default:"30s"`

	// RabbitMQ events; empty url disables publishing
	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"rental.events"`

	// Gemini
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash-lite"`

	// Receipt archive
	ReceiptBucket string `envconfig:"RECEIPT_BUCKET"`
	S3Region      string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Endpoint    string `envconfig:"S3_ENDPOINT"`
	S3AccessKey   string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey   string `envconfig:"S3_SECRET_KEY"`

	// Settlement
	SettlementDelay   time.Duration `envconfig:"SETTLEMENT_DELAY" default:"5s"`
	SettlementWorkers int           `envconfig:"SETTLEMENT_WORKERS" default:"4"`
}

// Load reads .env when present and processes the environment into App
func Load() (App, error) {
	if err := godotenv.Load(); err != nil {
		logger.Warning("No .env file loaded, using process environment")
	}

	var c App
	if err := envconfig.Process("", &c); err != nil {
		return c, fmt.Errorf("failed to process environment: %w", err)
	}
	return c, nil
}

// DSN builds the postgres connection string
func (c App) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUsername, c.DBPassword, c.DBDatabase, c.DBSSLMode)
}

// Addr is the listen address for the HTTP server
func (c App) Addr() string {
	return c.Host + ":" + c.Port
}
