package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	PostgresUser      string
	PostgresPassword  string
	PostgresDB        string
	PostgresHost      string
	PostgresPort      string
	PostgresSSLMode   string
	PostgresTimeZone  string
	RailBaseURL       string
	RailClientID      string
	RailSecret        string
	RailWebhookSecret string // empty disables signature verification (sandbox rails don't sign)
	StartSyncNum      int64  // cursor bootstrap for a deployment that has never synced
	KafkaBrokers      string
	KafkaTopic        string
	DebugToken        string
}

func LoadConfig() (*Config, error) {
	// .env only fills vars not already set in the environment, so it must
	// be loaded before anything reads os.Getenv.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	startSyncNum, err := strconv.ParseInt(getEnv("START_SYNC_NUM", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid START_SYNC_NUM: %w", err)
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8001"),
		PostgresUser:      os.Getenv("POSTGRES_USER"),
		PostgresPassword:  os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:        os.Getenv("POSTGRES_DB"),
		PostgresHost:      os.Getenv("POSTGRES_HOST"),
		PostgresPort:      getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:   getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone:  getEnv("POSTGRES_TIMEZONE", "UTC"),
		RailBaseURL:       getEnv("RAIL_BASE_URL", "https://sandbox.transfer-rail.com"),
		RailClientID:      os.Getenv("RAIL_CLIENT_ID"),
		RailSecret:        os.Getenv("RAIL_SECRET"),
		RailWebhookSecret: os.Getenv("RAIL_WEBHOOK_SECRET"),
		StartSyncNum:      startSyncNum,
		KafkaBrokers:      getEnv("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopic:        getEnv("KAFKA_PAYMENT_TOPIC", "payment-status-events"),
		DebugToken:        os.Getenv("DEBUG_TOKEN"),
	}

	if cfg.PostgresUser == "" || cfg.PostgresPassword == "" || cfg.PostgresDB == "" || cfg.PostgresHost == "" ||
		cfg.RailClientID == "" || cfg.RailSecret == "" {
		return nil, fmt.Errorf("missing required environment variables")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
