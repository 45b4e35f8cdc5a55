package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort        string
	DatabaseDSN     string
	JWTSecret       string
	CORSOrigins     string
	AppPasswordHash string // bcrypt hash of the shared staff password
	OfflineDataPath string // terminal-local staging file
	PaymentIBAN     string
	PaymentCurrency string
	PaymentMessage  string // payment message prefix, order number is appended
}

func Load() *Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:     getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=svarak port=5432 sslmode=disable"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		CORSOrigins:     getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		AppPasswordHash: getEnv("APP_PASSWORD_HASH", ""),
		OfflineDataPath: getEnv("OFFLINE_DATA_PATH", "./data/offline.json"),
		PaymentIBAN:     getEnv("PAYMENT_IBAN", "CZ3001000000430831990287"),
		PaymentCurrency: getEnv("PAYMENT_CURRENCY", "CZK"),
		PaymentMessage:  getEnv("PAYMENT_MESSAGE", "Čertovský svařáček"),
	}

	if cfg.JWTSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET is not set, refusing to start")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("[FATAL] JWT_SECRET must be at least 32 characters")
	}
	if cfg.AppPasswordHash == "" {
		log.Fatal("[FATAL] APP_PASSWORD_HASH is not set, refusing to start")
	}
	if cfg.DatabaseDSN == "host=localhost user=postgres password=postgres dbname=svarak port=5432 sslmode=disable" {
		log.Println("[WARN] DATABASE_DSN is using the default value, set your own Postgres connection for production")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
