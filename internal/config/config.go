package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/spraylab/streetshop/internal/models"
)

type Config struct {
	PORT                string
	DB_HOST             string
	DB_PORT             string
	DB_USER             string
	DB_PASSWORD         string
	DB_NAME             string
	ES_URL              string
	ES_USER             string
	ES_PASSWORD         string
	JWT_SECRET          string
	REFRESH_SECRET      string
	KAFKA_ADDRESS       string
	REDIS_ADDR          string
	MIDTRANS_SERVER_KEY string
	MIDTRANS_BASE_URL   string
	BITESHIP_API_KEY    string
	BITESHIP_BASE_URL   string
	RESEND_API_KEY      string
	MAIL_FROM           string
	GEOCODING_API_KEY   string
	CRON_SECRET         string
	LOG_LEVEL           string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		PORT:                getenv("PORT", "8080"),
		DB_HOST:             os.Getenv("DB_HOST"),
		DB_PORT:             os.Getenv("DB_PORT"),
		DB_USER:             os.Getenv("DB_USER"),
		DB_PASSWORD:         os.Getenv("DB_PASSWORD"),
		DB_NAME:             os.Getenv("DB_NAME"),
		ES_URL:              os.Getenv("ES_URL"),
		ES_USER:             os.Getenv("ES_USER"),
		ES_PASSWORD:         os.Getenv("ES_PASSWORD"),
		JWT_SECRET:          os.Getenv("JWT_SECRET"),
		REFRESH_SECRET:      os.Getenv("REFRESH_SECRET"),
		KAFKA_ADDRESS:       os.Getenv("KAFKA_ADDRESS"),
		REDIS_ADDR:          os.Getenv("REDIS_ADDR"),
		MIDTRANS_SERVER_KEY: os.Getenv("MIDTRANS_SERVER_KEY"),
		MIDTRANS_BASE_URL:   getenv("MIDTRANS_BASE_URL", "https://app.sandbox.midtrans.com"),
		BITESHIP_API_KEY:    os.Getenv("BITESHIP_API_KEY"),
		BITESHIP_BASE_URL:   getenv("BITESHIP_BASE_URL", "https://api.biteship.com"),
		RESEND_API_KEY:      os.Getenv("RESEND_API_KEY"),
		MAIL_FROM:           getenv("MAIL_FROM", "STREETSHOP <noreply@spraylab.id>"),
		GEOCODING_API_KEY:   os.Getenv("GEOCODING_API_KEY"),
		CRON_SECRET:         os.Getenv("CRON_SECRET"),
		LOG_LEVEL:           getenv("LOG_LEVEL", "info"),
	}

	return config, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func InitDB() (*gorm.DB, error) {
	configuration, _ := LoadConfig()

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		configuration.DB_USER,
		configuration.DB_PASSWORD,
		configuration.DB_HOST,
		configuration.DB_PORT,
		configuration.DB_NAME,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("db connection failed: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("db migration failed: %w", err)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.Variant{},
		&models.User{},
		&models.RefreshToken{},
		&models.PasswordReset{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	)
}
