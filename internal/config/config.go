package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ndatsenko/pulsemon/internal/models"
)

type Config struct {
	DB_HOST       string
	DB_PORT       string
	DB_USER       string
	DB_PASSWORD   string
	DB_NAME       string
	ES_URL        string
	ES_USER       string
	ES_PASSWORD   string
	KAFKA_ADDRESS string
	JWT_SECRET    string

	JWTTTLSeconds       int
	RoleCacheTTLSeconds int
	RateLimitMax        int
	RateLimitWindowSecs int
	LogLevel            string
}

// ErrMissingSecret means JWT_SECRET is unset or empty. This is a fatal
// configuration error: the server must not start without a signing secret.
var ErrMissingSecret = errors.New("JWT_SECRET is not set")

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		DB_HOST:       os.Getenv("DB_HOST"),
		DB_PORT:       os.Getenv("DB_PORT"),
		DB_USER:       os.Getenv("DB_USER"),
		DB_PASSWORD:   os.Getenv("DB_PASSWORD"),
		DB_NAME:       os.Getenv("DB_NAME"),
		ES_URL:        os.Getenv("ES_URL"),
		ES_USER:       os.Getenv("ES_USER"),
		ES_PASSWORD:   os.Getenv("ES_PASSWORD"),
		KAFKA_ADDRESS: os.Getenv("KAFKA_ADDRESS"),
		JWT_SECRET:    os.Getenv("JWT_SECRET"),

		JWTTTLSeconds:       envInt("JWT_TTL_SECONDS", 3600),
		RoleCacheTTLSeconds: envInt("ROLE_CACHE_TTL_SECONDS", 300),
		RateLimitMax:        envInt("RATE_LIMIT_MAX", 100),
		RateLimitWindowSecs: envInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		LogLevel:            os.Getenv("LOG_LEVEL"),
	}

	if config.JWT_SECRET == "" {
		return nil, ErrMissingSecret
	}

	return config, nil
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func InitDB(configuration *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		configuration.DB_USER,
		configuration.DB_PASSWORD,
		configuration.DB_HOST,
		configuration.DB_PORT,
		configuration.DB_NAME,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs AutoMigrate for every model. Shared with the test DB helper.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Session{},
		&models.APIClient{},
		&models.System{},
		&models.Metric{},
		&models.Alert{},
	); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
