package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Config holds all configuration for our application
type Config struct {
	Port                      string
	Origin                    string
	Environment               string
	LogLevel                  string
	JWTSecret                 string
	JWTRefreshSecret          string
	JWTExpirationMinutes      int
	JWTRefreshExpirationHours int
	ConsultationFee           decimal.Decimal
	Database                  DatabaseConfig
	Redis                     RedisConfig
	Kafka                     KafkaConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// RedisConfig holds the token denylist store. An empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds the domain event sink. No brokers disables publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	dbConfig := DatabaseConfig{
		Driver:   strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		Host:     getEnv("DB_HOST", "localhost"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "clinic"),
	}

	// Appointment dates are UTC midnights; the session must not shift them.
	switch dbConfig.Driver {
	case "mysql":
		dbConfig.Port = getEnv("DB_PORT", "3306")
		dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)
	case "postgres":
		dbConfig.Port = getEnv("DB_PORT", "5432")
		dbConfig.DSN = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			dbConfig.Host, dbConfig.Port, dbConfig.Username, dbConfig.Password, dbConfig.Name)
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER %q: want mysql or postgres", dbConfig.Driver)
	}
	if dsn := getEnv("DB_DSN", ""); dsn != "" {
		dbConfig.DSN = dsn
	}

	jwtExpMinutes, err := strconv.Atoi(getEnv("JWT_EXPIRATION_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_MINUTES: %w", err)
	}

	jwtRefreshExpHours, err := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRATION_HOURS", "168")) // 7 days
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_REFRESH_EXPIRATION_HOURS: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	fee, err := decimal.NewFromString(getEnv("CONSULTATION_FEE", "50.00"))
	if err != nil {
		return nil, fmt.Errorf("invalid CONSULTATION_FEE: %w", err)
	}
	if !fee.IsPositive() {
		return nil, fmt.Errorf("invalid CONSULTATION_FEE: must be positive")
	}

	var brokers []string
	for _, b := range strings.Split(getEnv("KAFKA_BROKERS", ""), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	return &Config{
		Port:                      getEnv("PORT", "3001"),
		Origin:                    getEnv("ORIGIN", "http://localhost:4200"),
		Environment:               getEnv("APP_ENV", "development"),
		LogLevel:                  getEnv("LOG_LEVEL", "info"),
		JWTSecret:                 getEnv("JWT_SECRET", "default_jwt_secret"),
		JWTRefreshSecret:          getEnv("JWT_REFRESH_SECRET", "default_refresh_secret"),
		JWTExpirationMinutes:      jwtExpMinutes,
		JWTRefreshExpirationHours: jwtRefreshExpHours,
		ConsultationFee:           fee.Round(2),
		Database:                  dbConfig,
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   getEnv("KAFKA_TOPIC", "clinic.appointments"),
		},
	}, nil
}

// IsDev reports whether the server runs in development mode.
func (c *Config) IsDev() bool {
	return c.Environment == "development"
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
