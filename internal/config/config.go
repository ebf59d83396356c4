package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Kafka      KafkaConfig
	Redis      RedisConfig
	MarketData MarketDataConfig
	Accounting AccountingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

// KafkaConfig holds Kafka configuration. TradesTopic is the inbound
// topic broker integrations publish trades to; EventsTopic carries the
// service's own outbound events.
type KafkaConfig struct {
	Brokers     []string
	TradesTopic string
	EventsTopic string
	GroupID     string
}

// RedisConfig holds the market data cache configuration. An empty Addr
// disables caching.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// MarketDataConfig holds the upstream quote provider configuration.
type MarketDataConfig struct {
	BaseURL          string
	APIKey           string
	Timeout          time.Duration
	FetchConcurrency int
	FetchDelay       time.Duration
}

// AccountingConfig holds portfolio accounting defaults.
type AccountingConfig struct {
	DefaultMethod string
	RiskFreeRate  float64
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "portfolioservice"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", "db/migrations"),
		},
		Kafka: KafkaConfig{
			Brokers:     strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TradesTopic: getEnv("KAFKA_TRADES_TOPIC", "trade-events"),
			EventsTopic: getEnv("KAFKA_EVENTS_TOPIC", "portfolio-events"),
			GroupID:     getEnv("KAFKA_GROUP_ID", "portfolio-service"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			CacheTTL: getEnvDuration("REDIS_CACHE_TTL", 60*time.Second),
		},
		MarketData: MarketDataConfig{
			BaseURL:          getEnv("MARKET_DATA_URL", "http://localhost:9000"),
			APIKey:           getEnv("MARKET_DATA_API_KEY", ""),
			Timeout:          getEnvDuration("MARKET_DATA_TIMEOUT", 10*time.Second),
			FetchConcurrency: getEnvInt("MARKET_DATA_CONCURRENCY", 4),
			FetchDelay:       getEnvDuration("MARKET_DATA_DELAY", 250*time.Millisecond),
		},
		Accounting: AccountingConfig{
			DefaultMethod: getEnv("COST_BASIS_METHOD", "FIFO"),
			RiskFreeRate:  getEnvFloat("RISK_FREE_RATE", 0.05),
		},
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
