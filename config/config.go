package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// DBConfig holds database configuration
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the PostgreSQL connection string
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}

type ServerConfig struct {
	Port string
	Env  string
}

type RedisConfig struct {
	Addr     string
	Password string
	TTL      time.Duration
}

type KafkaConfig struct {
	Broker  string
	Topic   string
	GroupID string
}

type Config struct {
	ServiceName string
	Version     string
	Server      ServerConfig
	// Storage selects the repository: "postgres" or "memory".
	Storage          string
	DB               DBConfig
	Redis            RedisConfig
	Kafka            KafkaConfig
	ElasticsearchURL string
	SentryDSN        string
	JWTSecret        string
	LogLevel         string
	// PublicURL is used to build the onboarding links sent in reminders.
	PublicURL string
}

// Load reads configuration from the environment, loading a .env file first
// when one is present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found, using environment variables\n")
	}

	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "onboarding-forms"),
		Version:     getEnv("APP_VERSION", "dev"),
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("APP_ENV", "development"),
		},
		Storage: getEnv("STORAGE", "postgres"),
		DB: DBConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "onboarding"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 50),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		Redis: RedisConfig{
			Addr:     redisAddr(getEnv("REDIS_HOST", "localhost:6379")),
			Password: getEnv("REDIS_PASSWORD", ""),
			TTL:      getEnvAsDuration("CACHE_TTL", 10*time.Minute),
		},
		Kafka: KafkaConfig{
			Broker:  getEnv("KAFKA_BROKER", ""),
			Topic:   getEnv("KAFKA_TOPIC", "form_events"),
			GroupID: getEnv("KAFKA_GROUP_ID", "onboarding-forms"),
		},
		ElasticsearchURL: getEnv("ELASTICSEARCH_URL", ""),
		SentryDSN:        getEnv("SENTRY_DSN", ""),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		PublicURL:        strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:3000"), "/"),
	}

	if cfg.JWTSecret == "" && cfg.Server.Env == "production" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}

	return cfg, nil
}

// Fields returns the non-secret parts of the configuration for startup logs.
func (c *Config) Fields() []zap.Field {
	return []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Server.Env),
		zap.String("port", c.Server.Port),
		zap.String("storage", c.Storage),
		zap.String("db_host", c.DB.Host),
		zap.String("db_name", c.DB.Name),
		zap.String("redis", c.Redis.Addr),
		zap.String("kafka_broker", c.Kafka.Broker),
		zap.Bool("search_enabled", c.ElasticsearchURL != ""),
		zap.Bool("sentry_enabled", c.SentryDSN != ""),
	}
}

func redisAddr(host string) string {
	if !strings.Contains(host, ":") {
		return host + ":6379"
	}
	return host
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}
