package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	Environment   string
	LogLevel      string
	LogFormat     string
	JWTSigningKey string
	JWTIssuer     string

	Database Database
	Redis    RedisConfig
	Kafka    KafkaConfig

	TxTimeout    time.Duration
	RuleCacheTTL time.Duration
	RuleSeedPath string
}

// Database configures the Postgres pool.
type Database struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the approval rule cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the outbox relay. No brokers disables it.
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	ClientID      string
	RelayInterval time.Duration
	RelayBatch    int
}

// IsProduction reports whether development defaults must be refused.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

// FromEnv builds a Server config from environment variables so main stays lean.
// A .env file in the working directory is loaded first when present; values
// already in the environment win.
func FromEnv() (Server, error) {
	_ = godotenv.Load()

	cfg := Server{
		Addr:          getString("ACADMIN_ADDR", ":8080"),
		Environment:   getString("ACADMIN_ENV", "development"),
		LogLevel:      getString("LOG_LEVEL", "info"),
		LogFormat:     getString("LOG_FORMAT", "json"),
		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
		JWTIssuer:     os.Getenv("JWT_ISSUER"),
		Database: Database{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Kafka: KafkaConfig{
			Brokers:  splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:    getString("KAFKA_TOPIC", "approval-events"),
			ClientID: getString("KAFKA_CLIENT_ID", "acadmin"),
		},
		RuleSeedPath: os.Getenv("APPROVAL_RULE_SEED"),
	}

	var err error
	if cfg.Database.MaxOpenConns, err = getInt("DB_MAX_OPEN_CONNS", 20); err != nil {
		return Server{}, err
	}
	if cfg.Database.MaxIdleConns, err = getInt("DB_MAX_IDLE_CONNS", 5); err != nil {
		return Server{}, err
	}
	if cfg.Database.ConnMaxLifetime, err = getDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute); err != nil {
		return Server{}, err
	}
	if cfg.Redis.PoolSize, err = getInt("REDIS_POOL_SIZE", 10); err != nil {
		return Server{}, err
	}
	if cfg.Redis.MinIdleConns, err = getInt("REDIS_MIN_IDLE_CONNS", 2); err != nil {
		return Server{}, err
	}
	if cfg.Redis.DialTimeout, err = getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Redis.ReadTimeout, err = getDuration("REDIS_READ_TIMEOUT", 3*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Redis.WriteTimeout, err = getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Kafka.RelayInterval, err = getDuration("OUTBOX_RELAY_INTERVAL", time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Kafka.RelayBatch, err = getInt("OUTBOX_RELAY_BATCH", 100); err != nil {
		return Server{}, err
	}
	if cfg.TxTimeout, err = getDuration("APPROVAL_TX_TIMEOUT", 10*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.RuleCacheTTL, err = getDuration("APPROVAL_RULE_CACHE_TTL", 5*time.Minute); err != nil {
		return Server{}, err
	}

	if err := cfg.validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (s *Server) validate() error {
	if s.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if s.JWTSigningKey == "" {
		if s.IsProduction() {
			return fmt.Errorf("JWT_SIGNING_KEY is required in production")
		}
		// Use a default for development - should be overridden in production
		s.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	return nil
}

func getString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
