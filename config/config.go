package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Observ   ObservabilityConfig
	Auth     AuthConfig
	Payment  PaymentConfig
	Email    EmailConfig
	Business BusinessConfig
	Storage  StorageConfig
}

type ServerConfig struct {
	Port          string
	Env           string
	PublicBaseURL string
}

// DatabaseConfig selects the Postgres store; an empty URL runs on the
// in-memory store.
type DatabaseConfig struct {
	URL string
}

// RedisConfig backs unlock attempt throttling; disabled runs without it.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// KafkaConfig carries storefront events; disabled sends receipts inline.
type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	TopicEvents   string
	ConsumerGroup string
}

type ObservabilityConfig struct {
	JaegerEndpoint   string // empty keeps spans in-process
	TraceSampleRatio float64
	LogLevel         string
}

type AuthConfig struct {
	JWTSecret          string
	ViewerTokenSecret  string
	ViewerTokenTTLSecs int
}

type PaymentConfig struct {
	PaystackSecretKey string
	PaystackBaseURL   string
	Currency          string
}

type EmailConfig struct {
	ResendAPIKey string
	From         string
	Mock         bool
}

// StorageConfig names the object store shared files must live in
type StorageConfig struct {
	BaseURL string
}

type BusinessConfig struct {
	UnlockMaxAttempts   int
	UnlockWindowSeconds int
}

const defaultJWTSecret = "dev-secret-change-me"

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	viewerTTL, _ := strconv.Atoi(getEnv("VIEWER_TOKEN_TTL_SECONDS", "900"))
	maxAttempts, _ := strconv.Atoi(getEnv("UNLOCK_MAX_ATTEMPTS", "5"))
	unlockWindow, _ := strconv.Atoi(getEnv("UNLOCK_WINDOW_SECONDS", "600"))
	sampleRatio, err := strconv.ParseFloat(getEnv("TRACE_SAMPLE_RATIO", "1"), 64)
	if err != nil {
		sampleRatio = -1
	}

	jwtSecret := getEnv("JWT_SECRET", defaultJWTSecret)

	cfg := &Config{
		Server: ServerConfig{
			Port:          getEnv("PORT", "8080"),
			Env:           getEnv("ENV", "development"),
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "true") == "true",
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Kafka: KafkaConfig{
			Enabled:       getEnv("KAFKA_ENABLED", "true") == "true",
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicEvents:   getEnv("KAFKA_TOPIC_STOREFRONT_EVENTS", "storefront-events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "storefront-notifications"),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint:   os.Getenv("JAEGER_ENDPOINT"),
			TraceSampleRatio: sampleRatio,
			LogLevel:         getEnv("LOG_LEVEL", ""),
		},
		Auth: AuthConfig{
			JWTSecret:          jwtSecret,
			ViewerTokenSecret:  getEnv("VIEWER_TOKEN_SECRET", jwtSecret),
			ViewerTokenTTLSecs: viewerTTL,
		},
		Payment: PaymentConfig{
			PaystackSecretKey: getEnv("PAYSTACK_SECRET_KEY", ""),
			PaystackBaseURL:   strings.TrimRight(getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"), "/"),
			Currency:          getEnv("CURRENCY", "NGN"),
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			From:         getEnv("EMAIL_FROM", "Vantage Store <onboarding@resend.dev>"),
			Mock:         getEnv("EMAIL_MOCK", "true") == "true",
		},
		Storage: StorageConfig{
			BaseURL: strings.TrimRight(getEnv("STORAGE_BASE_URL", ""), "/"),
		},
		Business: BusinessConfig{
			UnlockMaxAttempts:   maxAttempts,
			UnlockWindowSeconds: unlockWindow,
		},
	}

	log.Printf("Config loaded: env=%s, port=%s", cfg.Server.Env, cfg.Server.Port)
	return cfg
}

// Validate rejects malformed settings, and in production also the settings
// that are only safe for local development.
func (c *Config) Validate() error {
	var problems []error
	if c.Observ.TraceSampleRatio < 0 || c.Observ.TraceSampleRatio > 1 {
		problems = append(problems, errors.New("TRACE_SAMPLE_RATIO must be between 0 and 1"))
	}
	if c.Server.Env != "production" {
		return joinProblems(problems)
	}

	if c.Payment.PaystackSecretKey == "" {
		problems = append(problems, errors.New("PAYSTACK_SECRET_KEY is required"))
	}
	if c.Auth.JWTSecret == defaultJWTSecret {
		problems = append(problems, errors.New("JWT_SECRET must be set"))
	}
	if c.Auth.ViewerTokenSecret == defaultJWTSecret {
		problems = append(problems, errors.New("VIEWER_TOKEN_SECRET must be set"))
	}
	if c.Storage.BaseURL == "" {
		problems = append(problems, errors.New("STORAGE_BASE_URL is required"))
	}
	return joinProblems(problems)
}

func joinProblems(problems []error) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("invalid config: %w", errors.Join(problems...))
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
