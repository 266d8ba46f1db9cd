package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DATABASE_URL", "REDIS_ENABLED", "KAFKA_ENABLED", "VIEWER_TOKEN_SECRET",
		"VIEWER_TOKEN_TTL_SECONDS", "UNLOCK_MAX_ATTEMPTS", "UNLOCK_WINDOW_SECONDS", "CURRENCY",
		"JAEGER_ENDPOINT", "TRACE_SAMPLE_RATIO", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("JWT_SECRET", "s3cret")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "", cfg.Database.URL)
	assert.True(t, cfg.Redis.Enabled)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, "s3cret", cfg.Auth.ViewerTokenSecret)
	assert.Equal(t, 900, cfg.Auth.ViewerTokenTTLSecs)
	assert.Equal(t, 5, cfg.Business.UnlockMaxAttempts)
	assert.Equal(t, 600, cfg.Business.UnlockWindowSeconds)
	assert.Equal(t, "NGN", cfg.Payment.Currency)
	assert.Equal(t, "", cfg.Observ.JaegerEndpoint)
	assert.Equal(t, 1.0, cfg.Observ.TraceSampleRatio)
	assert.Equal(t, "", cfg.Observ.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PUBLIC_BASE_URL", "https://shop.example.com/")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("KAFKA_ENABLED", "false")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("UNLOCK_MAX_ATTEMPTS", "3")
	t.Setenv("TRACE_SAMPLE_RATIO", "0.25")
	t.Setenv("LOG_LEVEL", "warn")

	cfg := Load()

	assert.Equal(t, "https://shop.example.com", cfg.Server.PublicBaseURL)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 3, cfg.Business.UnlockMaxAttempts)
	assert.Equal(t, 0.25, cfg.Observ.TraceSampleRatio)
	assert.Equal(t, "warn", cfg.Observ.LogLevel)
}

func productionConfig() *Config {
	return &Config{
		Server:  ServerConfig{Env: "production"},
		Observ:  ObservabilityConfig{TraceSampleRatio: 0.1},
		Auth:    AuthConfig{JWTSecret: "prod-jwt", ViewerTokenSecret: "prod-viewer"},
		Payment: PaymentConfig{PaystackSecretKey: "sk_live_x"},
		Storage: StorageConfig{BaseURL: "https://files.example.com/storage"},
	}
}

func TestValidateAcceptsCompleteProductionConfig(t *testing.T) {
	require.NoError(t, productionConfig().Validate())
}

func TestValidateRejectsUnsafeProductionConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no paystack secret", func(c *Config) { c.Payment.PaystackSecretKey = "" }, "PAYSTACK_SECRET_KEY"},
		{"default jwt secret", func(c *Config) { c.Auth.JWTSecret = defaultJWTSecret }, "JWT_SECRET"},
		{"default viewer secret", func(c *Config) { c.Auth.ViewerTokenSecret = defaultJWTSecret }, "VIEWER_TOKEN_SECRET"},
		{"no storage base", func(c *Config) { c.Storage.BaseURL = "" }, "STORAGE_BASE_URL"},
		{"sample ratio above one", func(c *Config) { c.Observ.TraceSampleRatio = 2 }, "TRACE_SAMPLE_RATIO"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := productionConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidateAllowsDevDefaults(t *testing.T) {
	for _, key := range []string{"ENV", "JWT_SECRET", "VIEWER_TOKEN_SECRET", "PAYSTACK_SECRET_KEY", "STORAGE_BASE_URL", "TRACE_SAMPLE_RATIO"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "development", cfg.Server.Env)
	assert.NoError(t, cfg.Validate())

	cfg.Server.Env = "production"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnparseableSampleRatio(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("TRACE_SAMPLE_RATIO", "half")

	err := Load().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRACE_SAMPLE_RATIO")
}
