package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnvs(t, map[string]string{"ENVIRONMENT": "development"})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessTTL)
	assert.Equal(t, "qvtu-shopping", cfg.JWTIssuer)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold)
	assert.Empty(t, cfg.TrustedProxies)
}

func TestLoad_FromEnv(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT":             "development",
		"HTTP_PORT":               "9000",
		"KAFKA_ENABLED":           "false",
		"KAFKA_BROKERS":           "k1:9092,k2:9092",
		"AUTH_RATE_LIMIT_RPS":     "0.5",
		"JWT_ACCESS_TOKEN_EXPIRY": "1h",
		"DB_MAX_CONNS":            "50",
		"TRUSTED_PROXIES":         "10.0.0.0/8,192.168.1.9",
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.InDelta(t, 0.5, cfg.AuthRateLimit, 1e-9)
	assert.Equal(t, time.Hour, cfg.JWTAccessTTL)
	assert.Equal(t, int32(50), cfg.Postgres().MaxConns)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.9"}, cfg.TrustedProxies)
}

func TestLoad_Development_AcceptsDefaultSecret(t *testing.T) {
	setEnvs(t, map[string]string{"ENVIRONMENT": "development", "JWT_SECRET": DefaultJWTSecret})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultJWTSecret, cfg.JWTSecret)
}

func TestLoad_Production_RejectsDefaultSecret(t *testing.T) {
	setEnvs(t, map[string]string{"ENVIRONMENT": "production", "JWT_SECRET": DefaultJWTSecret})

	cfg, err := Load()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET must be explicitly set")
}

func TestLoad_Production_RejectsShortSecret(t *testing.T) {
	setEnvs(t, map[string]string{"ENVIRONMENT": "production", "JWT_SECRET": "short-but-not-default-secret"})

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestLoad_Production_AcceptsStrongSecret(t *testing.T) {
	secret := "this-is-a-very-secure-secret-key-for-production-use-1234"
	setEnvs(t, map[string]string{"ENVIRONMENT": "production", "JWT_SECRET": secret})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, secret, cfg.JWTSecret)
	assert.False(t, cfg.IsDevelopment())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Environment:    "development",
			HTTPPort:       8080,
			DBMaxConns:     10,
			DBMinConns:     2,
			OTELSampleRate: 1,
			KafkaEnabled:   true,
			KafkaBrokers:   []string{"localhost:9092"},
			JWTAccessTTL:   time.Minute,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"port zero", func(c *Config) { c.HTTPPort = 0 }, "invalid HTTP port"},
		{"port too large", func(c *Config) { c.HTTPPort = 70000 }, "invalid HTTP port"},
		{"min over max", func(c *Config) { c.DBMinConns = 20 }, "DB_MIN_CONNS"},
		{"sample rate", func(c *Config) { c.OTELSampleRate = 1.5 }, "OTEL_SAMPLE_RATE"},
		{"no brokers", func(c *Config) { c.KafkaBrokers = nil }, "KAFKA_BROKERS"},
		{"kafka disabled without brokers", func(c *Config) { c.KafkaEnabled = false; c.KafkaBrokers = nil }, ""},
		{"zero ttl", func(c *Config) { c.JWTAccessTTL = 0 }, "JWT_ACCESS_TOKEN_EXPIRY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRedis(t *testing.T) {
	cfg := &Config{RedisAddr: "cache:6379", RedisPassword: "pw", RedisDB: 2, RedisPoolSize: 8}

	r := cfg.Redis()
	assert.Equal(t, "cache:6379", r.Addr)
	assert.Equal(t, "pw", r.Password)
	assert.Equal(t, 2, r.DB)
	assert.Equal(t, 8, r.PoolSize)
}
