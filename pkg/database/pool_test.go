package database

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryBackoff_ExponentialWithJitter(t *testing.T) {
	for attempt := 0; attempt < 3; attempt++ {
		base := defaultRetryBaseWait << attempt
		low := time.Duration(float64(base) * (1 - retryJitterFraction))
		high := time.Duration(float64(base) * (1 + retryJitterFraction))

		for i := 0; i < 20; i++ {
			d := retryBackoff(attempt)
			assert.GreaterOrEqual(t, d, low)
			assert.LessOrEqual(t, d, high)
		}
	}
}

func TestRetryBackoff_NegativeAttempt(t *testing.T) {
	d := retryBackoff(-3)
	assert.LessOrEqual(t, d, time.Duration(float64(defaultRetryBaseWait)*(1+retryJitterFraction)))
}

func TestIsConnectionError(t *testing.T) {
	assert.False(t, isConnectionError(nil))
	assert.True(t, isConnectionError(errors.New("dial tcp 127.0.0.1:5432: connection refused")))
	assert.True(t, isConnectionError(errors.New("read: connection reset by peer")))
	assert.True(t, isConnectionError(errors.New("write: broken pipe")))
	assert.True(t, isConnectionError(errors.New("i/o timeout")))
	assert.False(t, isConnectionError(errors.New("syntax error at or near \"TABLE\"")))
	assert.False(t, isConnectionError(errors.New("duplicate key value violates unique constraint")))
}

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := PostgresConfig{
		Host: "db", Port: 5433, User: "shop", Password: "secret", DBName: "qvtu", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://shop:secret@db:5433/qvtu?sslmode=disable", cfg.DSN())
}
