package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, rps float64, burst int) *RateLimiter {
	return newProxiedLimiter(t, rps, burst, nil)
}

func newProxiedLimiter(t *testing.T, rps float64, burst int, ips *ClientIPResolver) *RateLimiter {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewRateLimiter(ctx, rps, burst, time.Minute, ips, newTestLogger(&bytes.Buffer{}))
}

func send(h http.Handler, remote string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = remote
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_AllowsBurstThenRejects(t *testing.T) {
	h := newTestLimiter(t, 0.001, 3).Handler(okHandler)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, send(h, "10.0.0.1:1234").Code)
	}

	rec := send(h, "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	resp := decodeEnvelope(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "RATE_LIMITED", resp.Error.Code)
}

func TestRateLimiter_IndependentPerIP(t *testing.T) {
	h := newTestLimiter(t, 0.001, 1).Handler(okHandler)

	assert.Equal(t, http.StatusOK, send(h, "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, send(h, "10.0.0.1:2").Code)
	assert.Equal(t, http.StatusOK, send(h, "10.0.0.2:1").Code)
}

func TestRateLimiter_EvictsIdleVisitors(t *testing.T) {
	rl := newTestLimiter(t, 1, 1)
	now := time.Now()
	rl.now = func() time.Time { return now }

	rl.limiterFor("10.0.0.1")
	rl.limiterFor("10.0.0.2")

	now = now.Add(2 * time.Minute)
	rl.limiterFor("10.0.0.2")
	rl.evictIdle()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.visitors, "10.0.0.1")
	assert.Contains(t, rl.visitors, "10.0.0.2")
}

func TestRateLimiter_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	h := newTestLimiter(t, 0.001, 1).Handler(okHandler)

	assert.Equal(t, http.StatusOK, send(h, "198.51.100.20:1", "X-Forwarded-For", "203.0.113.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, send(h, "198.51.100.20:2", "X-Forwarded-For", "203.0.113.2").Code)
	assert.Equal(t, http.StatusTooManyRequests, send(h, "198.51.100.20:3", "X-Real-IP", "203.0.113.3").Code)
}

func TestRateLimiter_KeysOnForwardedClientBehindTrustedProxy(t *testing.T) {
	ips, err := NewClientIPResolver([]string{"10.0.0.0/8"})
	require.NoError(t, err)
	h := newProxiedLimiter(t, 0.001, 1, ips).Handler(okHandler)

	assert.Equal(t, http.StatusOK, send(h, "10.0.0.5:1", "X-Forwarded-For", "203.0.113.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, send(h, "10.0.0.6:1", "X-Forwarded-For", "203.0.113.1").Code)
	assert.Equal(t, http.StatusOK, send(h, "10.0.0.5:2", "X-Forwarded-For", "203.0.113.2").Code)

	// A client prepending its own entries still lands on the address the proxy saw.
	assert.Equal(t, http.StatusTooManyRequests,
		send(h, "10.0.0.5:3", "X-Forwarded-For", "192.0.2.99, 203.0.113.2").Code)
}
