package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIP_PeerOnly(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.9:5555"
	req.Header.Set("X-Real-IP", "172.16.0.4")
	req.Header.Set("X-Forwarded-For", "203.0.113.7")

	assert.Equal(t, "192.168.1.9", ClientIP(req))

	var none *ClientIPResolver
	assert.Equal(t, "192.168.1.9", none.ClientIP(req))

	empty, err := NewClientIPResolver(nil)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.9", empty.ClientIP(req))
}

func TestClientIPResolver(t *testing.T) {
	ips, err := NewClientIPResolver([]string{"10.0.0.0/8", " 192.168.1.9 ", ""})
	require.NoError(t, err)

	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"untrusted peer ignores headers", "198.51.100.1:80", "203.0.113.7", "203.0.113.8", "198.51.100.1"},
		{"trusted peer uses forwarded client", "10.1.2.3:80", "203.0.113.7", "", "203.0.113.7"},
		{"rightmost untrusted hop wins", "10.1.2.3:80", "1.2.3.4, 203.0.113.7, 10.9.9.9", "", "203.0.113.7"},
		{"single trusted address", "192.168.1.9:80", "203.0.113.7", "", "203.0.113.7"},
		{"malformed hop stops the walk", "10.1.2.3:80", "203.0.113.7, garbage", "172.16.0.4", "172.16.0.4"},
		{"real ip fallback", "10.1.2.3:80", "", "172.16.0.4", "172.16.0.4"},
		{"all hops trusted", "10.1.2.3:80", "10.0.0.1", "", "10.1.2.3"},
		{"unparseable peer", "unix-socket", "203.0.113.7", "", "unix-socket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, ips.ClientIP(req))
		})
	}
}

func TestNewClientIPResolver_RejectsInvalid(t *testing.T) {
	_, err := NewClientIPResolver([]string{"10.0.0.0/33"})
	assert.Error(t, err)

	_, err = NewClientIPResolver([]string{"proxy.internal"})
	assert.Error(t, err)
}
