package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Astrolithia/qvtu-shopping/pkg/httputil"
	"github.com/Astrolithia/qvtu-shopping/pkg/logger"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return logger.NewWithWriter("test-svc", "info", buf)
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}
