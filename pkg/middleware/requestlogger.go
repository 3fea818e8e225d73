package middleware

import (
	"log/slog"
	"net/http"

	"github.com/Astrolithia/qvtu-shopping/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context for
// logger.FromContext. Service logs written through it carry the method and
// path of the request along with the correlation, user and trace ids.
// Mount it after RequestLogging and Tracing, and again after Auth to pick
// up the user id.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if userID := UserIDFromContext(ctx); userID != "" {
				ctx = logger.WithUserID(ctx, userID)
			}
			l := logger.WithContext(ctx, base).With(
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			next.ServeHTTP(w, r.WithContext(logger.NewContext(ctx, l)))
		})
	}
}
