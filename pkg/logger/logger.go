package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

type loggerKey struct{}

type fieldsKey struct{}

// requestFields are the per-request values stamped on log lines and events.
type requestFields struct {
	correlationID string
	userID        string
}

func fieldsFrom(ctx context.Context) requestFields {
	f, _ := ctx.Value(fieldsKey{}).(requestFields)
	return f
}

// New creates a JSON logger on stdout tagged with the service name.
func New(serviceName, level string) *slog.Logger {
	return NewWithWriter(serviceName, level, os.Stdout)
}

// NewWithWriter creates a JSON logger writing to w. Records logged with a
// context pick up its correlation, user and trace ids.
func NewWithWriter(serviceName, level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	base := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	})
	return slog.New(&contextHandler{Handler: base}).With(slog.String("service", serviceName))
}

// ParseLevel maps a config string to a slog level. Unknown values mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithCorrelationID returns a copy of ctx carrying the request correlation id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	f := fieldsFrom(ctx)
	f.correlationID = id
	return context.WithValue(ctx, fieldsKey{}, f)
}

// CorrelationIDFromContext returns the correlation id, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	return fieldsFrom(ctx).correlationID
}

// WithUserID returns a copy of ctx carrying the acting user id.
func WithUserID(ctx context.Context, id string) context.Context {
	f := fieldsFrom(ctx)
	f.userID = id
	return context.WithValue(ctx, fieldsKey{}, f)
}

// UserIDFromContext returns the user id stored by WithUserID, or "".
func UserIDFromContext(ctx context.Context) string {
	return fieldsFrom(ctx).userID
}

// NewContext stores l in ctx.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the request-scoped logger, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// WithContext binds the ids in ctx to l, so they appear even on records
// logged without a context.
func WithContext(ctx context.Context, l *slog.Logger) *slog.Logger {
	attrs := contextAttrs(ctx)
	if h, ok := l.Handler().(*contextHandler); ok {
		return slog.New(&contextHandler{Handler: h.Handler.WithAttrs(attrs), bound: true})
	}
	args := make([]any, 0, len(attrs))
	for _, a := range attrs {
		args = append(args, a)
	}
	return l.With(args...)
}

func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	f := fieldsFrom(ctx)
	if f.correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", f.correlationID))
	}
	if f.userID != "" {
		attrs = append(attrs, slog.String("user_id", f.userID))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return attrs
}

// contextHandler adds the request ids of the record's context. Once bound by
// WithContext it leaves records alone to avoid repeating keys.
type contextHandler struct {
	slog.Handler
	bound bool
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.bound && ctx != nil {
		r.AddAttrs(contextAttrs(ctx)...)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs), bound: h.bound}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name), bound: h.bound}
}
