package observability

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
	ctxKeyUserID    ctxKey = "user_id"
)

// basic global logger, JSON to stdout. Level is read once from PARLEY_LOG_LEVEL.
var logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
	Level: levelFromEnv(),
}))

func Logger() *slog.Logger {
	return logger
}

// WithFields returns a logger with additional fields.
func WithFields(kv ...any) *slog.Logger {
	return logger.With(kv...)
}

// WithRequestID stores a request_id in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// WithUserID stores the caller identity in the context for log correlation.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

// LoggerFromContext adds request_id and user_id if present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	log := logger
	if reqID, _ := ctx.Value(ctxKeyRequestID).(string); reqID != "" {
		log = log.With("request_id", reqID)
	}
	if userID, _ := ctx.Value(ctxKeyUserID).(string); userID != "" {
		log = log.With("user_id", userID)
	}
	return log
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("PARLEY_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
