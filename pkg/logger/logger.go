package logger

import (
	"context"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	actorKey     ctxKey = "actor_id"
)

// Config mirrors config.LoggerConfig but avoids importing the config package here.
type Config struct {
	Level    string
	Encoding string
	// Output defaults to stdout.
	Output io.Writer
}

// New builds a zap.Logger using the provided configuration.
func New(cfg Config) (*zap.Logger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zapcore.InfoLevel
	if err := level.Set(cfg.Level); err != nil {
		level = zapcore.InfoLevel
	}

	var encoder zapcore.Encoder
	switch cfg.Encoding {
	case "console":
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	default:
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	core := zapcore.NewCore(
		encoder,
		zapcore.Lock(zapcore.AddSync(out)),
		level,
	)

	return zap.New(core, zap.AddCaller()), nil
}

// ContextWithRequestID attaches a request ID to the provided context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ContextWithActor attaches the authenticated user performing the request.
func ContextWithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey, userID)
}

// Actor returns the user stored by ContextWithActor.
func Actor(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	actor, _ := ctx.Value(actorKey).(string)
	return actor
}

// WithRequestID enriches the logger with the request ID and actor stored in the context.
func WithRequestID(ctx context.Context, base *zap.Logger) *zap.Logger {
	if ctx == nil || base == nil {
		return base
	}
	var fields []zap.Field
	if reqID, ok := ctx.Value(requestIDKey).(string); ok && reqID != "" {
		fields = append(fields, zap.String("request_id", reqID))
	}
	if actor := Actor(ctx); actor != "" {
		fields = append(fields, zap.String("actor_id", actor))
	}
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
