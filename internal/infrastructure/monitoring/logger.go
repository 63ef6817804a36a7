// Package monitoring provides the observability backends: the zap-based
// logger, prometheus metrics, and the jaeger tracing bootstrap.
package monitoring

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/turtacn/riskpulse/internal/config"
	"github.com/turtacn/riskpulse/pkg/constants"
	"github.com/turtacn/riskpulse/pkg/logger"
)

// zapLogger implements logger.Logger on top of zap. Request and trace ids are
// pulled from the context on every entry.
type zapLogger struct {
	zl *zap.Logger
}

// NewLogger builds the production logger from configuration. Format "console"
// gives human-readable output for development; anything else is JSON.
func NewLogger(cfg config.LogConfig) (logger.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(cfg.Level); err != nil && cfg.Level != "" {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level)
	zl := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return &zapLogger{zl: zl.With(zap.String("service", constants.ServiceName))}, nil
}

func (l *zapLogger) Debug(ctx context.Context, msg string, fields ...logger.Field) {
	l.zl.Debug(msg, l.zapFields(ctx, fields)...)
}

func (l *zapLogger) Info(ctx context.Context, msg string, fields ...logger.Field) {
	l.zl.Info(msg, l.zapFields(ctx, fields)...)
}

func (l *zapLogger) Warn(ctx context.Context, msg string, fields ...logger.Field) {
	l.zl.Warn(msg, l.zapFields(ctx, fields)...)
}

func (l *zapLogger) Error(ctx context.Context, msg string, err error, fields ...logger.Field) {
	zf := l.zapFields(ctx, fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	l.zl.Error(msg, zf...)
}

func (l *zapLogger) Fatal(ctx context.Context, msg string, err error, fields ...logger.Field) {
	zf := l.zapFields(ctx, fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	l.zl.Fatal(msg, zf...)
}

func (l *zapLogger) WithComponent(component string) logger.Logger {
	return &zapLogger{zl: l.zl.With(zap.String("component", component))}
}

func (l *zapLogger) WithFields(fields ...logger.Field) logger.Logger {
	zf := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		zf = append(zf, zap.Any(f.Key, logger.Sanitize(f.Key, f.Value)))
	}
	return &zapLogger{zl: l.zl.With(zf...)}
}

func (l *zapLogger) zapFields(ctx context.Context, fields []logger.Field) []zap.Field {
	zf := make([]zap.Field, 0, len(fields)+2)
	if v, ok := ctx.Value(constants.ContextKeyRequestID).(string); ok && v != "" {
		zf = append(zf, zap.String("request_id", v))
	}
	if v, ok := ctx.Value(constants.ContextKeyTraceID).(string); ok && v != "" {
		zf = append(zf, zap.String("trace_id", v))
	}
	for _, f := range fields {
		zf = append(zf, zap.Any(f.Key, logger.Sanitize(f.Key, f.Value)))
	}
	return zf
}
