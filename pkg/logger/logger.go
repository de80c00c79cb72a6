package logger

import (
	"context"
	"errors"
	"log"
	"os"
	"syscall"

	"github.com/spf13/viper"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey string

const (
	requestIDKey     contextKey = "requestID"
	correlationIDKey contextKey = "correlationID"
)

var (
	structuredLogger *zap.Logger
	sugaredLogger    *zap.SugaredLogger
)

func init() {
	New(getEnv())
}

func New(env string) {
	zapCfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(zap.DebugLevel),
		Development: env != "prod",
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:     "message",
			LevelKey:       "level",
			TimeKey:        "time",
			NameKey:        "logger",
			CallerKey:      "file",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
			EncodeName:     zapcore.FullNameEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	if env == "prod" {
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	if env == "local" {
		zapCfg.Encoding = "console"
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	l, err := zapCfg.Build(zap.WithCaller(true), zap.AddCallerSkip(1))
	if err != nil {
		log.Fatal(err)
	}
	structuredLogger, sugaredLogger = l, l.Sugar()
}

// WithRequestID stores the id of the inbound request for log correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithCorrelationID stores the id shared by every sub-call of one logical client operation.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

func Context(ctx context.Context) *zap.SugaredLogger {
	args := make([]any, 0, 4)
	if ctx != nil {
		if requestID := RequestID(ctx); requestID != "" {
			args = append(args, "requestID", requestID)
		}
		if correlationID := CorrelationID(ctx); correlationID != "" {
			args = append(args, "correlationID", correlationID)
		}
	}

	return sugaredLogger.With(args...).WithOptions(zap.AddCallerSkip(-1))
}

func Structure() *zap.Logger {
	return structuredLogger
}

func Info(args ...any) {
	if getEnv() == "local" {
		sugaredLogger.WithOptions(zap.WithCaller(false), zap.AddCallerSkip(-1)).Info(args...)
		return
	}
	sugaredLogger.Info(args...)
}

func Infof(template string, args ...any) {
	if getEnv() == "local" {
		sugaredLogger.WithOptions(zap.WithCaller(false), zap.AddCallerSkip(-1)).Infof(template, args...)
		return
	}
	sugaredLogger.Infof(template, args...)
}

func Debug(args ...any) {
	sugaredLogger.Debug(args...)
}

func Debugf(template string, args ...any) {
	sugaredLogger.Debugf(template, args...)
}

func Warn(args ...any) {
	sugaredLogger.Warn(args...)
}

func Warnf(template string, args ...any) {
	sugaredLogger.Warnf(template, args...)
}

func Error(args ...any) {
	sugaredLogger.Error(args...)
}

func Errorf(template string, args ...any) {
	sugaredLogger.Errorf(template, args...)
}

func Fatal(args ...any) {
	sugaredLogger.Fatal(args...)
}

func Fatalf(template string, args ...any) {
	sugaredLogger.Fatalf(template, args...)
}

func getEnv() string {
	if env := os.Getenv("APP_ENVIRONMENT"); len(env) > 0 {
		return env
	} else if env = viper.GetString("env"); len(env) > 0 {
		return env
	}
	return "prod"
}

func Sync() {
	if err := sugaredLogger.Sync(); err != nil && !errors.Is(err, syscall.ENOTTY) && !errors.Is(err, syscall.EINVAL) {
		Error(err)
	}
}
