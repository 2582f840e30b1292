package logger

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.RWMutex
	base = zap.NewNop()
)

// Init builds the process-wide logger. Production environments get JSON
// output on stdout, anything else gets zap's colored development encoder.
func Init(env string) {
	l, err := New(env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return
	}

	Set(l)
}

func New(env string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.MessageKey = "msg"
		cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
		cfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.InitialFields = map[string]any{"env": env}

	return cfg.Build(zap.AddCallerSkip(1))
}

// Set replaces the process-wide logger. Tests use it with zaptest/observer.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}

	mu.Lock()
	base = l
	mu.Unlock()
}

func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func Sync() {
	_ = L().Sync()
}

func Debug(msg string, args ...any) {
	L().Debug(msg, Fields(args...)...)
}

func Info(msg string, args ...any) {
	L().Info(msg, Fields(args...)...)
}

func Warn(msg string, args ...any) {
	L().Warn(msg, Fields(args...)...)
}

func Error(msg string, args ...any) {
	L().Error(msg, Fields(args...)...)
}

func Fatal(msg string, args ...any) {
	L().Fatal(msg, Fields(args...)...)
}

// Fields turns the loose argument style used across the handlers into zap
// fields. Errors become "error", zap fields pass through, a string followed
// by a value is a key/value pair and anything else lands under "detail".
func Fields(args ...any) []zap.Field {
	fields := make([]zap.Field, 0, len(args))
	details := 0

	for i := 0; i < len(args); i++ {
		switch v := args[i].(type) {
		case nil:
			continue
		case zap.Field:
			fields = append(fields, v)
		case error:
			fields = append(fields, zap.Error(v))
		case string:
			if i+1 < len(args) {
				if _, isErr := args[i+1].(error); !isErr {
					fields = append(fields, zap.Any(v, args[i+1]))
					i++
					continue
				}
			}
			fields = append(fields, detail(details, v))
			details++
		default:
			fields = append(fields, detail(details, v))
			details++
		}
	}

	return fields
}

func detail(n int, v any) zap.Field {
	if n == 0 {
		return zap.Any("detail", v)
	}
	return zap.Any(fmt.Sprintf("detail_%d", n), v)
}
