package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	global *zap.Logger
	once   sync.Once
)

// Init initializes the global logger. Level is one of debug/info/warn/error;
// an unrecognized value falls back to info. Format "pretty" switches to the
// development console encoder.
func Init(level, format string) error {
	var err error
	once.Do(func() {
		global, err = New(level, format)
	})
	return err
}

// Get returns the global logger, initializing it with defaults if needed.
func Get() *zap.Logger {
	if global == nil {
		_ = Init("info", "json")
	}
	return global
}

// Sync flushes any buffered log entries.
func Sync() {
	if global != nil {
		_ = global.Sync()
	}
}

// New builds a standalone logger instance.
func New(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if format == "pretty" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
