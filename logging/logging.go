// Package logging contains the structured logger used by the regsynth tools.
package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// Logger is the subset of *zap.SugaredLogger used throughout regsynth.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Sync() error
}

// NewLoggerConfig returns a new default logger config.
func NewLoggerConfig() zap.Config {
	// from https://github.com/uber-go/zap/blob/2314926ec34c23ee21f3dd4399438469668f8097/config.go#L135
	// but disable stacktraces, use same keys as prod, and color levels.
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// NewLogger returns a new logger that outputs Info+ logs.
func NewLogger(name string) Logger {
	return newLoggerAtLevel(name, zap.InfoLevel)
}

// NewDebugLogger returns a new logger that outputs Debug+ logs.
func NewDebugLogger(name string) Logger {
	return newLoggerAtLevel(name, zap.DebugLevel)
}

func newLoggerAtLevel(name string, level zapcore.Level) Logger {
	cfg := NewLoggerConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		// the config above is static; a failure here is a programming error
		panic(err)
	}
	return logger.Sugar().Named(name)
}

// NewTestLogger returns a new logger that writes Debug+ logs through tb.
func NewTestLogger(tb testing.TB) Logger {
	return zaptest.NewLogger(tb, zaptest.Level(zap.DebugLevel)).Sugar()
}

// NewObservedTestLogger is like NewTestLogger but also saves logs to an in memory observer.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	observerCore, observedLogs := observer.New(zap.LevelEnablerFunc(zapcore.DebugLevel.Enabled))
	testCore := zaptest.NewLogger(tb, zaptest.Level(zap.DebugLevel)).Core()
	logger := zap.New(zapcore.NewTee(testCore, observerCore)).Sugar()
	return logger, observedLogs
}
